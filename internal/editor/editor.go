// Package editor holds the open snippet documents and applies edits to them.
//
// Every mutation goes through one pipeline: apply the edit to the in-memory
// document, compare with the previous state, and only when something changed
// mark the document dirty, persist the session and emit a Change.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/starford/petpad/internal/apperr"
	"github.com/starford/petpad/internal/checksum"
	"github.com/starford/petpad/internal/codec"
	"github.com/starford/petpad/internal/filter"
	"github.com/starford/petpad/internal/index"
	"github.com/starford/petpad/internal/models"
	"github.com/starford/petpad/internal/palette"
	"github.com/starford/petpad/internal/session"
	"github.com/starford/petpad/internal/storage"
	"github.com/starford/petpad/internal/vars"
)

// Options configures a Service. Zero values get defaults.
type Options struct {
	Parser  *vars.Parser
	Engine  *filter.Engine
	Session *session.Persister
	Notify  Notifier
	Logger  *slog.Logger
}

// Service is the document workspace.
type Service struct {
	store   storage.Provider
	db      index.DocumentIndex
	parser  *vars.Parser
	engine  *filter.Engine
	session *session.Persister
	notify  Notifier
	logger  *slog.Logger

	mu       sync.Mutex
	docs     map[string]*models.Document
	order    []string
	selected int
}

// NewService creates a workspace over store, reindexing saved documents in db.
func NewService(store storage.Provider, db index.DocumentIndex, opts Options) *Service {
	s := &Service{
		store:   store,
		db:      db,
		parser:  opts.Parser,
		engine:  opts.Engine,
		session: opts.Session,
		notify:  opts.Notify,
		logger:  opts.Logger,
		docs:    make(map[string]*models.Document),
	}
	if s.parser == nil {
		s.parser = vars.NewParser(palette.Static(palette.DefaultColors))
	}
	if s.engine == nil {
		s.engine = filter.NewEngine(filter.Fuzzy(filter.DefaultThreshold))
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Parser returns the variable parser used by the workspace.
func (s *Service) Parser() *vars.Parser { return s.parser }

// CleanName normalizes a vault-relative document name.
func CleanName(name string) (string, error) {
	n := strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if n == "" {
		return "", fmt.Errorf("%w: empty document name", apperr.ErrInvalidInput)
	}
	n = path.Clean(n)
	if path.IsAbs(n) || n == ".." || strings.HasPrefix(n, "../") {
		return "", fmt.Errorf("%w: document name escapes vault: %s", apperr.ErrInvalidInput, name)
	}
	if !storage.IsDocument(n) || strings.HasPrefix(path.Base(n), ".") {
		return "", fmt.Errorf("%w: not a %s document: %s", apperr.ErrInvalidInput, storage.DocumentExt, name)
	}
	return n, nil
}

// Open loads a vault document into the workspace and selects it. Opening a
// document that is already open only selects it.
//
// Text that fails to decode still opens: Raw and ParseError are set and
// snippet operations are refused until the text is corrected.
func (s *Service) Open(_ context.Context, name string) (*models.Document, error) {
	name, err := CleanName(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if d, ok := s.docs[name]; ok {
		s.selected = slices.Index(s.order, name)
		out := d.Clone()
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	data, err := s.store.Read(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	d := &models.Document{Name: name, Checksum: checksum.Sum(data)}
	setContent(d, string(data))

	s.mu.Lock()
	if existing, ok := s.docs[name]; ok {
		// Lost a race with a concurrent Open.
		out := existing.Clone()
		s.mu.Unlock()
		return out, nil
	}
	s.addLocked(d)
	return s.finish(Change{Type: DocumentOpened, Document: name, Dirty: d.Dirty}, d), nil
}

// Create adds a new, empty and unsaved document.
func (s *Service) Create(_ context.Context, name string) (*models.Document, error) {
	name, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	exists, err := s.store.Exists(name)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if _, open := s.docs[name]; open || exists {
		s.mu.Unlock()
		return nil, apperr.ErrAlreadyExists
	}
	d := &models.Document{Name: name, Snippets: []models.Snippet{}, Dirty: true}
	s.addLocked(d)
	return s.finish(Change{Type: DocumentCreated, Document: name, Dirty: true}, d), nil
}

// Close drops a document from the workspace, discarding unsaved edits.
func (s *Service) Close(name string) error {
	s.mu.Lock()
	d, ok := s.docs[name]
	if !ok {
		s.mu.Unlock()
		return apperr.ErrNotFound
	}
	delete(s.docs, name)
	i := slices.Index(s.order, name)
	s.order = slices.Delete(s.order, i, i+1)
	if s.selected >= len(s.order) {
		s.selected = max(len(s.order)-1, 0)
	}
	s.finish(Change{Type: DocumentClosed, Document: name, Dirty: d.Dirty}, nil)
	return nil
}

// Rename gives an open document a new name. A document that exists on disk
// is moved there and in the index too; unsaved edits and the selection are
// kept.
func (s *Service) Rename(_ context.Context, oldName, newName string) (*models.Document, error) {
	newName, err := CleanName(newName)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	d, ok := s.docs[oldName]
	if !ok {
		s.mu.Unlock()
		return nil, apperr.ErrNotFound
	}
	if newName == oldName {
		out := d.Clone()
		s.mu.Unlock()
		return out, nil
	}
	if err := s.moveLocked(oldName, newName); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	delete(s.docs, oldName)
	d.Name = newName
	s.docs[newName] = d
	s.order[slices.Index(s.order, oldName)] = newName
	return s.finish(Change{Type: DocumentRenamed, Document: newName, From: oldName}, d), nil
}

// moveLocked moves the file of oldName, if any, to newName. A newName taken
// in the workspace or on disk fails with apperr.ErrAlreadyExists.
func (s *Service) moveLocked(oldName, newName string) error {
	if _, open := s.docs[newName]; open {
		return fmt.Errorf("%w: %s is open", apperr.ErrAlreadyExists, newName)
	}
	taken, err := s.store.Exists(newName)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: %s", apperr.ErrAlreadyExists, newName)
	}
	onDisk, err := s.store.Exists(oldName)
	if err != nil || !onDisk {
		return err
	}
	if err := s.store.Move(oldName, newName); err != nil {
		return err
	}
	if s.db == nil {
		return nil
	}
	if err := s.db.DeleteDocument(oldName); err != nil {
		s.logger.Warn("editor: unindex failed", slog.String("path", oldName), slog.String("error", err.Error()))
	}
	data, err := s.store.Read(newName)
	if err == nil {
		err = index.IndexDocument(s.db, newName, data)
	}
	if err != nil {
		s.logger.Warn("editor: reindex failed", slog.String("path", newName), slog.String("error", err.Error()))
	}
	return nil
}

// Get returns a copy of an open document.
func (s *Service) Get(name string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[name]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return d.Clone(), nil
}

// List returns copies of the open documents in tab order.
func (s *Service) List() []*models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Document, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, s.docs[n].Clone())
	}
	return out
}

// Select marks an open document as the current one.
func (s *Service) Select(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(s.order, name)
	if i < 0 {
		return apperr.ErrNotFound
	}
	if s.selected != i {
		s.selected = i
		s.session.Save(s.stateLocked())
	}
	return nil
}

// State returns the current session snapshot.
func (s *Service) State() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// SetContent replaces a document's text and decodes it again. Valid text
// clears a pending parse error; invalid text keeps the document open with
// the new error.
func (s *Service) SetContent(name, content string) (*models.Document, error) {
	return s.mutate(name, DocumentChanged, func(d *models.Document) ([]int, error) {
		setContent(d, content)
		return nil, nil
	})
}

// Save writes a document in canonical form, or its raw text while a parse
// error is pending. When ifMatch is set it must equal the checksum of the
// file currently on disk.
func (s *Service) Save(_ context.Context, name, ifMatch string) (*models.Document, error) {
	s.mu.Lock()
	d, ok := s.docs[name]
	if !ok {
		s.mu.Unlock()
		return nil, apperr.ErrNotFound
	}
	if err := s.writeLocked(d, ifMatch); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	return s.finish(Change{Type: DocumentSaved, Document: name}, d), nil
}

func (s *Service) writeLocked(d *models.Document, ifMatch string) error {
	if ifMatch != "" {
		existing, err := s.store.Read(d.Name)
		switch {
		case errors.Is(err, os.ErrNotExist):
			return apperr.ErrConflict
		case err != nil:
			return err
		case checksum.Sum(existing) != ifMatch:
			return apperr.ErrConflict
		}
	}
	data := []byte(contentOf(d))
	if err := s.store.Write(d.Name, data); err != nil {
		return err
	}
	d.Checksum = checksum.Sum(data)
	d.Dirty = false
	if s.db != nil {
		if err := index.IndexDocument(s.db, d.Name, data); err != nil {
			s.logger.Warn("editor: reindex failed", slog.String("path", d.Name), slog.String("error", err.Error()))
		}
	}
	return nil
}

// Restore reopens the documents of the persisted session. Documents keep
// their saved text and dirty flag, so unsaved edits survive a restart.
func (s *Service) Restore(_ context.Context) int {
	state := s.session.Load()
	if state == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ds := range state.Documents {
		name, err := CleanName(ds.Name)
		if err != nil {
			s.logger.Warn("editor: restore skipped", slog.String("path", ds.Name), slog.String("error", err.Error()))
			continue
		}
		if _, dup := s.docs[name]; dup {
			continue
		}
		d := &models.Document{Name: name, Dirty: ds.Dirty}
		setContent(d, ds.Content)
		if data, err := s.store.Read(name); err == nil {
			d.Checksum = checksum.Sum(data)
		}
		s.docs[name] = d
		s.order = append(s.order, name)
	}
	s.selected = min(max(state.Selected, 0), max(len(s.order)-1, 0))
	s.logger.Info("editor: session restored", slog.Int("documents", len(s.order)))
	return len(s.order)
}

// mutate runs fn on an open document. The document is rolled back when fn
// fails; otherwise it is compared with its previous state and a Change of
// kind is emitted if it differs.
func (s *Service) mutate(name string, kind ChangeType, fn func(d *models.Document) ([]int, error)) (*models.Document, error) {
	s.mu.Lock()
	d, ok := s.docs[name]
	if !ok {
		s.mu.Unlock()
		return nil, apperr.ErrNotFound
	}
	before := d.Clone()
	indexes, err := fn(d)
	if err != nil {
		*d = *before
		s.mu.Unlock()
		return nil, err
	}
	if sameContent(before, d) {
		out := d.Clone()
		s.mu.Unlock()
		return out, nil
	}
	d.Dirty = true
	return s.finish(Change{Type: kind, Document: name, Indexes: indexes, Dirty: true}, d), nil
}

// finish persists the session and emits ch. It must be called with s.mu
// held and releases it.
func (s *Service) finish(ch Change, d *models.Document) *models.Document {
	var out *models.Document
	if d != nil {
		out = d.Clone()
		ch.Dirty = d.Dirty
	}
	s.session.Save(s.stateLocked())
	notify := s.notify
	s.mu.Unlock()
	if notify != nil {
		notify(ch)
	}
	return out
}

func (s *Service) addLocked(d *models.Document) {
	s.docs[d.Name] = d
	s.order = append(s.order, d.Name)
	s.selected = len(s.order) - 1
}

func (s *Service) stateLocked() models.SessionState {
	state := models.SessionState{
		Documents: make([]models.DocumentState, 0, len(s.order)),
		Selected:  s.selected,
	}
	for _, n := range s.order {
		d := s.docs[n]
		state.Documents = append(state.Documents, models.DocumentState{
			Name:    d.Name,
			Content: contentOf(d),
			Dirty:   d.Dirty,
		})
	}
	return state
}

// setContent decodes text into d.
func setContent(d *models.Document, text string) {
	snippets, err := codec.Decode(text)
	if err != nil {
		d.Snippets = nil
		d.Raw = text
		d.ParseError = err.Error()
		return
	}
	d.Snippets = snippets
	d.Raw = ""
	d.ParseError = ""
}

// contentOf is the text a document persists as.
func contentOf(d *models.Document) string {
	if d.ParseError != "" {
		return d.Raw
	}
	return codec.Encode(d.Snippets)
}

func sameContent(a, b *models.Document) bool {
	return a.Raw == b.Raw &&
		a.ParseError == b.ParseError &&
		slices.EqualFunc(a.Snippets, b.Snippets, models.Snippet.Equal)
}
