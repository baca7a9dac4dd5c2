package editor

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/starford/petpad/internal/apperr"
	"github.com/starford/petpad/internal/checksum"
	"github.com/starford/petpad/internal/codec"
	"github.com/starford/petpad/internal/filter"
	"github.com/starford/petpad/internal/index"
	"github.com/starford/petpad/internal/models"
)

// Documents lists the indexed vault documents.
func (s *Service) Documents(_ context.Context) ([]index.DocumentRow, error) {
	rows, err := s.db.ListDocuments()
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []index.DocumentRow{}
	}
	return rows, nil
}

// ReadDocument decodes a vault document straight from storage.
func (s *Service) ReadDocument(_ context.Context, name string) ([]models.Snippet, error) {
	name, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return codec.Decode(string(data))
}

// Search runs q over every indexed snippet in the vault. limit <= 0 means
// no limit.
func (s *Service) Search(_ context.Context, q filter.Query, limit int) ([]index.IndexedSnippet, error) {
	all, err := s.db.AllSnippets()
	if err != nil {
		return nil, err
	}
	items := make([]models.Snippet, len(all))
	for i, is := range all {
		items[i] = is.Snippet
	}
	idx, err := s.engine.ApplyIndexed(items, q)
	if limit > 0 && len(idx) > limit {
		idx = idx[:limit]
	}
	out := make([]index.IndexedSnippet, len(idx))
	for k, i := range idx {
		out[k] = all[i]
	}
	return out, err
}

// appendAttempts bounds how often AppendSnippet starts over when the
// document is opened or created while it was being read.
const appendAttempts = 3

// AppendSnippet adds sn to the end of a vault document and saves it,
// creating the document if needed. A document open in the workspace with
// unsaved edits is refused with apperr.ErrConflict.
func (s *Service) AppendSnippet(_ context.Context, name string, sn models.Snippet) (*models.Document, error) {
	name, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	sn = sn.Clone()
	sn.Tags = cleanTags(sn.Tags)

	for range appendAttempts {
		s.mu.Lock()
		if d, ok := s.docs[name]; ok {
			return s.appendOpenLocked(d, sn)
		}
		s.mu.Unlock()

		d, err := s.readForAppend(name)
		if err != nil {
			return nil, err
		}
		d.Snippets = append(d.Snippets, sn)

		s.mu.Lock()
		if _, ok := s.docs[name]; ok {
			s.mu.Unlock()
			continue
		}
		if d.Checksum == "" {
			created, err := s.store.Exists(name)
			if err != nil {
				s.mu.Unlock()
				return nil, err
			}
			if created {
				s.mu.Unlock()
				continue
			}
		}
		err = s.writeLocked(d, d.Checksum)
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return d.Clone(), nil
	}
	return nil, fmt.Errorf("%w: %s changed while appending", apperr.ErrConflict, name)
}

// appendOpenLocked appends to a document open in the workspace and saves it.
// It must be called with s.mu held and releases it.
func (s *Service) appendOpenLocked(d *models.Document, sn models.Snippet) (*models.Document, error) {
	if d.Dirty {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s has unsaved changes", apperr.ErrConflict, d.Name)
	}
	if err := editable(d); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	d.Snippets = append(d.Snippets, sn)
	if err := s.writeLocked(d, d.Checksum); err != nil {
		d.Snippets = d.Snippets[:len(d.Snippets)-1]
		s.mu.Unlock()
		return nil, err
	}
	return s.finish(Change{Type: DocumentSaved, Document: d.Name, Indexes: []int{len(d.Snippets) - 1}}, d), nil
}

// readForAppend loads a document that is not open. A missing file yields an
// empty document with no checksum.
func (s *Service) readForAppend(name string) (*models.Document, error) {
	d := &models.Document{Name: name}
	data, err := s.store.Read(name)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return d, nil
	case err != nil:
		return nil, err
	}
	if d.Snippets, err = codec.Decode(string(data)); err != nil {
		return nil, err
	}
	d.Checksum = checksum.Sum(data)
	return d, nil
}

// VaultTags counts tags over every indexed snippet, most used first.
func (s *Service) VaultTags(_ context.Context) ([]index.TagCount, error) {
	tags, err := s.db.Tags()
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []index.TagCount{}
	}
	return tags, nil
}

// DeleteDocument removes a vault document from disk and from the index. A
// document open in the workspace is refused with apperr.ErrConflict; close
// it first.
func (s *Service) DeleteDocument(_ context.Context, name string) error {
	name, err := CleanName(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, open := s.docs[name]; open {
		return fmt.Errorf("%w: %s is open", apperr.ErrConflict, name)
	}
	if err := s.store.Delete(name); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	if s.db != nil {
		return s.db.DeleteDocument(name)
	}
	return nil
}
