package editor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/petpad/internal/apperr"
	"github.com/starford/petpad/internal/checksum"
	"github.com/starford/petpad/internal/index"
	"github.com/starford/petpad/internal/models"
	"github.com/starford/petpad/internal/session"
	"github.com/starford/petpad/internal/storage"
	"github.com/starford/petpad/internal/testutil"
)

const sampleDoc = `[[snippets]]
  description = "list files"
  command = "ls -la <dir=.>"
  tag = ["fs"]

[[snippets]]
  description = "ping host"
  command = "ping -c <count=3> <host>"
  tag = ["net", "shell"]
`

type recorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recorder) notify(c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) types() []ChangeType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ChangeType, len(r.changes))
	for i, c := range r.changes {
		out[i] = c.Type
	}
	return out
}

type env struct {
	dir string
	db  *index.DB
	svc *Service
	rec *recorder
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWithStore(t, nil)
}

// newEnvWithStore is newEnv with the vault store passed through wrap.
func newEnvWithStore(t *testing.T, wrap func(storage.Provider) storage.Provider) *env {
	t.Helper()
	dir, store := testutil.TestVault(t)
	if wrap != nil {
		store = wrap(store)
	}
	db := testutil.TestDB(t)
	rec := &recorder{}
	svc := NewService(store, db, Options{
		Session: session.NewPersister(db, testutil.Logger()),
		Notify:  rec.notify,
		Logger:  testutil.Logger(),
	})
	return &env{dir: dir, db: db, svc: svc, rec: rec}
}

func TestOpen(t *testing.T) {
	e := newEnv(t)
	testutil.WriteDocument(t, e.dir, "net.toml", sampleDoc)

	d, err := e.svc.Open(context.Background(), "net.toml")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(d.Snippets) != 2 || d.Dirty || d.ParseError != "" {
		t.Errorf("unexpected document: %+v", d)
	}
	if d.Checksum != checksum.SumString(sampleDoc) {
		t.Errorf("checksum = %q", d.Checksum)
	}

	// Opening again selects without another event.
	if _, err := e.svc.Open(context.Background(), "./net.toml"); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if diff := cmp.Diff([]ChangeType{DocumentOpened}, e.rec.types()); diff != "" {
		t.Errorf("changes (-want +got):\n%s", diff)
	}
}

func TestOpen_Errors(t *testing.T) {
	e := newEnv(t)
	if _, err := e.svc.Open(context.Background(), "missing.toml"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing: err = %v, want ErrNotFound", err)
	}
	for _, name := range []string{"", "../x.toml", "/etc/x.toml", "notes.md", ".hidden.toml"} {
		if _, err := e.svc.Open(context.Background(), name); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("Open(%q): err = %v, want ErrInvalidInput", name, err)
		}
	}
}

func TestOpen_MalformedKeepsRaw(t *testing.T) {
	e := newEnv(t)
	bad := "[[snippets]]\ncommand = \n"
	testutil.WriteDocument(t, e.dir, "bad.toml", bad)
	testutil.WriteDocument(t, e.dir, "good.toml", sampleDoc)

	d, err := e.svc.Open(context.Background(), "bad.toml")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if d.Raw != bad || d.ParseError == "" || d.Snippets != nil {
		t.Errorf("malformed document = %+v", d)
	}
	// Other documents are unaffected.
	if _, err := e.svc.Open(context.Background(), "good.toml"); err != nil {
		t.Fatalf("Open good: %v", err)
	}
	if _, err := e.svc.AddSnippet("bad.toml"); !errors.Is(err, apperr.ErrMalformedDocument) {
		t.Errorf("AddSnippet on malformed: err = %v", err)
	}

	// Fixing the text clears the error.
	d, err = e.svc.SetContent("bad.toml", "[[snippets]]\ncommand = \"ls\"\n")
	if err != nil {
		t.Fatalf("SetContent: %v", err)
	}
	if d.ParseError != "" || d.Raw != "" || len(d.Snippets) != 1 || !d.Dirty {
		t.Errorf("after fix = %+v", d)
	}
}

func TestCreate(t *testing.T) {
	e := newEnv(t)
	testutil.WriteDocument(t, e.dir, "exists.toml", sampleDoc)

	d, err := e.svc.Create(context.Background(), "work/new.toml")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !d.Dirty || len(d.Snippets) != 0 || d.Snippets == nil {
		t.Errorf("created = %+v", d)
	}
	if _, err := e.svc.Create(context.Background(), "work/new.toml"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate open: err = %v", err)
	}
	if _, err := e.svc.Create(context.Background(), "exists.toml"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("existing on disk: err = %v", err)
	}
}

func TestClose(t *testing.T) {
	e := newEnv(t)
	_, _ = e.svc.Create(context.Background(), "a.toml")
	_, _ = e.svc.Create(context.Background(), "b.toml")

	if err := e.svc.Close("b.toml"); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := e.svc.Close("b.toml"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("double close: err = %v", err)
	}
	st := e.svc.State()
	if len(st.Documents) != 1 || st.Selected != 0 {
		t.Errorf("state after close = %+v", st)
	}
}

func TestSave(t *testing.T) {
	e := newEnv(t)
	testutil.WriteDocument(t, e.dir, "net.toml", sampleDoc)
	ctx := context.Background()

	d, _ := e.svc.Open(ctx, "net.toml")
	if _, err := e.svc.EditSnippet("net.toml", 0, Edit{Field: FieldDescription, Value: "list all"}); err != nil {
		t.Fatalf("EditSnippet: %v", err)
	}

	saved, err := e.svc.Save(ctx, "net.toml", d.Checksum)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.Dirty {
		t.Error("saved document still dirty")
	}
	data, _ := os.ReadFile(filepath.Join(e.dir, "net.toml"))
	if !strings.Contains(string(data), `Description = "list all"`) {
		t.Errorf("file not rewritten canonically:\n%s", data)
	}
	if saved.Checksum != checksum.Sum(data) {
		t.Error("checksum not refreshed after save")
	}
	if cs, _ := e.db.GetChecksum("net.toml"); cs != saved.Checksum {
		t.Errorf("index checksum = %q, want %q", cs, saved.Checksum)
	}

	// A stale If-Match is refused.
	if _, err := e.svc.Save(ctx, "net.toml", d.Checksum); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale save: err = %v, want ErrConflict", err)
	}
}

func TestSave_MalformedWritesRaw(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, _ = e.svc.Create(ctx, "draft.toml")
	raw := "[[snippets]\nbroken"
	if _, err := e.svc.SetContent("draft.toml", raw); err != nil {
		t.Fatalf("SetContent: %v", err)
	}
	if _, err := e.svc.Save(ctx, "draft.toml", ""); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(e.dir, "draft.toml"))
	if string(data) != raw {
		t.Errorf("file = %q, want raw text", data)
	}
}

func TestChangePipeline_NoOpEmitsNothing(t *testing.T) {
	e := newEnv(t)
	testutil.WriteDocument(t, e.dir, "net.toml", sampleDoc)
	_, _ = e.svc.Open(context.Background(), "net.toml")

	d, err := e.svc.EditSnippet("net.toml", 0, Edit{Field: FieldCommand, Value: "ls -la <dir=.>"})
	if err != nil {
		t.Fatalf("EditSnippet: %v", err)
	}
	if d.Dirty {
		t.Error("unchanged edit marked the document dirty")
	}
	if diff := cmp.Diff([]ChangeType{DocumentOpened}, e.rec.types()); diff != "" {
		t.Errorf("changes (-want +got):\n%s", diff)
	}
}

func TestSessionRestore(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testutil.WriteDocument(t, e.dir, "net.toml", sampleDoc)
	_, _ = e.svc.Open(ctx, "net.toml")
	_, _ = e.svc.Create(ctx, "draft.toml")
	_, _ = e.svc.AddSnippet("draft.toml")
	_, _ = e.svc.EditSnippet("draft.toml", 0, Edit{Field: FieldCommand, Value: "echo <msg>"})
	_ = e.svc.Select("net.toml")

	restored := NewService(e.svc.store, e.db, Options{
		Session: session.NewPersister(e.db, testutil.Logger()),
		Logger:  testutil.Logger(),
	})
	if n := restored.Restore(ctx); n != 2 {
		t.Fatalf("Restore = %d, want 2", n)
	}

	draft, err := restored.Get("draft.toml")
	if err != nil {
		t.Fatalf("Get draft: %v", err)
	}
	if !draft.Dirty || len(draft.Snippets) != 1 || draft.Snippets[0].Command != "echo <msg>" {
		t.Errorf("restored draft = %+v", draft)
	}
	net, _ := restored.Get("net.toml")
	if net.Dirty || net.Checksum == "" {
		t.Errorf("restored net = %+v", net)
	}
	if got := restored.State().Selected; got != 0 {
		t.Errorf("selected = %d, want 0", got)
	}
}

func TestState_UsesCanonicalContent(t *testing.T) {
	e := newEnv(t)
	_, _ = e.svc.Create(context.Background(), "a.toml")
	_, _ = e.svc.AddSnippet("a.toml")

	st := e.svc.State()
	want := models.SessionState{
		Documents: []models.DocumentState{{
			Name:    "a.toml",
			Content: "[[Snippets]]\nDescription = \"\"\nOutput = \"\"\nTag = []\ncommand = \"\"\n",
			Dirty:   true,
		}},
	}
	if diff := cmp.Diff(want, st); diff != "" {
		t.Errorf("state (-want +got):\n%s", diff)
	}
}

func TestRename(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testutil.WriteDocument(t, e.dir, "net.toml", sampleDoc)
	if err := index.Sync(e.db, e.svc.store, testutil.Logger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	_, _ = e.svc.Open(ctx, "net.toml")
	_, _ = e.svc.Create(ctx, "draft.toml")
	if _, err := e.svc.EditSnippet("net.toml", 0, Edit{Field: FieldOutput, Value: "unsaved"}); err != nil {
		t.Fatalf("EditSnippet: %v", err)
	}

	d, err := e.svc.Rename(ctx, "net.toml", "work/network.toml")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if d.Name != "work/network.toml" || !d.Dirty || d.Snippets[0].Output != "unsaved" {
		t.Errorf("renamed document = %+v", d)
	}
	if _, err := os.Stat(filepath.Join(e.dir, "net.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("old file still present: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(e.dir, "work", "network.toml"))
	if err != nil || string(data) != sampleDoc {
		t.Errorf("moved file = %q, %v", data, err)
	}
	if cs, _ := e.db.GetChecksum("net.toml"); cs != "" {
		t.Error("old name still indexed")
	}
	if cs, _ := e.db.GetChecksum("work/network.toml"); cs != checksum.SumString(sampleDoc) {
		t.Errorf("new name checksum = %q", cs)
	}

	st := e.svc.State()
	names := []string{st.Documents[0].Name, st.Documents[1].Name}
	if diff := cmp.Diff([]string{"work/network.toml", "draft.toml"}, names); diff != "" {
		t.Errorf("tab order (-want +got):\n%s", diff)
	}
	if st.Selected != 1 {
		t.Errorf("selected = %d, want 1", st.Selected)
	}
	if _, err := e.svc.Get("net.toml"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("old name still open: %v", err)
	}

	e.rec.mu.Lock()
	last := e.rec.changes[len(e.rec.changes)-1]
	e.rec.mu.Unlock()
	want := Change{Type: DocumentRenamed, Document: "work/network.toml", From: "net.toml", Dirty: true}
	if diff := cmp.Diff(want, last); diff != "" {
		t.Errorf("change (-want +got):\n%s", diff)
	}

	// An unsaved document has no file to move.
	if _, err := e.svc.Rename(ctx, "draft.toml", "final.toml"); err != nil {
		t.Fatalf("Rename unsaved: %v", err)
	}
	if ok, _ := e.svc.store.Exists("final.toml"); ok {
		t.Error("renaming an unsaved document wrote a file")
	}
}

func TestRename_Errors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testutil.WriteDocument(t, e.dir, "net.toml", sampleDoc)
	testutil.WriteDocument(t, e.dir, "taken.toml", sampleDoc)
	_, _ = e.svc.Open(ctx, "net.toml")
	_, _ = e.svc.Create(ctx, "other.toml")

	tests := []struct {
		from, to string
		want     error
	}{
		{"missing.toml", "x.toml", apperr.ErrNotFound},
		{"net.toml", "other.toml", apperr.ErrAlreadyExists},
		{"net.toml", "taken.toml", apperr.ErrAlreadyExists},
		{"net.toml", "../escape.toml", apperr.ErrInvalidInput},
		{"net.toml", "notes.md", apperr.ErrInvalidInput},
	}
	for _, tt := range tests {
		if _, err := e.svc.Rename(ctx, tt.from, tt.to); !errors.Is(err, tt.want) {
			t.Errorf("Rename(%q, %q): err = %v, want %v", tt.from, tt.to, err, tt.want)
		}
	}
	if _, err := os.Stat(filepath.Join(e.dir, "net.toml")); err != nil {
		t.Errorf("failed renames moved the file: %v", err)
	}

	before := len(e.rec.types())
	if _, err := e.svc.Rename(ctx, "net.toml", "./net.toml"); err != nil {
		t.Fatalf("Rename to same name: %v", err)
	}
	if len(e.rec.types()) != before {
		t.Error("renaming to the same name emitted a change")
	}
}
