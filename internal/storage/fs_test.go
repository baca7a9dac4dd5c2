package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	content := []byte("[[Snippets]]\ncommand = \"ls\"\n")
	if err := s.Write("pet.toml", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("pet.toml")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteRejectsNonDocuments(t *testing.T) {
	s := tempVault(t)
	if err := s.Write("notes.md", []byte("x")); err == nil {
		t.Error("expected error writing a non-toml file")
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempVault(t)
	if err := s.Write("work/k8s/pet.toml", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("work/k8s/pet.toml")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestReadMissingIsNotExist(t *testing.T) {
	s := tempVault(t)
	_, err := s.Read("missing.toml")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestExists(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a.toml", []byte(""))
	if ok, err := s.Exists("a.toml"); err != nil || !ok {
		t.Errorf("Exists(a.toml) = %v, %v", ok, err)
	}
	if ok, err := s.Exists("b.toml"); err != nil || ok {
		t.Errorf("Exists(b.toml) = %v, %v", ok, err)
	}
}

func TestDelete(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("del.toml", []byte("bye"))
	if err := s.Delete("del.toml"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.toml"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestMove(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("old.toml", []byte("data"))
	if err := s.Move("old.toml", "sub/new.toml"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("sub/new.toml")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("old.toml"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestListOnlyDocuments(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a.toml", []byte("a"))
	_ = s.Write("sub/b.toml", []byte("b"))
	_ = os.WriteFile(filepath.Join(s.root, "readme.md"), []byte("not a document"), 0o644)
	_ = os.WriteFile(filepath.Join(s.root, ".petpad-tmp-1.toml"), []byte("temp"), 0o644)

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(items), items)
	}
	paths := map[string]bool{}
	for _, it := range items {
		paths[it.Path] = true
		if it.Checksum == "" {
			t.Errorf("%s: empty checksum", it.Path)
		}
	}
	if !paths["a.toml"] || !paths["sub/b.toml"] {
		t.Errorf("paths = %v", paths)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)
	for _, p := range []string{"../../etc/passwd.toml", "../outside.toml", "/etc/shadow.toml"} {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("atomic.toml", []byte("original"))
	if err := s.Write("atomic.toml", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.toml")
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, ".petpad-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_Errors(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent dir")
	}
	f, _ := os.CreateTemp(t.TempDir(), "petpad-test-*")
	_ = f.Close()
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
