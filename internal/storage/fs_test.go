package storage

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func tempCollection(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempCollection(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.Write("doc.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("doc.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempCollection(t)
	if err := s.Write("a/b/c.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	s := tempCollection(t)
	if err := s.Write("doc.md", []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	entries, err := os.ReadDir(s.Root())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "doc.md" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("leftover files: %v", names)
	}
}

func TestCreateFile_RefusesExisting(t *testing.T) {
	s := tempCollection(t)
	if err := s.CreateFile("doc.md", []byte("first")); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	err := s.CreateFile("doc.md", []byte("second"))
	if !errors.Is(err, os.ErrExist) {
		t.Errorf("second create: %v, want ErrExist", err)
	}
	got, _ := s.Read("doc.md")
	if string(got) != "first" {
		t.Errorf("content overwritten: %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempCollection(t)
	_ = s.Write("del.md", []byte("bye"))
	if err := s.Delete("del.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Exists("del.md") {
		t.Errorf("file still exists after delete")
	}
	if err := s.Delete("del.md"); err == nil {
		t.Errorf("deleting a missing path succeeded")
	}
}

func TestDelete_DirectoryRecursive(t *testing.T) {
	s := tempCollection(t)
	_ = s.Write("dir/a.md", []byte("a"))
	_ = s.Write("dir/sub/b.md", []byte("b"))
	if err := s.Delete("dir"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Exists("dir") || s.Exists("dir/sub/b.md") {
		t.Errorf("subtree survived delete")
	}
}

func TestDelete_RefusesRoot(t *testing.T) {
	s := tempCollection(t)
	if err := s.Delete(""); err == nil {
		t.Errorf("deleting the root succeeded")
	}
}

func TestMove(t *testing.T) {
	s := tempCollection(t)
	_ = s.Write("notes/a.md", []byte("a"))
	if err := s.Move("notes", "archive/notes"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("archive/notes/a.md")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "a" {
		t.Errorf("content = %q", got)
	}
	if s.Exists("notes") {
		t.Errorf("source still exists after move")
	}
}

func TestPathTraversalBlocked(t *testing.T) {
	s := tempCollection(t)
	outside := filepath.Join(filepath.Dir(s.Root()), "escape.md")
	defer os.Remove(outside)

	for _, p := range []string{"../escape.md", "a/../../escape.md", "/etc/passwd"} {
		if err := s.Write(p, []byte("nope")); err == nil {
			t.Errorf("Write(%q) escaped the root", p)
		}
		if _, err := s.Read(p); err == nil {
			t.Errorf("Read(%q) escaped the root", p)
		}
	}
	if _, err := os.Stat(outside); err == nil {
		t.Errorf("file written outside the root")
	}
}

func TestListTree(t *testing.T) {
	s := tempCollection(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("dir/b.md", []byte("b"))
	_ = s.CreateDir("empty")

	entries, err := s.ListTree()
	if err != nil {
		t.Fatalf("ListTree: %v", err)
	}
	got := make(map[string]bool, len(entries))
	var paths []string
	for _, e := range entries {
		got[e.Path] = e.IsDir
		paths = append(paths, e.Path)
	}
	sort.Strings(paths)

	want := map[string]bool{
		"a.md":     false,
		"dir":      true,
		"dir/b.md": false,
		"empty":    true,
	}
	if len(got) != len(want) {
		t.Fatalf("entries = %v", paths)
	}
	for p, isDir := range want {
		if gotDir, ok := got[p]; !ok || gotDir != isDir {
			t.Errorf("entry %q = (%v,%v), want (%v,true)", p, gotDir, ok, isDir)
		}
	}
}
