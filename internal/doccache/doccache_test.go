package doccache

import (
	"errors"
	"testing"

	"github.com/starford/raido/internal/apperr"
)

func loadConst(content string) func(string) ([]byte, error) {
	return func(string) ([]byte, error) { return []byte(content), nil }
}

func TestGetOrCreate_SingleStatePerPath(t *testing.T) {
	c := New()
	first, err := c.GetOrCreate("doc.md", loadConst("hello"))
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	second, err := c.GetOrCreate("doc.md", loadConst("OTHER"))
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if first != second {
		t.Errorf("second open created a new state")
	}
	if string(second.Content) != "hello" {
		t.Errorf("content reloaded on second open: %q", second.Content)
	}
}

func TestGetOrCreate_LoadFailureIsWarning(t *testing.T) {
	c := New()
	fail := errors.New("disk gone")
	st, warn := c.GetOrCreate("doc.md", func(string) ([]byte, error) { return nil, fail })
	if st == nil {
		t.Fatalf("state must be usable despite load failure")
	}
	if !errors.Is(warn, fail) {
		t.Errorf("warning = %v, want wrapped load error", warn)
	}
	if len(st.Content) != 0 {
		t.Errorf("content = %q, want empty", st.Content)
	}
	if _, ok := c.Get("doc.md"); !ok {
		t.Errorf("state not cached after degraded open")
	}
}

func TestMarkDirty_ReportsTransitions(t *testing.T) {
	c := New()
	c.GetOrCreate("doc.md", loadConst(""))

	if !c.MarkDirty("doc.md", true) {
		t.Errorf("first dirty transition not reported")
	}
	if c.MarkDirty("doc.md", true) {
		t.Errorf("repeated dirty set reported as change")
	}
	if !c.MarkDirty("doc.md", false) {
		t.Errorf("clean transition not reported")
	}
	if c.MarkDirty("missing.md", true) {
		t.Errorf("unopened path reported as changed")
	}
}

func TestRekeyPrefix_MovesSubtreePreservingState(t *testing.T) {
	c := New()
	st, _ := c.GetOrCreate("notes/a.md", loadConst("body"))
	st.Dirty = true
	st.Handle = "editor-1"
	c.GetOrCreate("notes/deep/b.md", loadConst(""))
	c.GetOrCreate("other.md", loadConst(""))

	if err := c.RekeyPrefix("notes", "archive/notes"); err != nil {
		t.Fatalf("RekeyPrefix: %v", err)
	}

	moved, ok := c.Get("archive/notes/a.md")
	if !ok {
		t.Fatalf("moved entry missing")
	}
	if moved != st {
		t.Errorf("rekey recreated the state instead of moving it")
	}
	if !moved.Dirty || moved.Handle != "editor-1" || string(moved.Content) != "body" {
		t.Errorf("state fields lost: %+v", moved)
	}
	if moved.Path != "archive/notes/a.md" {
		t.Errorf("Path = %q", moved.Path)
	}
	if _, ok := c.Get("notes/a.md"); ok {
		t.Errorf("old key still present")
	}
	if _, ok := c.Get("archive/notes/deep/b.md"); !ok {
		t.Errorf("nested entry not moved")
	}
	if _, ok := c.Get("other.md"); !ok {
		t.Errorf("unrelated entry touched")
	}
}

func TestRekeyPrefix_ConflictLeavesCacheUntouched(t *testing.T) {
	c := New()
	c.GetOrCreate("notes/a.md", loadConst(""))
	c.GetOrCreate("archive/notes/a.md", loadConst(""))

	err := c.RekeyPrefix("notes", "archive/notes")
	if !errors.Is(err, apperr.ErrRekeyConflict) {
		t.Fatalf("err = %v, want ErrRekeyConflict", err)
	}
	// All-or-nothing: nothing moved.
	if _, ok := c.Get("notes/a.md"); !ok {
		t.Errorf("source entry lost on failed rekey")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestRekeyPrefix_OverlappingDestination(t *testing.T) {
	// The destination key is occupied by an entry that is not part of the
	// move set, so the rekey must refuse.
	c := New()
	c.GetOrCreate("dir/a.md", loadConst("a"))
	c.GetOrCreate("dir2/dir/a.md", loadConst("b"))

	if err := c.RekeyPrefix("dir", "dir2/dir"); err == nil {
		t.Fatalf("expected conflict, got nil")
	}
}

func TestRekeyPrefix_ExactPath(t *testing.T) {
	c := New()
	c.GetOrCreate("doc.md", loadConst("x"))
	if err := c.RekeyPrefix("doc.md", "renamed.md"); err != nil {
		t.Fatalf("RekeyPrefix: %v", err)
	}
	if _, ok := c.Get("renamed.md"); !ok {
		t.Errorf("exact-path rekey failed")
	}
}

func TestRemovePrefix(t *testing.T) {
	c := New()
	c.GetOrCreate("dir/a.md", loadConst(""))
	c.GetOrCreate("dir/b.md", loadConst(""))
	c.GetOrCreate("keep.md", loadConst(""))

	removed := c.RemovePrefix("dir")
	if len(removed) != 2 || removed[0] != "dir/a.md" || removed[1] != "dir/b.md" {
		t.Errorf("removed = %v", removed)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestDirtyPaths(t *testing.T) {
	c := New()
	c.GetOrCreate("a.md", loadConst(""))
	c.GetOrCreate("b.md", loadConst(""))
	c.MarkDirty("b.md", true)

	got := c.DirtyPaths()
	if len(got) != 1 || got[0] != "b.md" {
		t.Errorf("DirtyPaths = %v", got)
	}
}
