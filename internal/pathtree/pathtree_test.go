package pathtree

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/storage"
)

func TestBuild_AnyOrder(t *testing.T) {
	tr := New()
	// Children before parents, mixed files and dirs.
	tr.Build([]storage.Entry{
		{Path: "topics/go/basics.md"},
		{Path: "topics", IsDir: true},
		{Path: "readme.md"},
		{Path: "topics/go", IsDir: true},
		{Path: "assets/logo.png"},
	})

	for _, p := range []string{"topics", "topics/go", "topics/go/basics.md", "readme.md", "assets", "assets/logo.png"} {
		if _, ok := tr.Find(p); !ok {
			t.Errorf("missing node %q", p)
		}
	}
	if n, _ := tr.Find("assets"); !n.IsDir() {
		t.Errorf("assets should be a materialized directory")
	}
	if tr.Len() != 6 {
		t.Errorf("Len = %d, want 6", tr.Len())
	}
}

func TestBuild_IgnoresUntrackedFiles(t *testing.T) {
	tr := New()
	tr.Build([]storage.Entry{
		{Path: "doc.md"},
		{Path: "notes.txt"},
		{Path: "image.PNG"},
	})
	if _, ok := tr.Find("notes.txt"); ok {
		t.Errorf("untracked file indexed")
	}
	if n, ok := tr.Find("image.PNG"); !ok || n.Kind != KindImage {
		t.Errorf("case-insensitive extension not recognized")
	}
}

func TestInsert_Ordering(t *testing.T) {
	tr := New()
	tr.Insert("b.md", false)
	tr.Insert("zdir", true)
	tr.Insert("a.md", false)
	tr.Insert("adir", true)

	var names []string
	for _, c := range tr.Root().Children {
		names = append(names, c.Name)
	}
	got := strings.Join(names, ",")
	if got != "adir,zdir,a.md,b.md" {
		t.Errorf("child order = %s, want adir,zdir,a.md,b.md", got)
	}
}

func TestRemove_Subtree(t *testing.T) {
	tr := New()
	tr.Insert("dir/sub/doc.md", false)
	tr.Insert("dir/other.md", false)

	if !tr.Remove("dir/sub") {
		t.Fatalf("Remove returned false")
	}
	if _, ok := tr.Find("dir/sub/doc.md"); ok {
		t.Errorf("descendant still indexed after subtree removal")
	}
	if _, ok := tr.Find("dir/other.md"); !ok {
		t.Errorf("sibling removed")
	}
}

func TestRenamePrefix_Subtree(t *testing.T) {
	tr := New()
	tr.Insert("notes/a.md", false)
	tr.Insert("notes/deep/b.md", false)
	tr.Insert("archive", true)

	if err := tr.RenamePrefix("notes", "archive/notes"); err != nil {
		t.Fatalf("RenamePrefix: %v", err)
	}
	for _, p := range []string{"archive/notes", "archive/notes/a.md", "archive/notes/deep/b.md"} {
		if _, ok := tr.Find(p); !ok {
			t.Errorf("missing %q after rename", p)
		}
	}
	if _, ok := tr.Find("notes"); ok {
		t.Errorf("old prefix still indexed")
	}
	if n, _ := tr.Find("archive/notes/deep/b.md"); n.Name != "b.md" {
		t.Errorf("descendant name = %q", n.Name)
	}
}

func TestRenamePrefix_SamePathNoop(t *testing.T) {
	tr := New()
	tr.Insert("doc.md", false)
	if err := tr.RenamePrefix("doc.md", "doc.md"); err != nil {
		t.Fatalf("self-rename should be a no-op, got %v", err)
	}
}

func TestRenamePrefix_Errors(t *testing.T) {
	tr := New()
	tr.Insert("a", true)
	tr.Insert("a/x.md", false)
	tr.Insert("b.md", false)

	if err := tr.RenamePrefix("missing", "other"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("rename missing: %v, want ErrNotFound", err)
	}
	if err := tr.RenamePrefix("a", "b.md"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("rename onto existing: %v, want ErrAlreadyExists", err)
	}
	if err := tr.RenamePrefix("a", "a/inner"); !errors.Is(err, apperr.ErrInvalidMove) {
		t.Errorf("rename into own subtree: %v, want ErrInvalidMove", err)
	}
	// Failed renames leave the tree intact.
	if _, ok := tr.Find("a/x.md"); !ok {
		t.Errorf("tree mutated by failed rename")
	}
}

func TestRenamePrefix_SameNodePointer(t *testing.T) {
	tr := New()
	tr.Insert("old/doc.md", false)
	before, _ := tr.Find("old/doc.md")

	if err := tr.RenamePrefix("old", "new"); err != nil {
		t.Fatalf("RenamePrefix: %v", err)
	}
	after, ok := tr.Find("new/doc.md")
	if !ok {
		t.Fatalf("renamed node missing")
	}
	if before != after {
		t.Errorf("rename recreated the node instead of re-keying it")
	}
}

func TestRender_DirtyMarker(t *testing.T) {
	tr := New()
	tr.Insert("doc.md", false)
	out := tr.Render("root", func(n *Node) string {
		if n.Path == "doc.md" {
			return "* "
		}
		return ""
	})
	if !strings.Contains(out, "* doc.md") {
		t.Errorf("render missing dirty marker:\n%s", out)
	}
}

func TestDocumentPaths(t *testing.T) {
	tr := New()
	tr.Insert("dir", true)
	tr.Insert("dir/b.md", false)
	tr.Insert("a.md", false)

	got := tr.DocumentPaths()
	if len(got) != 2 || got[0] != "a.md" || got[1] != "dir/b.md" {
		t.Errorf("DocumentPaths = %v", got)
	}
}
