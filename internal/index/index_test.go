package index

import (
	"os"
	"testing"

	"github.com/starford/raido/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "raido-index-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestIndexAndSearch(t *testing.T) {
	db := testDB(t)
	if err := db.IndexDocument("go/channels.md", []byte("# Channels\nGoroutines talk over channels.")); err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}
	if err := db.IndexDocument("other.md", []byte("# Other\nNothing relevant.")); err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}

	results, err := db.Search("channels", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %+v, want 1 hit", results)
	}
	if results[0].Path != "go/channels.md" || results[0].Title != "Channels" {
		t.Errorf("hit = %+v", results[0])
	}
}

func TestIndexDocument_UpsertsInPlace(t *testing.T) {
	db := testDB(t)
	if err := db.IndexDocument("doc.md", []byte("# First")); err != nil {
		t.Fatal(err)
	}
	if err := db.IndexDocument("doc.md", []byte("# Second")); err != nil {
		t.Fatal(err)
	}
	cs, err := db.AllChecksums()
	if err != nil {
		t.Fatalf("AllChecksums: %v", err)
	}
	if len(cs) != 1 {
		t.Errorf("checksums = %v, want single entry", cs)
	}
}

func TestTitleFallsBackToFilename(t *testing.T) {
	db := testDB(t)
	if err := db.IndexDocument("dir/plain.md", []byte("no headings at all")); err != nil {
		t.Fatal(err)
	}
	results, err := db.Search("headings", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Title != "plain" {
		t.Errorf("results = %+v, want title derived from filename", results)
	}
}

func TestRemovePrefix(t *testing.T) {
	db := testDB(t)
	for _, p := range []string{"dir/a.md", "dir/sub/b.md", "dirother.md"} {
		if err := db.IndexDocument(p, []byte("shared token")); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.RemovePrefix("dir"); err != nil {
		t.Fatalf("RemovePrefix: %v", err)
	}
	cs, _ := db.AllChecksums()
	if len(cs) != 1 {
		t.Fatalf("checksums = %v, want only dirother.md", cs)
	}
	// The prefix match must not swallow sibling names sharing the prefix text.
	if _, ok := cs["dirother.md"]; !ok {
		t.Errorf("dirother.md removed by prefix delete")
	}
}

func TestRenamePrefix(t *testing.T) {
	db := testDB(t)
	if err := db.IndexDocument("notes/a.md", []byte("# A\nfindme")); err != nil {
		t.Fatal(err)
	}
	if err := db.RenamePrefix("notes", "archive/notes"); err != nil {
		t.Fatalf("RenamePrefix: %v", err)
	}
	results, err := db.Search("findme", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Path != "archive/notes/a.md" {
		t.Errorf("results = %+v, want renamed path", results)
	}
}

func TestRebuild(t *testing.T) {
	db := testDB(t)
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Write("a.md", []byte("# A\nalpha"))
	_ = store.Write("b.md", []byte("# B\nbeta"))
	// Stale entry for a file that never existed on this disk.
	if err := db.IndexDocument("ghost.md", []byte("boo")); err != nil {
		t.Fatal(err)
	}

	if err := db.Rebuild(store); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	cs, err := db.AllChecksums()
	if err != nil {
		t.Fatal(err)
	}
	if len(cs) != 2 {
		t.Fatalf("checksums = %v, want a.md and b.md", cs)
	}
	if _, ok := cs["ghost.md"]; ok {
		t.Errorf("stale entry survived rebuild")
	}

	// Second rebuild with unchanged files is a no-op (checksums match).
	before := cs["a.md"]
	if err := db.Rebuild(store); err != nil {
		t.Fatalf("second Rebuild: %v", err)
	}
	after, _ := db.GetChecksum("a.md")
	if after != before {
		t.Errorf("checksum changed on unchanged file")
	}
}
