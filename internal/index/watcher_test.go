package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/raido/internal/storage"
)

// watcherTestEnv sets up a collection dir, storage, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	dbFile, err := os.CreateTemp("", "raido-watcher-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })
	db, err := Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return root, store, db
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, store, root, quietLogger(), func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, "new.md"), []byte("# New"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("new.md")
		return cs != ""
	}, "new file not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "indexed:new.md" {
				return true
			}
		}
		return false
	}, "expected indexed:new.md callback")
}

func TestWatcher_RemovedFileDropped(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	_ = store.Write("doomed.md", []byte("# Doomed"))
	if err := db.IndexDocument("doomed.md", []byte("# Doomed")); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, store, root, quietLogger(), nil)

	time.Sleep(100 * time.Millisecond)
	_ = os.Remove(filepath.Join(root, "doomed.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("doomed.md")
		return cs == ""
	}, "removed file still indexed")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, store, root, quietLogger(), nil)

	time.Sleep(100 * time.Millisecond)

	// A directory created after startup must itself be watched.
	subDir := filepath.Join(root, "subdir")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(300 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(subDir, "inner.md"), []byte("# Inner"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("subdir/inner.md")
		return cs != ""
	}, "file in new directory not indexed")
}

func TestWatcher_RenamePickedUpByReconcile(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	_ = store.Write("old.md", []byte("# Old"))
	if err := db.IndexDocument("old.md", []byte("# Old")); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, store, root, quietLogger(), nil)

	time.Sleep(100 * time.Millisecond)
	_ = os.Rename(filepath.Join(root, "old.md"), filepath.Join(root, "renamed.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum("old.md")
		newCS, _ := db.GetChecksum("renamed.md")
		return oldCS == "" && newCS != ""
	}, "rename not reflected in index")
}
