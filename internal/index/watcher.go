package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "indexed" or "removed".
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the collection root and keeps the
// search index aligned with edits made by other programs, until ctx is
// cancelled. It touches only the search index; the in-memory engine
// structures are never modified from here. cb (if non-nil) runs after
// each successful index mutation.
//
// Directories created at runtime are added to the watch list. Rename
// events trigger a debounced reconciliation pass, since fsnotify reports
// only the old path.
func Watch(ctx context.Context, db *DB, store storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					// A moved-in directory may carry documents; reconcile
					// picks them up in one pass.
					scheduleReconcile()
					continue
				}
			}

			if !strings.HasSuffix(absPath, ".md") {
				continue
			}

			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := store.Read(rel)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
					continue
				}
				if idxErr := db.IndexDocument(rel, data); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", idxErr.Error()))
					continue
				}
				logger.Debug("watcher: indexed", slog.String("path", rel))
				if cb != nil {
					cb("indexed", rel)
				}

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.RemovePath(rel); delErr != nil {
					logger.Warn("watcher: remove failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: removed", slog.String("path", rel))
				if cb != nil {
					cb("removed", rel)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only; the new path
				// arrives as a Create (if still inside a watched dir).
				// Drop the old entry now and reconcile shortly after.
				if delErr := db.RemovePath(rel); delErr == nil {
					logger.Debug("watcher: rename old removed", slog.String("path", rel))
					if cb != nil {
						cb("removed", rel)
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile resyncs the search index against the disk listing: stale
// entries go away, unindexed or changed files get indexed.
func reconcile(db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) {
	indexed, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	entries, err := store.ListTree()
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]struct{})
	for _, e := range entries {
		if e.IsDir || !strings.HasSuffix(e.Path, ".md") {
			continue
		}
		disk[e.Path] = struct{}{}
	}

	for p := range indexed {
		if _, ok := disk[p]; !ok {
			if delErr := db.RemovePath(p); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("path", p))
				if cb != nil {
					cb("removed", p)
				}
			}
		}
	}

	for p := range disk {
		data, readErr := store.Read(p)
		if readErr != nil {
			continue
		}
		if indexed[p] == checksum.Sum(data) {
			continue
		}
		if idxErr := db.IndexDocument(p, data); idxErr == nil {
			logger.Debug("reconcile: indexed", slog.String("path", p))
			if cb != nil {
				cb("indexed", p)
			}
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
