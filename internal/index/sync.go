package index

import (
	"strings"

	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/storage"
)

// Rebuild brings the index in line with the collection on disk:
//   - new or changed markdown files are read and upserted
//   - entries whose files no longer exist are removed
//
// Unreadable files are skipped; the rebuild carries on.
func (db *DB) Rebuild(store storage.Provider) error {
	entries, err := store.ListTree()
	if err != nil {
		return err
	}

	indexed, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{})
	for _, e := range entries {
		if e.IsDir || !strings.HasSuffix(e.Path, ".md") {
			continue
		}
		disk[e.Path] = struct{}{}

		data, readErr := store.Read(e.Path)
		if readErr != nil {
			continue
		}
		if indexed[e.Path] == checksum.Sum(data) {
			continue
		}
		if idxErr := db.IndexDocument(e.Path, data); idxErr != nil {
			return idxErr
		}
	}

	// Remove stale entries.
	for p := range indexed {
		if _, ok := disk[p]; !ok {
			if err := db.RemovePath(p); err != nil {
				return err
			}
		}
	}
	return nil
}
