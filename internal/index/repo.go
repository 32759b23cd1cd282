package index

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/outline"
)

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// IndexDocument parses data and upserts the document at p.
func (db *DB) IndexDocument(p string, data []byte) error {
	body := string(data)
	title := outline.Title(body, strings.TrimSuffix(path.Base(p), ".md"))
	cs := checksum.Sum(data)

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO documents (path, title, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, p, title, cs, body, time.Now())
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	if err := ftsUpsert(tx, p, title, body); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit: %w", err)
	}
	return nil
}

// RemovePath deletes the document at p from the index.
func (db *DB) RemovePath(p string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM documents WHERE path = ?`, p); err != nil {
		return fmt.Errorf("index: delete document: %w", err)
	}
	ftsDelete(tx, p, false)

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit: %w", err)
	}
	return nil
}

// RemovePrefix deletes every document at or below prefix.
func (db *DB) RemovePrefix(prefix string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM documents WHERE path = ? OR path LIKE ? || '/%'`, prefix, prefix); err != nil {
		return fmt.Errorf("index: delete prefix: %w", err)
	}
	ftsDelete(tx, prefix, true)

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit: %w", err)
	}
	return nil
}

// RenamePrefix rewrites the path of every document at or below oldPath so
// the index follows collection moves without reindexing content.
func (db *DB) RenamePrefix(oldPath, newPath string) error {
	if oldPath == newPath {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const rewrite = `SET path = ? || substr(path, ?) WHERE path = ? OR path LIKE ? || '/%'`
	cut := len(oldPath) + 1 // substr is 1-based; keep everything after the old prefix
	if _, err := tx.Exec(`UPDATE documents `+rewrite, newPath, cut, oldPath, oldPath); err != nil {
		return fmt.Errorf("index: rename prefix: %w", err)
	}
	ftsRename(tx, oldPath, newPath, cut)

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit: %w", err)
	}
	return nil
}

// GetChecksum returns the stored checksum for p, "" when not indexed.
func (db *DB) GetChecksum(p string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, p).Scan(&cs)
	if err != nil {
		return "", nil //nolint:nilerr // absent rows report as empty checksum
	}
	return cs, nil
}

// AllChecksums returns path→checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, fmt.Errorf("index: scan checksum: %w", err)
		}
		out[p] = cs
	}
	return out, rows.Err()
}
