//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
			path UNINDEXED,
			title,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, path, title, body string) error {
	_, _ = tx.Exec(`DELETE FROM documents_fts WHERE path = ?`, path)
	_, err := tx.Exec(`INSERT INTO documents_fts (path, title, body) VALUES (?, ?, ?)`,
		path, title, body)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string, prefix bool) {
	if prefix {
		_, _ = tx.Exec(`DELETE FROM documents_fts WHERE path = ? OR path LIKE ? || '/%'`, path, path)
		return
	}
	_, _ = tx.Exec(`DELETE FROM documents_fts WHERE path = ?`, path)
}

func ftsRename(tx *sql.Tx, oldPath, newPath string, cut int) {
	_, _ = tx.Exec(`UPDATE documents_fts SET path = ? || substr(path, ?) WHERE path = ? OR path LIKE ? || '/%'`,
		newPath, cut, oldPath, oldPath)
}

// Search performs an FTS5 full-text search and returns matching results
// with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT path,
		       title,
		       snippet(documents_fts, 2, '<b>', '</b>', '...', 64)
		FROM documents_fts
		WHERE documents_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Title, &r.Snippet); err != nil {
			return nil, fmt.Errorf("index: scan search result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
