//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// Without FTS5, search falls back to LIKE over daily_notes.body.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _, _ string, _ []string) error {
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) {}

// Search matches query against title, body and tags of the notes in
// folder, newest first.
func (db *DB) Search(folder, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT path, note_date, title, substr(body, 1, 200)
		FROM daily_notes
		WHERE folder = ? AND (title LIKE ? OR body LIKE ? OR tags LIKE ?)
		ORDER BY note_date DESC
		LIMIT ?
	`, folder, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
