//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS daily_notes_fts USING fts5(
			path UNINDEXED,
			folder UNINDEXED,
			title,
			body,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, path, folder, title, body string, tags []string) error {
	_, _ = tx.Exec(`DELETE FROM daily_notes_fts WHERE path = ?`, path)
	_, err := tx.Exec(`INSERT INTO daily_notes_fts (path, folder, title, body, tags) VALUES (?, ?, ?, ?, ?)`,
		path, folder, title, body, strings.Join(tags, " "))
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM daily_notes_fts WHERE path = ?`, path)
}

// Search runs an FTS5 query over the notes in folder, best match first.
func (db *DB) Search(folder, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT f.path,
		       n.note_date,
		       f.title,
		       snippet(daily_notes_fts, 3, '<b>', '</b>', '...', 64)
		FROM daily_notes_fts f
		JOIN daily_notes n ON n.path = f.path
		WHERE daily_notes_fts MATCH ? AND f.folder = ?
		ORDER BY rank
		LIMIT ?
	`, query, folder, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
