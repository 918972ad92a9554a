package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/daystreams/internal/datekey"
)

// NoteRow is one indexed daily note.
type NoteRow struct {
	Path      string
	Folder    string
	Date      datekey.Key
	Title     string
	Checksum  string
	Size      int64
	Words     int
	Tags      []string
	UpdatedAt time.Time
}

// SearchResult is one search hit.
type SearchResult struct {
	Path    string      `json:"path"`
	Date    datekey.Key `json:"date"`
	Title   string      `json:"title"`
	Snippet string      `json:"snippet"`
}

// Stats summarises the daily notes of one folder.
type Stats struct {
	Notes int         `json:"notes"`
	Bytes int64       `json:"bytes"`
	Words int         `json:"words"`
	First datekey.Key `json:"first"`
	Last  datekey.Key `json:"last"`
}

// UpsertNote inserts or replaces a note and its FTS entry in one transaction.
func (db *DB) UpsertNote(n NoteRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)

	_, err = tx.Exec(`
		INSERT INTO daily_notes (path, folder, note_date, title, checksum, size, words, tags, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			folder     = excluded.folder,
			note_date  = excluded.note_date,
			title      = excluded.title,
			checksum   = excluded.checksum,
			size       = excluded.size,
			words      = excluded.words,
			tags       = excluded.tags,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, n.Path, n.Folder, n.Date.String(), n.Title, n.Checksum, n.Size, n.Words, string(tagsJSON), body, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	if err := ftsUpsert(tx, n.Path, n.Folder, n.Title, body, tags); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteNote removes a note and its FTS entry. Deleting a path that is not
// indexed is not an error.
func (db *DB) DeleteNote(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM daily_notes WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum of path, or "" when not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM daily_notes WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums maps every indexed path to its checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM daily_notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Stats aggregates the notes directly inside folder.
func (db *DB) Stats(folder string) (Stats, error) {
	var (
		st          Stats
		first, last sql.NullString
	)
	err := db.conn.QueryRow(`
		SELECT count(*), coalesce(sum(size), 0), coalesce(sum(words), 0), min(note_date), max(note_date)
		FROM daily_notes
		WHERE folder = ?
	`, folder).Scan(&st.Notes, &st.Bytes, &st.Words, &first, &last)
	if err != nil {
		return Stats{}, fmt.Errorf("index: stats: %w", err)
	}
	st.First, _ = datekey.Parse(first.String)
	st.Last, _ = datekey.Parse(last.String)
	return st, nil
}

// Dates returns the dates that have a note in folder, oldest first.
func (db *DB) Dates(folder string) ([]datekey.Key, error) {
	rows, err := db.conn.Query(`SELECT note_date FROM daily_notes WHERE folder = ? ORDER BY note_date`, folder)
	if err != nil {
		return nil, fmt.Errorf("index: dates: %w", err)
	}
	defer rows.Close()
	var out []datekey.Key
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		if k, ok := datekey.Parse(s); ok {
			out = append(out, k)
		}
	}
	return out, rows.Err()
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var (
			r    SearchResult
			date string
		)
		if err := rows.Scan(&r.Path, &date, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		r.Date, _ = datekey.Parse(date)
		out = append(out, r)
	}
	return out, rows.Err()
}
