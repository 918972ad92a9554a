package index

import "github.com/starford/daystreams/internal/datekey"

// NoteIndex is the index surface the service layer depends on.
type NoteIndex interface {
	UpsertNote(n NoteRow, body string) error
	DeleteNote(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	Search(folder, query string, limit int) ([]SearchResult, error)
	Stats(folder string) (Stats, error)
	Dates(folder string) ([]datekey.Key, error)
	Close() error
}

var _ NoteIndex = (*DB)(nil)
