// Package storage defines the vault file-system abstraction.
//
// Paths are vault-relative and use forward slashes. A path doubles as the
// file handle: every call that needs a file takes its path.
package storage

import "github.com/starford/daystreams/internal/models"

// Provider is the interface for vault file operations.
type Provider interface {
	// Exists reports whether a file or folder is present at path.
	Exists(path string) bool
	// CreateFolder creates path and its parents. An existing folder is success.
	CreateFolder(path string) error
	// CreateFile writes initial content to a new file. It fails with
	// apperr.ErrAlreadyExists if the file is present.
	CreateFile(path string, content []byte) (models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Size returns the size in bytes of the file at path.
	Size(path string) (int64, error)
	// List returns metadata for every .md file under dir, recursively.
	List(dir string) ([]models.NoteMetadata, error)
	// Write atomically replaces the content at path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}
