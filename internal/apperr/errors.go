// Package apperr defines the sentinel errors shared across packages.
// Callers classify failures with errors.Is; producers wrap with %w.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidDate marks a malformed or out-of-range date handed to navigation.
	ErrInvalidDate = errors.New("invalid date")
	// ErrStorageWrite marks a failed folder or file creation.
	ErrStorageWrite = errors.New("storage write failed")
	// ErrStreamNotFound means no configured stream owns a path or id.
	ErrStreamNotFound = errors.New("stream not found")
	// ErrBusy is returned when an operation is already in flight.
	ErrBusy = errors.New("busy")
)
