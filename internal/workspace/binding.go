package workspace

import (
	"errors"
	"fmt"

	"github.com/starford/daystreams/internal/datekey"
)

// Kind discriminates document bindings.
type Kind string

const (
	KindNote        Kind = "note"
	KindPlaceholder Kind = "placeholder"
	KindAggregate   Kind = "aggregate"
)

// Binding is what a document shows: an existing note, a creation
// placeholder for a missing daily note, or a stream's aggregate view.
// Only the fields of its Kind are set.
type Binding struct {
	Kind     Kind        `json:"kind"`
	Path     string      `json:"path,omitempty"`
	StreamID string      `json:"stream_id,omitempty"`
	Date     datekey.Key `json:"date"`
}

// Note binds a document to an existing file.
func Note(path string) Binding {
	return Binding{Kind: KindNote, Path: path}
}

// Placeholder binds a document to a daily note that does not exist yet.
func Placeholder(path, streamID string, date datekey.Key) Binding {
	return Binding{Kind: KindPlaceholder, Path: path, StreamID: streamID, Date: date}
}

// Aggregate binds a document to a stream's aggregate view.
func Aggregate(streamID string) Binding {
	return Binding{Kind: KindAggregate, StreamID: streamID}
}

// Validate checks that the binding is well formed for its kind.
func (b Binding) Validate() error {
	switch b.Kind {
	case KindNote:
		if b.Path == "" {
			return errors.New("workspace: note binding needs a path")
		}
		if b.StreamID != "" || !b.Date.IsZero() {
			return errors.New("workspace: note binding carries stream state")
		}
	case KindPlaceholder:
		if b.Path == "" || b.StreamID == "" {
			return errors.New("workspace: placeholder binding needs path and stream")
		}
		if !b.Date.Valid() {
			return fmt.Errorf("workspace: placeholder date %q is not a calendar date", b.Date)
		}
		if d, ok := datekey.ParsePath(b.Path); !ok || d != b.Date {
			return fmt.Errorf("workspace: placeholder path %q does not match date %s", b.Path, b.Date)
		}
	case KindAggregate:
		if b.StreamID == "" {
			return errors.New("workspace: aggregate binding needs a stream")
		}
		if b.Path != "" {
			return errors.New("workspace: aggregate binding carries a path")
		}
	default:
		return fmt.Errorf("workspace: unknown binding kind %q", b.Kind)
	}
	return nil
}
