package tui

import (
	"github.com/starford/daystreams/internal/calendar"
	"github.com/starford/daystreams/internal/navigation"
)

// renderMsg is a widget snapshot pushed by the service.
type renderMsg struct {
	snap calendar.Snapshot
}

// unmountMsg says the widget on docID was torn down.
type unmountMsg struct {
	docID string
}

// noticeMsg is a user-visible notice from the resolver.
type noticeMsg struct {
	notice navigation.Notice
}

// navigatedMsg is sent when a navigation command finishes.
type navigatedMsg struct {
	res     navigation.Result
	snap    calendar.Snapshot
	hasSnap bool
	err     error
}

// snapshotMsg is sent when a month or layout change finishes.
type snapshotMsg struct {
	snap calendar.Snapshot
	err  error
}
