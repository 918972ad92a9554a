package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/daystreams/internal/calendar"
	"github.com/starford/daystreams/internal/navigation"
)

// Bridge carries widget renders and notices from the service into the
// bubbletea event loop. It implements calendar.Renderer and
// navigation.Notifier.
//
// Widgets render with their lock held, so sends never block: when the
// buffer is full the message is dropped. The model re-reads the widget
// after each action it starts, so a dropped render only delays a refresh
// caused by a file event.
type Bridge struct {
	ch chan tea.Msg
}

// NewBridge returns a bridge buffering up to size messages.
func NewBridge(size int) *Bridge {
	if size < 1 {
		size = 1
	}
	return &Bridge{ch: make(chan tea.Msg, size)}
}

// Render implements calendar.Renderer.
func (b *Bridge) Render(s calendar.Snapshot) { b.send(renderMsg{snap: s}) }

// Unmount implements calendar.Renderer.
func (b *Bridge) Unmount(documentID string) { b.send(unmountMsg{docID: documentID}) }

// Notify implements navigation.Notifier.
func (b *Bridge) Notify(n navigation.Notice) { b.send(noticeMsg{notice: n}) }

func (b *Bridge) send(msg tea.Msg) {
	select {
	case b.ch <- msg:
	default:
	}
}

// Wait returns a command that delivers the next bridged message.
func (b *Bridge) Wait() tea.Cmd {
	return func() tea.Msg {
		return <-b.ch
	}
}
