// Package tui implements the terminal daily-note browser: one tab per
// stream, a calendar widget for the active note and a status line.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/starford/daystreams/internal/calendar"
	"github.com/starford/daystreams/internal/datekey"
	"github.com/starford/daystreams/internal/models"
	"github.com/starford/daystreams/internal/navigation"
	"github.com/starford/daystreams/internal/streamservice"
)

// Model is the bubbletea model of the browser.
type Model struct {
	ctx    context.Context
	svc    *streamservice.Service
	bridge *Bridge
	keys   KeyMap
	styles Styles
	help   help.Model

	streams []models.Stream
	tab     int

	docID  string
	target navigation.Target
	snap   *calendar.Snapshot
	notice navigation.Notice
	width  int

	jumping bool
	input   textinput.Model
}

// New returns a browser over svc. bridge must be the renderer and notifier
// svc was built with.
func New(ctx context.Context, svc *streamservice.Service, bridge *Bridge) *Model {
	return &Model{
		ctx:     ctx,
		svc:     svc,
		bridge:  bridge,
		keys:    DefaultKeyMap(),
		styles:  DefaultStyles(),
		help:    help.New(),
		streams: svc.Streams(),
		input:   newDateInput(),
	}
}

func newDateInput() textinput.Model {
	ti := textinput.New()
	ti.Prompt = "go to: "
	ti.Placeholder = "YYYY-MM-DD"
	ti.CharLimit = 10
	ti.Width = 12
	return ti
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if len(m.streams) == 0 {
		m.notice = navigation.Notice{Level: navigation.LevelError, Message: "no streams configured; add one with `daystreams streams add`"}
		return m.bridge.Wait()
	}
	return tea.Batch(m.bridge.Wait(), m.openToday())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case renderMsg:
		if msg.snap.DocumentID == m.docID {
			snap := msg.snap
			m.snap = &snap
		}
		return m, m.bridge.Wait()

	case unmountMsg:
		if msg.docID == m.docID {
			m.snap = nil
		}
		return m, m.bridge.Wait()

	case noticeMsg:
		m.notice = msg.notice
		return m, m.bridge.Wait()

	case navigatedMsg:
		if msg.err != nil {
			m.fail(msg.err)
			return m, nil
		}
		if msg.res.Outcome == navigation.OutcomeAborted {
			return m, nil
		}
		m.docID = msg.res.DocumentID
		m.target = msg.res.Target
		m.snap = nil
		if msg.hasSnap {
			snap := msg.snap
			m.snap = &snap
		}
		if msg.res.Outcome == navigation.OutcomeCreated {
			m.notice = navigation.Notice{Level: navigation.LevelInfo, Message: "created " + msg.res.Target.FilePath}
		}
		return m, nil

	case snapshotMsg:
		if msg.err != nil {
			m.fail(msg.err)
			return m, nil
		}
		if msg.snap.DocumentID == m.docID {
			snap := msg.snap
			m.snap = &snap
		}
		return m, nil

	default:
		if m.jumping {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.jumping {
		return m.handleJumpKey(msg)
	}
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return nil
	}
	if len(m.streams) == 0 {
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.NextStream):
		m.tab = (m.tab + 1) % len(m.streams)
		return m.openToday()
	case key.Matches(msg, m.keys.PrevStream):
		m.tab = (m.tab - 1 + len(m.streams)) % len(m.streams)
		return m.openToday()
	case key.Matches(msg, m.keys.Today):
		return m.openToday()
	case key.Matches(msg, m.keys.GoTo):
		if m.snap == nil {
			return nil
		}
		m.jumping = true
		return m.input.Focus()
	case key.Matches(msg, m.keys.PrevDay):
		return m.step(-1)
	case key.Matches(msg, m.keys.NextDay):
		return m.step(1)
	case key.Matches(msg, m.keys.PrevWeek):
		return m.step(-7)
	case key.Matches(msg, m.keys.NextWeek):
		return m.step(7)
	case key.Matches(msg, m.keys.PrevMonth):
		return m.shiftMonth(-1)
	case key.Matches(msg, m.keys.NextMonth):
		return m.shiftMonth(1)
	case key.Matches(msg, m.keys.ThisMonth):
		return m.widgetCmd(func(docID string) (calendar.Snapshot, error) {
			return m.svc.ShowTodayMonth(m.ctx, docID)
		})
	case key.Matches(msg, m.keys.Expand):
		if m.snap == nil {
			return nil
		}
		expanded := !m.snap.State.Expanded
		return m.widgetCmd(func(docID string) (calendar.Snapshot, error) {
			return m.svc.SetExpanded(docID, expanded)
		})
	case key.Matches(msg, m.keys.Create):
		return m.create()
	}
	return nil
}

// handleJumpKey edits the go-to prompt. Enter selects the typed day in
// the current widget.
func (m *Model) handleJumpKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return tea.Quit
	case key.Matches(msg, m.keys.Cancel):
		m.closeJump()
		return nil
	case key.Matches(msg, m.keys.Confirm):
		text := strings.TrimSpace(m.input.Value())
		m.closeJump()
		d, ok := datekey.Parse(text)
		if !ok {
			m.fail(fmt.Errorf("invalid date %q, want YYYY-MM-DD", text))
			return nil
		}
		return m.selectDay(d)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) closeJump() {
	m.jumping = false
	m.input.Reset()
	m.input.Blur()
}

func (m *Model) current() models.Stream {
	return m.streams[m.tab]
}

func (m *Model) fail(err error) {
	m.notice = navigation.Notice{Level: navigation.LevelError, Message: err.Error()}
}

// navigate wraps a navigation call and reads back the widget of the
// document it lands on.
func (m *Model) navigate(fn func() (navigation.Result, error)) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		res, err := fn()
		if err != nil {
			return navigatedMsg{err: err}
		}
		out := navigatedMsg{res: res}
		if snap, err := svc.Widget(res.DocumentID); err == nil {
			out.snap, out.hasSnap = snap, true
		}
		return out
	}
}

func (m *Model) openToday() tea.Cmd {
	id := m.current().ID
	return m.navigate(func() (navigation.Result, error) {
		return m.svc.OpenToday(m.ctx, id)
	})
}

func (m *Model) step(offset int) tea.Cmd {
	if m.snap == nil {
		return nil
	}
	docID := m.docID
	return m.navigate(func() (navigation.Result, error) {
		return m.svc.StepDay(m.ctx, docID, offset)
	})
}

func (m *Model) selectDay(d datekey.Key) tea.Cmd {
	if m.snap == nil {
		return nil
	}
	docID := m.docID
	return m.navigate(func() (navigation.Result, error) {
		return m.svc.SelectDay(m.ctx, docID, d)
	})
}

func (m *Model) shiftMonth(delta int) tea.Cmd {
	return m.widgetCmd(func(docID string) (calendar.Snapshot, error) {
		return m.svc.ShiftMonth(m.ctx, docID, delta)
	})
}

func (m *Model) widgetCmd(fn func(docID string) (calendar.Snapshot, error)) tea.Cmd {
	if m.snap == nil {
		return nil
	}
	docID := m.docID
	return func() tea.Msg {
		snap, err := fn(docID)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m *Model) create() tea.Cmd {
	if m.docID == "" || m.target.Exists {
		return nil
	}
	docID := m.docID
	return m.navigate(func() (navigation.Result, error) {
		return m.svc.CreateFromPlaceholder(m.ctx, docID, nil)
	})
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	tabs := make([]string, 0, len(m.streams))
	for i, st := range m.streams {
		if i == m.tab {
			tabs = append(tabs, m.styles.ActiveTab.Render(st.Name))
		} else {
			tabs = append(tabs, m.styles.Tab.Render(st.Name))
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n\n")

	if m.snap != nil {
		b.WriteString(RenderMonth(m.styles, m.snap.Stream, m.snap.Grid, m.snap.State.Expanded))
		b.WriteString("\n\n")
	}

	if m.target.FilePath != "" {
		b.WriteString(m.styles.Path.Render(m.target.FilePath))
		if !m.target.Exists {
			b.WriteString(" ")
			b.WriteString(m.styles.Pending.Render("(new, press n to create)"))
		}
		b.WriteString("\n")
	}

	if m.jumping {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	if m.notice.Message != "" {
		style := m.styles.Info
		if m.notice.Level == navigation.LevelError {
			style = m.styles.Error
		}
		b.WriteString(style.Render(m.notice.Message))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// Run starts the browser on the terminal and blocks until it exits.
func Run(ctx context.Context, svc *streamservice.Service, bridge *Bridge) error {
	p := tea.NewProgram(New(ctx, svc, bridge), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
