package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/daystreams/internal/datekey"
	"github.com/starford/daystreams/internal/navigation"
	"github.com/starford/daystreams/internal/storage"
	"github.com/starford/daystreams/internal/testutil"
)

func createTestModel(t *testing.T, names ...string) (*Model, storage.Provider) {
	t.Helper()
	bridge := NewBridge(64)
	env := testutil.TestService(t, bridge, bridge, names)
	return New(context.Background(), env.Svc, bridge), env.Files
}

// run feeds msg to the model and then the message its command produces.
func run(t *testing.T, m *Model, msg tea.Msg) {
	t.Helper()
	_, cmd := m.Update(msg)
	if cmd == nil {
		return
	}
	// Commands started by keys resolve to a single result message.
	out := cmd()
	if _, ok := out.(tea.QuitMsg); ok {
		return
	}
	m.Update(out)
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func openToday(t *testing.T, m *Model) {
	t.Helper()
	m.Update(m.openToday()())
}

func TestModel_OpenTodayShowsPlaceholder(t *testing.T) {
	m, fs := createTestModel(t, "Journal")
	openToday(t, m)

	if m.target.Date != datekey.New(2024, time.February, 10) {
		t.Errorf("target = %s", m.target.Date)
	}
	if m.snap == nil {
		t.Fatal("expected a calendar widget for the placeholder")
	}
	view := m.View()
	for _, want := range []string{"Journal", "February 2024", "Journal/2024-02-10.md", "press n to create"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if fs.Exists("Journal/2024-02-10.md") {
		t.Error("opening today must not create the file")
	}
}

func TestModel_StepDays(t *testing.T) {
	m, _ := createTestModel(t, "Journal")
	openToday(t, m)

	run(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if got := m.target.Date.String(); got != "2024-02-11" {
		t.Errorf("after right = %s", got)
	}
	run(t, m, keyRunes("k"))
	if got := m.target.Date.String(); got != "2024-02-04" {
		t.Errorf("after up = %s", got)
	}
	if m.snap == nil || m.snap.State.CurrentViewedDate.String() != "2024-02-04" {
		t.Errorf("widget not following navigation: %+v", m.snap)
	}
}

func TestModel_MonthShift(t *testing.T) {
	m, _ := createTestModel(t, "Journal")
	openToday(t, m)

	run(t, m, keyRunes("]"))
	if got := m.snap.State.CurrentMonth.String(); got != "2024-03" {
		t.Errorf("month = %s, want 2024-03", got)
	}
	if !strings.Contains(m.View(), "March 2024") {
		t.Errorf("view not showing March:\n%s", m.View())
	}

	run(t, m, keyRunes("m"))
	if got := m.snap.State.CurrentMonth.String(); got != "2024-02" {
		t.Errorf("month = %s, want 2024-02", got)
	}
}

func TestModel_CreateFromPlaceholder(t *testing.T) {
	m, fs := createTestModel(t, "Journal")
	openToday(t, m)

	run(t, m, keyRunes("n"))
	if !fs.Exists("Journal/2024-02-10.md") {
		t.Fatal("note not created")
	}
	if !m.target.Exists {
		t.Error("target should exist after create")
	}
	if !strings.Contains(m.View(), "created Journal/2024-02-10.md") {
		t.Errorf("missing created notice:\n%s", m.View())
	}

	// Creating again is a no-op.
	_, cmd := m.Update(keyRunes("n"))
	if cmd != nil {
		t.Error("expected no command for an existing note")
	}
}

func TestModel_GoToDate(t *testing.T) {
	m, _ := createTestModel(t, "Journal")
	openToday(t, m)

	m.Update(keyRunes("g"))
	if !m.jumping || !strings.Contains(m.View(), "go to:") {
		t.Fatalf("prompt not shown:\n%s", m.View())
	}
	m.Update(keyRunes("2024-03-15"))
	run(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.jumping {
		t.Error("prompt should close after enter")
	}
	if got := m.target.Date.String(); got != "2024-03-15" {
		t.Errorf("target = %s, want 2024-03-15", got)
	}
	if m.snap == nil || m.snap.State.CurrentViewedDate.String() != "2024-03-15" {
		t.Errorf("widget not on the selected day: %+v", m.snap)
	}
	if !strings.Contains(m.View(), "March 2024") {
		t.Errorf("view not showing March:\n%s", m.View())
	}
}

func TestModel_GoToDateRejectsBadInput(t *testing.T) {
	m, _ := createTestModel(t, "Journal")
	openToday(t, m)

	m.Update(keyRunes("g"))
	m.Update(keyRunes("soon"))
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("expected no navigation for a bad date")
	}
	if m.notice.Level != navigation.LevelError || m.target.Date.String() != "2024-02-10" {
		t.Errorf("notice = %+v, target = %s", m.notice, m.target.Date)
	}

	m.Update(keyRunes("g"))
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.jumping {
		t.Error("esc should close the prompt")
	}
}

func TestModel_SwitchStreams(t *testing.T) {
	m, _ := createTestModel(t, "Journal", "Work")
	openToday(t, m)

	run(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.target.FilePath != "Work/2024-02-10.md" {
		t.Errorf("path = %s", m.target.FilePath)
	}
	run(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.target.FilePath != "Journal/2024-02-10.md" {
		t.Errorf("path = %s", m.target.FilePath)
	}
}

func TestModel_NoStreams(t *testing.T) {
	m, _ := createTestModel(t)
	m.Init()
	if m.notice.Level != navigation.LevelError {
		t.Errorf("notice = %+v", m.notice)
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRight}); cmd != nil {
		t.Error("expected no command without streams")
	}
}

func TestModel_Quit(t *testing.T) {
	m, _ := createTestModel(t, "Journal")
	_, cmd := m.Update(keyRunes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestBridge_DeliversAndDrops(t *testing.T) {
	b := NewBridge(1)
	b.Notify(navigation.Notice{Level: navigation.LevelInfo, Message: "first"})
	b.Notify(navigation.Notice{Level: navigation.LevelInfo, Message: "second"}) // dropped, must not block

	msg := b.Wait()()
	n, ok := msg.(noticeMsg)
	if !ok || n.notice.Message != "first" {
		t.Errorf("msg = %#v", msg)
	}

	m, _ := createTestModel(t, "Journal")
	_, cmd := m.Update(n)
	if cmd == nil {
		t.Error("bridge wait should be re-armed")
	}
	if !strings.Contains(m.View(), "first") {
		t.Error("notice not shown")
	}
}
