package streams

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/daystreams/internal/apperr"
	"github.com/starford/daystreams/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMatch_ConfiguredOrderWins(t *testing.T) {
	outer := models.Stream{ID: "outer", Folder: "a"}
	inner := models.Stream{ID: "inner", Folder: "a/b"}

	got, ok := Match("a/b/2024-01-01.md", []models.Stream{outer, inner})
	if !ok || got.ID != "outer" {
		t.Errorf("outer first: got %q, %v", got.ID, ok)
	}
	got, ok = Match("a/b/2024-01-01.md", []models.Stream{inner, outer})
	if !ok || got.ID != "inner" {
		t.Errorf("inner first: got %q, %v", got.ID, ok)
	}
}

func TestMatch_RootStreamNeverMatches(t *testing.T) {
	root := models.Stream{ID: "root", Folder: ""}
	slash := models.Stream{ID: "slash", Folder: "/"}
	for _, p := range []string{"2024-01-01.md", "a/2024-01-01.md", "x/y/z.md"} {
		if got, ok := Match(p, []models.Stream{root, slash}); ok {
			t.Errorf("Match(%q) = %q, want no match", p, got.ID)
		}
	}
}

func TestMatch_SegmentsNotStringPrefix(t *testing.T) {
	s := models.Stream{ID: "work", Folder: "work"}
	if _, ok := Match("workshop/2024-01-01.md", []models.Stream{s}); ok {
		t.Error("folder 'work' must not match 'workshop/...'")
	}
	if _, ok := Match(`work\2024-01-01.md`, []models.Stream{s}); !ok {
		t.Error("backslash paths should be normalised before matching")
	}
}

func TestMatch_NoStreams(t *testing.T) {
	if _, ok := Match("a/2024-01-01.md", nil); ok {
		t.Error("expected no match")
	}
}

func TestIsDailyNote(t *testing.T) {
	s := models.Stream{ID: "j", Folder: "journal"}
	if _, ok := IsDailyNote("journal/2024-01-01.md", s); !ok {
		t.Error("direct child should be a daily note")
	}
	if _, ok := IsDailyNote("journal/old/2024-01-01.md", s); ok {
		t.Error("nested file is not a daily note of the stream")
	}
	if _, ok := IsDailyNote("journal/notes.md", s); ok {
		t.Error("non-date file is not a daily note")
	}
}

func TestStore_AddUpdateRemovePersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store, err := Open(path, discardLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	a, err := store.Add("Journal", "/journal/")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if a.ID == "" || a.Folder != "journal" {
		t.Errorf("added stream = %+v", a)
	}
	b, _ := store.Add("Journal", "work")
	if a.ID == b.ID {
		t.Error("ids must be unique")
	}

	if _, err := store.Update(a.ID, func(s *models.Stream) { s.Name = "Diary"; s.ID = "hijack" }); err != nil {
		t.Fatalf("Update: %v", err)
	}

	reopened, err := Open(path, discardLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok := reopened.Stream(a.ID)
	if !ok || got.Name != "Diary" {
		t.Errorf("persisted stream = %+v, %v", got, ok)
	}

	if err := store.Remove(a.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := store.Remove(a.ID); !errors.Is(err, apperr.ErrStreamNotFound) {
		t.Errorf("second remove err = %v", err)
	}
	if len(store.Streams()) != 1 {
		t.Errorf("streams = %d, want 1", len(store.Streams()))
	}
}

func TestStore_InvalidStreamRejected(t *testing.T) {
	store, _ := Open(filepath.Join(t.TempDir(), "s.yaml"), discardLogger())
	if _, err := store.Add("", "x"); err == nil {
		t.Error("empty name should fail validation")
	}
	if _, err := store.Add("Up", "../escape"); err == nil {
		t.Error("dot-dot folder should fail validation")
	}
	if len(store.Streams()) != 0 {
		t.Error("rejected streams must not be stored")
	}
}

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStore_AssignedIDSurvivesReopen(t *testing.T) {
	path := writeSettings(t, "streams:\n  - name: Journal\n    folder: Journal\n")

	first, err := Open(path, discardLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	second, err := Open(path, discardLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	id := first.Streams()[0].ID
	if id == "" || second.Streams()[0].ID != id {
		t.Fatalf("ids differ across opens: %q vs %q", id, second.Streams()[0].ID)
	}
	if err := second.Remove(id); err != nil {
		t.Errorf("Remove(%s) on reopened store: %v", id, err)
	}
}

func TestStore_DuplicateIDReassigned(t *testing.T) {
	path := writeSettings(t, `streams:
  - id: X
    name: Journal
    folder: Journal
  - id: X
    name: Work
    folder: Work
`)
	store, err := Open(path, discardLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	list := store.Streams()
	if len(list) != 2 || list[0].ID != "X" || list[1].ID == "X" || list[1].ID == "" {
		t.Fatalf("streams = %+v", list)
	}
	work, ok := store.Stream(list[1].ID)
	if !ok || work.Name != "Work" {
		t.Errorf("second stream not reachable by its new id: %+v, %v", work, ok)
	}

	reopened, err := Open(path, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if got := reopened.Streams()[1].ID; got != list[1].ID {
		t.Errorf("reassigned id not persisted: %q vs %q", got, list[1].ID)
	}
}

func TestStore_InvalidStreamInFileRejected(t *testing.T) {
	tests := map[string]string{
		"dot-dot folder": "streams:\n  - id: a\n    name: Up\n    folder: ../escape\n",
		"empty name":     "streams:\n  - id: a\n    folder: Journal\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Open(writeSettings(t, body), discardLogger()); err == nil {
				t.Error("expected load error")
			}
		})
	}
}

func TestStore_OverrideStaysInMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store, _ := Open(path, discardLogger())
	if _, err := store.Add("Journal", "Journal"); err != nil {
		t.Fatal(err)
	}

	store.OverrideReuseCurrentTab(true)
	if !store.Settings().ReuseCurrentTab {
		t.Fatal("override not applied")
	}
	if _, err := store.Add("Work", "Work"); err != nil {
		t.Fatal(err)
	}
	reopened, _ := Open(path, discardLogger())
	if reopened.Settings().ReuseCurrentTab {
		t.Error("override leaked into the settings file")
	}

	if err := store.SetReuseCurrentTab(false); err != nil {
		t.Fatal(err)
	}
	if store.Settings().ReuseCurrentTab {
		t.Error("explicit set should replace the override")
	}
}

func TestStore_RemoveCascadesToCommands(t *testing.T) {
	store, _ := Open(filepath.Join(t.TempDir(), "s.yaml"), discardLogger())
	cmds := NewCommands()
	store.Subscribe(func(s models.Settings) { cmds.Sync(s.Streams) })

	a, _ := store.Add("A", "a")
	b, _ := store.Add("B", "b")
	if n := len(cmds.ForStream(a.ID)); n != 2 {
		t.Fatalf("commands for a = %d, want 2", n)
	}

	_ = store.Remove(a.ID)
	if n := len(cmds.ForStream(a.ID)); n != 0 {
		t.Errorf("commands for removed stream = %d, want 0", n)
	}
	if _, ok := cmds.Get(CommandID(CommandOpenToday, a.ID)); ok {
		t.Error("removed stream command still registered")
	}
	if n := len(cmds.ForStream(b.ID)); n != 2 {
		t.Errorf("commands for b = %d, want 2", n)
	}
}

func TestCommands_FlagsControlRegistration(t *testing.T) {
	s := models.NewStream("J", "j")
	s.ID = "j1"
	s.AddViewCommand = false
	s.ShowViewInRibbon = false

	cmds := NewCommands()
	cmds.Sync([]models.Stream{s})
	if _, ok := cmds.Get(CommandID(CommandOpenView, "j1")); ok {
		t.Error("view command should not be registered")
	}
	if len(cmds.Ribbon()) != 1 {
		t.Errorf("ribbon = %d, want 1", len(cmds.Ribbon()))
	}

	cmds.Unregister("j1")
	if len(cmds.List()) != 0 {
		t.Error("Unregister should drop everything")
	}
}
