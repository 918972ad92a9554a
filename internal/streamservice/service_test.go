package streamservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/daystreams/internal/apperr"
	"github.com/starford/daystreams/internal/datekey"
	"github.com/starford/daystreams/internal/events"
	"github.com/starford/daystreams/internal/index"
	"github.com/starford/daystreams/internal/models"
	"github.com/starford/daystreams/internal/navigation"
	"github.com/starford/daystreams/internal/storage"
	"github.com/starford/daystreams/internal/streams"
	"github.com/starford/daystreams/internal/workspace"
)

func clock() time.Time {
	return time.Date(2024, time.February, 10, 9, 30, 0, 0, time.Local)
}

type env struct {
	vault   string
	svc     *Service
	hub     *events.Hub
	journal models.Stream
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	vault := t.TempDir()
	fs, err := storage.NewFS(vault)
	if err != nil {
		t.Fatal(err)
	}
	store, err := streams.Open(filepath.Join(t.TempDir(), "settings.yaml"), logger)
	if err != nil {
		t.Fatal(err)
	}
	journal, err := store.Add("Journal", "Journal")
	if err != nil {
		t.Fatal(err)
	}
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	hub := events.NewHub()
	svc := New(context.Background(), store, fs, db, hub, nil, nil, logger,
		WithClock(clock), WithPageSize(2))
	t.Cleanup(svc.Close)
	return &env{vault: vault, svc: svc, hub: hub, journal: journal}
}

func (e *env) write(t *testing.T, rel, content string) {
	t.Helper()
	p := filepath.Join(e.vault, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestOpenTodayThenCreateFromPlaceholder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.svc.OpenToday(ctx, e.journal.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != navigation.OutcomePlaceholderOpened {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if res.Target.FilePath != "Journal/2024-02-10.md" || res.Target.Exists {
		t.Fatalf("target = %+v", res.Target)
	}

	created, err := e.svc.CreateFromPlaceholder(ctx, res.DocumentID, []byte("# Saturday\nlong walk #outside\n"))
	if err != nil {
		t.Fatal(err)
	}
	if created.Outcome != navigation.OutcomeCreated || created.DocumentID != res.DocumentID {
		t.Fatalf("created = %+v", created)
	}
	doc, ok := e.svc.ActiveDocument()
	if !ok || doc.Binding.Kind != workspace.KindNote {
		t.Fatalf("active = %+v", doc)
	}

	note, err := e.svc.ReadNote(ctx, e.journal.ID, datekey.New(2024, time.February, 10))
	if err != nil {
		t.Fatal(err)
	}
	if note.Title != "Saturday" || len(note.Tags) != 1 || note.Tags[0] != "outside" {
		t.Fatalf("note = %+v", note)
	}

	stats, err := e.svc.Stats(ctx, e.journal.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Notes != 1 || stats.Streak != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestUnknownStream(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Navigate(context.Background(), "missing", datekey.New(2024, time.February, 1))
	if !errors.Is(err, apperr.ErrStreamNotFound) {
		t.Fatalf("err = %v, want ErrStreamNotFound", err)
	}
	if _, err := e.svc.Search(context.Background(), "missing", "x", 5); !errors.Is(err, apperr.ErrStreamNotFound) {
		t.Fatalf("search err = %v", err)
	}
}

func TestCommandsFollowStreams(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	todayID := streams.CommandID(streams.CommandOpenToday, e.journal.ID)
	viewID := streams.CommandID(streams.CommandOpenView, e.journal.ID)
	if len(e.svc.Commands()) != 2 {
		t.Fatalf("commands = %+v", e.svc.Commands())
	}

	res, err := e.svc.ExecuteCommand(ctx, viewID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != navigation.OutcomeStreamView {
		t.Fatalf("outcome = %s", res.Outcome)
	}

	off := false
	if _, err := e.svc.UpdateStream(e.journal.ID, StreamPatch{AddTodayCommand: &off, ShowTodayInRibbon: &off}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.ExecuteCommand(ctx, todayID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStreamViewPaging(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.write(t, "Journal/2024-02-01.md", "one")
	e.write(t, "Journal/2024-02-02.md", "two")
	e.write(t, "Journal/2024-02-03.md", "three")

	page, err := e.svc.OpenStreamView(ctx, e.journal.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Entries) != 2 || !page.HasMore {
		t.Fatalf("first page = %+v", page)
	}
	if page.Entries[0].Path != "Journal/2024-02-03.md" {
		t.Fatalf("newest = %s", page.Entries[0].Path)
	}

	more, err := e.svc.LoadMore(ctx, page.DocumentID)
	if err != nil {
		t.Fatal(err)
	}
	if len(more.Entries) != 1 || more.HasMore {
		t.Fatalf("second page = %+v", more)
	}

	again, err := e.svc.OpenStreamView(ctx, e.journal.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.DocumentID != page.DocumentID || len(again.Entries) != 3 {
		t.Fatalf("reopened = %+v", again)
	}
}

func TestStreamViewReloadsOnFileEvent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.write(t, "Journal/2024-02-01.md", "one")

	page, err := e.svc.OpenStreamView(ctx, e.journal.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Entries) != 1 {
		t.Fatalf("entries = %d", len(page.Entries))
	}

	e.write(t, "Journal/2024-02-05.md", "five")
	e.hub.Publish(events.Event{Kind: events.Created, Path: "Journal/2024-02-05.md"})

	got, err := e.svc.ViewEntries(ctx, page.DocumentID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Entries) != 2 || got.Entries[0].Path != "Journal/2024-02-05.md" {
		t.Fatalf("entries = %+v", got.Entries)
	}
}

func TestStreamViewRefreshKeepsLoadedPages(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.write(t, "Journal/2024-02-01.md", "one")
	e.write(t, "Journal/2024-02-02.md", "two")
	e.write(t, "Journal/2024-02-03.md", "three")

	page, err := e.svc.OpenStreamView(ctx, e.journal.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.LoadMore(ctx, page.DocumentID); err != nil {
		t.Fatal(err)
	}

	e.write(t, "Journal/2024-02-04.md", "four")
	e.hub.Publish(events.Event{Kind: events.Created, Path: "Journal/2024-02-04.md"})

	got, err := e.svc.ViewEntries(ctx, page.DocumentID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Entries) != 4 || got.Entries[0].Path != "Journal/2024-02-04.md" || got.HasMore {
		t.Fatalf("entries after refresh = %+v", got)
	}
}

func TestRemovingStreamClosesItsView(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	page, err := e.svc.OpenStreamView(ctx, e.journal.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.svc.RemoveStream(e.journal.ID); err != nil {
		t.Fatal(err)
	}
	if docs := e.svc.Documents(); len(docs) != 0 {
		t.Fatalf("documents = %+v", docs)
	}
	if _, err := e.svc.ViewEntries(ctx, page.DocumentID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if len(e.svc.Commands()) != 0 {
		t.Fatalf("commands = %+v", e.svc.Commands())
	}
	if n := e.hub.Count(); n != 0 {
		t.Fatalf("subscriptions = %d", n)
	}
}

func TestChangedFolderRebuildsView(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.write(t, "Journal/2024-02-01.md", "old")
	e.write(t, "Diary/2024-02-07.md", "new")

	page, err := e.svc.OpenStreamView(ctx, e.journal.ID)
	if err != nil {
		t.Fatal(err)
	}
	folder := "Diary"
	if _, err := e.svc.UpdateStream(e.journal.ID, StreamPatch{Folder: &folder}); err != nil {
		t.Fatal(err)
	}
	got, err := e.svc.LoadMore(ctx, page.DocumentID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Entries) != 1 || got.Entries[0].Path != "Diary/2024-02-07.md" {
		t.Fatalf("entries = %+v", got.Entries)
	}
}

func TestNoteWritesAndConflicts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	day := datekey.New(2024, time.February, 3)

	n, err := e.svc.CreateNote(ctx, e.journal.ID, day, []byte("draft about lanterns"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.CreateNote(ctx, e.journal.ID, day, []byte("again")); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	if _, err := e.svc.WriteNote(ctx, e.journal.ID, day, []byte("x"), "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if _, err := e.svc.WriteNote(ctx, e.journal.ID, day, []byte("final text about lanterns"), n.Checksum); err != nil {
		t.Fatal(err)
	}

	hits, err := e.svc.Search(ctx, e.journal.ID, "lanterns", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Path != "Journal/2024-02-03.md" {
		t.Fatalf("hits = %+v", hits)
	}
}

func TestInvalidDateRejected(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.ReadNote(context.Background(), e.journal.ID, datekey.Key{Year: 2023, Month: time.February, Day: 29})
	if !errors.Is(err, apperr.ErrInvalidDate) {
		t.Fatalf("err = %v, want ErrInvalidDate", err)
	}
}

func TestWidgetMonthNavigation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res, err := e.svc.Navigate(ctx, e.journal.ID, datekey.New(2024, time.January, 31))
	if err != nil {
		t.Fatal(err)
	}

	snap, err := e.svc.ShiftMonth(ctx, res.DocumentID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if snap.State.CurrentMonth != (datekey.Month{Year: 2024, Month: time.February}) || len(snap.Grid.Days) != 29 {
		t.Fatalf("snapshot = %+v", snap.State)
	}
	// Viewing another month leaves the viewed date alone.
	if snap.State.CurrentViewedDate != datekey.New(2024, time.January, 31) {
		t.Fatalf("viewed = %s", snap.State.CurrentViewedDate)
	}

	snap, err = e.svc.SetExpanded(res.DocumentID, false)
	if err != nil {
		t.Fatal(err)
	}
	if snap.State.Expanded {
		t.Fatal("still expanded")
	}
	if _, err := e.svc.Widget("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestStreak(t *testing.T) {
	today := datekey.New(2024, time.March, 2)
	d := func(m time.Month, day int) datekey.Key { return datekey.New(2024, m, day) }
	tests := []struct {
		name  string
		dates []datekey.Key
		want  int
	}{
		{"none", nil, 0},
		{"today only", []datekey.Key{today}, 1},
		{"across month end", []datekey.Key{d(time.February, 28), d(time.February, 29), d(time.March, 1), today}, 4},
		{"ending yesterday", []datekey.Key{d(time.February, 29), d(time.March, 1)}, 2},
		{"gap", []datekey.Key{d(time.February, 27), d(time.March, 1)}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := streak(tt.dates, today); got != tt.want {
				t.Errorf("streak = %d, want %d", got, tt.want)
			}
		})
	}
}
