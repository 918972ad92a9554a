package index

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/daystreams/internal/datekey"
	"github.com/starford/daystreams/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "daystreams-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func note(path string, body string) (NoteRow, string) {
	k, _ := datekey.ParsePath(path)
	return NoteRow{
		Path:      path,
		Folder:    datekey.Dir(path),
		Date:      k,
		Checksum:  path,
		Size:      int64(len(body)),
		Words:     len(body) / 5,
		UpdatedAt: time.Now(),
	}, body
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM daily_notes`).Scan(&count); err != nil {
		t.Fatalf("daily_notes table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row, body := note("Journal/2024-02-01.md", "hello")
	row.Checksum = "abc123"
	if err := db.UpsertNote(row, body); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	cs, err := db.GetChecksum("Journal/2024-02-01.md")
	if err != nil {
		t.Fatal(err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want abc123", cs)
	}

	row.Checksum = "def456"
	if err := db.UpsertNote(row, body); err != nil {
		t.Fatal(err)
	}
	cs, _ = db.GetChecksum("Journal/2024-02-01.md")
	if cs != "def456" {
		t.Errorf("checksum after update = %q", cs)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestDeleteNote(t *testing.T) {
	db := testDB(t)
	row, body := note("Journal/2024-02-01.md", "x")
	_ = db.UpsertNote(row, body)
	if err := db.DeleteNote(row.Path); err != nil {
		t.Fatal(err)
	}
	if cs, _ := db.GetChecksum(row.Path); cs != "" {
		t.Errorf("deleted note still has checksum %q", cs)
	}
	if err := db.DeleteNote("never/indexed.md"); err != nil {
		t.Errorf("delete of unknown path: %v", err)
	}
}

func TestStatsAndDates(t *testing.T) {
	db := testDB(t)
	for _, p := range []string{"Journal/2024-02-03.md", "Journal/2024-01-15.md", "Journal/2024-02-01.md", "Work/2024-03-01.md"} {
		row, body := note(p, "0123456789")
		if err := db.UpsertNote(row, body); err != nil {
			t.Fatal(err)
		}
	}

	st, err := db.Stats("Journal")
	if err != nil {
		t.Fatal(err)
	}
	if st.Notes != 3 || st.Bytes != 30 || st.Words != 6 {
		t.Errorf("stats = %+v", st)
	}
	if st.First != datekey.New(2024, time.January, 15) || st.Last != datekey.New(2024, time.February, 3) {
		t.Errorf("range = %s..%s", st.First, st.Last)
	}

	dates, err := db.Dates("Journal")
	if err != nil {
		t.Fatal(err)
	}
	if len(dates) != 3 || dates[0] != datekey.New(2024, time.January, 15) {
		t.Errorf("dates = %v", dates)
	}

	empty, err := db.Stats("Nothing")
	if err != nil {
		t.Fatal(err)
	}
	if empty.Notes != 0 || !empty.First.IsZero() {
		t.Errorf("empty stats = %+v", empty)
	}
}

func TestSearchScopedToFolder(t *testing.T) {
	db := testDB(t)
	a, body := note("Journal/2024-02-01.md", "uniqueword appears here")
	_ = db.UpsertNote(a, body)
	b, body := note("Work/2024-02-01.md", "uniqueword in another stream")
	_ = db.UpsertNote(b, body)

	results, err := db.Search("Journal", "uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "Journal/2024-02-01.md" {
		t.Errorf("results = %+v", results)
	}
	if results[0].Date != datekey.New(2024, time.February, 1) {
		t.Errorf("date = %s", results[0].Date)
	}
}

func TestSyncIndexesOnlyDailyNotes(t *testing.T) {
	db := testDB(t)
	dir := t.TempDir()
	for rel, content := range map[string]string{
		"Journal/2024-02-01.md": "---\ntitle: One\n---\nbody",
		"Journal/ideas.md":      "not a daily note",
		"Journal/2024-02-30.md": "impossible",
		"2024-02-02.md":         "root level",
	} {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		_ = os.MkdirAll(filepath.Dir(p), 0o755)
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := Sync(db, store, logger); err != nil {
		t.Fatal(err)
	}
	all, _ := db.AllChecksums()
	if len(all) != 2 {
		t.Fatalf("indexed = %v, want 2 daily notes", all)
	}
	if _, ok := all["Journal/2024-02-01.md"]; !ok {
		t.Error("Journal note missing")
	}

	if err := store.Delete("Journal/2024-02-01.md"); err != nil {
		t.Fatal(err)
	}
	if err := Sync(db, store, logger); err != nil {
		t.Fatal(err)
	}
	all, _ = db.AllChecksums()
	if len(all) != 1 {
		t.Fatalf("after delete indexed = %v", all)
	}
}
