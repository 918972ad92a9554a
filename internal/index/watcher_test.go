package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/daystreams/internal/events"
	"github.com/starford/daystreams/internal/storage"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingPublisher) saw(kind events.Kind, path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.Kind == kind && ev.Path == path {
			return true
		}
	}
	return false
}

func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store, testDB(t)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatch(t *testing.T, db *DB, store storage.Provider, vaultDir string, pub Publisher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, db, store, vaultDir, pub, quietLogger())
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
}

func TestWatcher_NewDailyNoteIndexedAndPublished(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	_ = os.MkdirAll(filepath.Join(vaultDir, "Journal"), 0o755)
	pub := &recordingPublisher{}
	startWatch(t, db, store, vaultDir, pub)

	_ = os.WriteFile(filepath.Join(vaultDir, "Journal", "2024-02-01.md"), []byte("# New"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("Journal/2024-02-01.md")
		return cs != ""
	}, "new daily note not indexed")
	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		return pub.saw(events.Created, "Journal/2024-02-01.md")
	}, "expected created event")
}

func TestWatcher_OtherMarkdownPublishedNotIndexed(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	pub := &recordingPublisher{}
	startWatch(t, db, store, vaultDir, pub)

	_ = os.WriteFile(filepath.Join(vaultDir, "ideas.md"), []byte("x"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return pub.saw(events.Created, "ideas.md")
	}, "expected created event for ideas.md")
	if cs, _ := db.GetChecksum("ideas.md"); cs != "" {
		t.Error("non-daily note indexed")
	}
}

func TestWatcher_NewDirWatched(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	pub := &recordingPublisher{}
	startWatch(t, db, store, vaultDir, pub)

	sub := filepath.Join(vaultDir, "Work", "log")
	_ = os.MkdirAll(sub, 0o755)
	time.Sleep(200 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "2024-03-01.md"), []byte("# Deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("Work/log/2024-03-01.md")
		return cs != ""
	}, "note in new subdir not indexed")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	_ = os.WriteFile(filepath.Join(vaultDir, "2024-02-01.md"), []byte("# Delete Me"), 0o644)
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}
	if cs, _ := db.GetChecksum("2024-02-01.md"); cs == "" {
		t.Fatal("precondition: file should be indexed")
	}

	pub := &recordingPublisher{}
	startWatch(t, db, store, vaultDir, pub)
	_ = os.Remove(filepath.Join(vaultDir, "2024-02-01.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("2024-02-01.md")
		return cs == "" && pub.saw(events.Deleted, "2024-02-01.md")
	}, "deleted note still in index or no deleted event")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	_ = os.WriteFile(filepath.Join(vaultDir, "2024-02-01.md"), []byte("# Rename"), 0o644)
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}

	startWatch(t, db, store, vaultDir, &recordingPublisher{})
	_ = os.Rename(filepath.Join(vaultDir, "2024-02-01.md"), filepath.Join(vaultDir, "2024-02-02.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum("2024-02-01.md")
		newCS, _ := db.GetChecksum("2024-02-02.md")
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed")
}
