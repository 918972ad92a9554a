// Package testutil provides shared test helpers for setting up vaults, indexes and services.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/daystreams/internal/calendar"
	"github.com/starford/daystreams/internal/events"
	"github.com/starford/daystreams/internal/index"
	"github.com/starford/daystreams/internal/models"
	"github.com/starford/daystreams/internal/navigation"
	"github.com/starford/daystreams/internal/storage"
	"github.com/starford/daystreams/internal/streams"
	"github.com/starford/daystreams/internal/streamservice"
)

// Clock is a fixed clock at 2024-02-10 09:30 local time.
func Clock() time.Time {
	return time.Date(2024, time.February, 10, 9, 30, 0, 0, time.Local)
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "daystreams-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage provider.
func TestVault(t *testing.T) (string, *storage.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	fs, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, fs
}

// TestStreams opens a settings store in a temp dir holding one stream per
// name, each rooted at a folder of the same name.
func TestStreams(t *testing.T, names ...string) (*streams.Store, []models.Stream) {
	t.Helper()
	store, err := streams.Open(filepath.Join(t.TempDir(), "settings.yaml"), Logger())
	if err != nil {
		t.Fatal(err)
	}
	list := make([]models.Stream, 0, len(names))
	for _, name := range names {
		st, err := store.Add(name, name)
		if err != nil {
			t.Fatal(err)
		}
		list = append(list, st)
	}
	return store, list
}

// Env is a fully wired service over a temp vault.
type Env struct {
	Vault   string
	Files   *storage.FS
	Store   *streams.Store
	Streams []models.Stream
	DB      *index.DB
	Hub     *events.Hub
	Svc     *streamservice.Service
}

// TestService builds a service on Clock with one stream per name. render
// and notifier may be nil.
func TestService(t *testing.T, render calendar.Renderer, notifier navigation.Notifier, names []string, opts ...streamservice.Option) *Env {
	t.Helper()
	vault, fs := TestVault(t)
	store, list := TestStreams(t, names...)
	db := TestDB(t)
	hub := events.NewHub()

	opts = append([]streamservice.Option{streamservice.WithClock(Clock)}, opts...)
	svc := streamservice.New(context.Background(), store, fs, db, hub, render, notifier, Logger(), opts...)
	t.Cleanup(svc.Close)

	return &Env{
		Vault:   vault,
		Files:   fs,
		Store:   store,
		Streams: list,
		DB:      db,
		Hub:     hub,
		Svc:     svc,
	}
}
