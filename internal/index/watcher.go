package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/daystreams/internal/datekey"
	"github.com/starford/daystreams/internal/events"
	"github.com/starford/daystreams/internal/storage"
)

// Publisher receives the file events the watcher observes.
type Publisher interface {
	Publish(events.Event)
}

const reconcileDelay = 200 * time.Millisecond

// Watch runs an fsnotify watcher on the vault root until ctx is cancelled.
// Every change to a Markdown file is indexed (daily notes only) and then
// published, so subscribers see the index already updated.
//
// Directories created at runtime are added to the watch list. Rename
// events schedule a reconciliation pass that drops index entries whose
// files are gone and picks up files that appeared under a new name.
func Watch(ctx context.Context, db *DB, store storage.Provider, vaultRoot string, pub Publisher, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", vaultRoot))

	var (
		reconcileTimer *time.Timer
		reconcileCh    <-chan time.Time
	)
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
			return
		}
		reconcileTimer.Reset(reconcileDelay)
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, pub, logger)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			handleEvent(w, ev, db, store, vaultRoot, pub, logger, scheduleReconcile)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func handleEvent(w *fsnotify.Watcher, ev fsnotify.Event, db *DB, store storage.Provider, vaultRoot string, pub Publisher, logger *slog.Logger, scheduleReconcile func()) {
	absPath := ev.Name

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(absPath); err == nil && info.IsDir() {
			if err := addDirsRecursive(w, absPath); err != nil {
				logger.Warn("watcher: add new dir failed",
					slog.String("path", absPath),
					slog.String("error", err.Error()))
			}
			// A stream folder created by navigation may already hold notes.
			indexNewDir(db, store, vaultRoot, absPath, pub, logger)
			return
		}
	}

	if !strings.HasSuffix(absPath, datekey.Extension) {
		return
	}
	rel, err := filepath.Rel(vaultRoot, absPath)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		data, err := store.Read(rel)
		if err != nil {
			logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		if err := IndexFile(db, rel, data); err != nil {
			logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		}
		kind := events.Updated
		if ev.Op&fsnotify.Create != 0 {
			kind = events.Created
		}
		logger.Debug("watcher: changed", slog.String("path", rel), slog.String("op", string(kind)))
		pub.Publish(events.Event{Kind: kind, Path: rel})

	case ev.Op&fsnotify.Remove != 0:
		if err := db.DeleteNote(rel); err != nil {
			logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		}
		pub.Publish(events.Event{Kind: events.Deleted, Path: rel})

	case ev.Op&fsnotify.Rename != 0:
		// fsnotify reports Rename on the old path only; the new name
		// arrives as a Create if it stays inside a watched directory.
		if err := db.DeleteNote(rel); err != nil {
			logger.Warn("watcher: rename delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		}
		pub.Publish(events.Event{Kind: events.Deleted, Path: rel})
		scheduleReconcile()
	}
}

// reconcile compares the index with the vault, deleting stale rows and
// indexing unseen or changed daily notes.
func reconcile(db *DB, store storage.Provider, pub Publisher, logger *slog.Logger) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := store.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		if isDailyNote(m.Path) {
			disk[m.Path] = m.Checksum
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteNote(p); err == nil {
			logger.Debug("reconcile: removed stale", slog.String("path", p))
			pub.Publish(events.Event{Kind: events.Deleted, Path: p})
		}
	}

	for p, cs := range disk {
		old, seen := checksums[p]
		if seen && old == cs {
			continue
		}
		data, err := store.Read(p)
		if err != nil {
			continue
		}
		if err := IndexFile(db, p, data); err != nil {
			continue
		}
		kind := events.Updated
		if !seen {
			kind = events.Created
		}
		logger.Debug("reconcile: indexed", slog.String("path", p))
		pub.Publish(events.Event{Kind: kind, Path: p})
	}
}

func indexNewDir(db *DB, store storage.Provider, vaultRoot, dirPath string, pub Publisher, logger *slog.Logger) {
	_ = filepath.WalkDir(dirPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, datekey.Extension) {
			return nil
		}
		rel, err := filepath.Rel(vaultRoot, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		data, err := store.Read(rel)
		if err != nil {
			return nil
		}
		if err := IndexFile(db, rel, data); err != nil {
			return nil
		}
		logger.Debug("watcher: indexed from new dir", slog.String("path", rel))
		pub.Publish(events.Event{Kind: events.Created, Path: rel})
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher,
// skipping hidden directories.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}
