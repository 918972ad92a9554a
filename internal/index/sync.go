package index

import (
	"log/slog"
	"time"

	"github.com/starford/daystreams/internal/checksum"
	"github.com/starford/daystreams/internal/datekey"
	"github.com/starford/daystreams/internal/parser"
	"github.com/starford/daystreams/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new or changed daily notes are parsed and upserted
//   - notes removed from disk are deleted from the index
//
// Files whose name is not a daily-note name are ignored.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}
	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	indexed := 0
	for _, m := range metas {
		if !isDailyNote(m.Path) {
			continue
		}
		disk[m.Path] = struct{}{}
		if checksums[m.Path] == m.Checksum {
			continue
		}
		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		indexed++
	}

	removed := 0
	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteNote(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		removed++
	}

	logger.Info("sync: done",
		slog.Int("notes", len(disk)),
		slog.Int("indexed", indexed),
		slog.Int("removed", removed))
	return nil
}

// isDailyNote reports whether p is named like a daily note for a real date.
func isDailyNote(p string) bool {
	k, ok := datekey.ParsePath(p)
	return ok && k.Valid()
}

// IndexFile parses a daily note and upserts it. Other files are skipped.
func IndexFile(db *DB, path string, data []byte) error {
	k, ok := datekey.ParsePath(path)
	if !ok || !k.Valid() {
		return nil
	}
	res := parser.Parse(data)
	return db.UpsertNote(NoteRow{
		Path:      path,
		Folder:    datekey.Dir(path),
		Date:      k,
		Title:     res.Title,
		Checksum:  checksum.Sum(data),
		Size:      int64(len(data)),
		Words:     res.Words,
		Tags:      res.Tags,
		UpdatedAt: time.Now(),
	}, res.Body)
}
