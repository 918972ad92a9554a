// Package streams owns stream configuration: matching files to streams,
// persisting the settings blob and keeping per-stream commands in sync.
package streams

import (
	"github.com/starford/daystreams/internal/datekey"
	"github.com/starford/daystreams/internal/models"
)

// Match returns the first stream, in configured order, whose folder is a
// segment prefix of filePath. Streams rooted at the vault root never match;
// otherwise they would claim every file.
func Match(filePath string, streams []models.Stream) (models.Stream, bool) {
	fileSegs := datekey.Segments(filePath)
	for _, s := range streams {
		folderSegs := datekey.Segments(s.Folder)
		if len(folderSegs) == 0 || len(folderSegs) >= len(fileSegs) {
			continue
		}
		if hasPrefix(fileSegs, folderSegs) {
			return s, true
		}
	}
	return models.Stream{}, false
}

func hasPrefix(segs, prefix []string) bool {
	for i, p := range prefix {
		if segs[i] != p {
			return false
		}
	}
	return true
}

// Find returns the stream with the given id.
func Find(id string, streams []models.Stream) (models.Stream, bool) {
	for _, s := range streams {
		if s.ID == id {
			return s, true
		}
	}
	return models.Stream{}, false
}

// IsDailyNote reports whether path is a daily note sitting directly in
// the stream's folder, and returns its date.
func IsDailyNote(path string, s models.Stream) (datekey.Key, bool) {
	if datekey.Dir(path) != datekey.NormalizeFolderPath(s.Folder) {
		return datekey.Key{}, false
	}
	return datekey.ParsePath(path)
}
