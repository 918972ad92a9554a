package streams

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/starford/daystreams/internal/apperr"
	"github.com/starford/daystreams/internal/datekey"
	"github.com/starford/daystreams/internal/models"
)

// ChangeFunc is called with a copy of the settings after every change.
type ChangeFunc func(models.Settings)

// Store persists the settings blob as YAML and serialises edits to it.
type Store struct {
	path   string
	logger *slog.Logger

	mu        sync.RWMutex
	settings  models.Settings
	reuseTab  *bool
	listeners []ChangeFunc
}

// Open loads settings from path. A missing file yields default settings;
// the file is written on the first change. Streams loaded without an id, or
// with an id already taken by an earlier stream, get a fresh one and the
// file is rewritten so the id stays stable across runs.
func Open(path string, logger *slog.Logger) (*Store, error) {
	s := &Store{
		path:     path,
		logger:   logger.With(slog.String("component", "streams")),
		settings: models.DefaultSettings(),
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Info("settings file not found, using defaults", slog.String("path", path))
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("streams: read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.settings); err != nil {
		return nil, fmt.Errorf("streams: parse settings %s: %w", path, err)
	}
	assigned := false
	seen := make(map[string]bool, len(s.settings.Streams))
	for i := range s.settings.Streams {
		st := &s.settings.Streams[i]
		st.Folder = datekey.NormalizeFolderPath(st.Folder)
		if st.ID == "" || seen[st.ID] {
			if st.ID != "" {
				s.logger.Warn("duplicate stream id, assigning a new one",
					slog.String("id", st.ID), slog.String("name", st.Name))
			}
			st.ID = newID()
			assigned = true
		}
		seen[st.ID] = true
		if err := ValidateStream(*st); err != nil {
			return nil, fmt.Errorf("streams: load %s: stream %d: %w", path, i, err)
		}
	}
	if assigned {
		if err := s.saveLocked(s.settings); err != nil {
			return nil, fmt.Errorf("streams: persist assigned ids: %w", err)
		}
	}
	return s, nil
}

// Subscribe registers fn to run after every change. Listeners run outside
// the store lock.
func (s *Store) Subscribe(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Settings returns a copy of the current settings with any in-memory
// override applied.
func (s *Store) Settings() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.effectiveLocked()
}

// OverrideReuseCurrentTab sets the tab-reuse switch for this process only.
// The settings file keeps its own value.
func (s *Store) OverrideReuseCurrentTab(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reuseTab = &v
}

// Streams returns the configured streams in order.
func (s *Store) Streams() []models.Stream {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.settings.Streams)
}

// Stream returns the stream with id.
func (s *Store) Stream(id string) (models.Stream, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Find(id, s.settings.Streams)
}

// Add creates a stream with a fresh id and default options.
func (s *Store) Add(name, folder string) (models.Stream, error) {
	st := models.NewStream(name, datekey.NormalizeFolderPath(folder))
	st.ID = newID()
	if err := ValidateStream(st); err != nil {
		return models.Stream{}, err
	}
	err := s.mutate(func(set *models.Settings) error {
		set.Streams = append(set.Streams, st)
		return nil
	})
	if err != nil {
		return models.Stream{}, err
	}
	s.logger.Info("stream added", slog.String("id", st.ID), slog.String("folder", st.Folder))
	return st, nil
}

// Update applies fn to the stream with id. The id cannot be changed.
func (s *Store) Update(id string, fn func(*models.Stream)) (models.Stream, error) {
	var updated models.Stream
	err := s.mutate(func(set *models.Settings) error {
		i := slices.IndexFunc(set.Streams, func(st models.Stream) bool { return st.ID == id })
		if i < 0 {
			return fmt.Errorf("streams: update %s: %w", id, apperr.ErrStreamNotFound)
		}
		st := set.Streams[i]
		fn(&st)
		st.ID = id
		st.Folder = datekey.NormalizeFolderPath(st.Folder)
		if err := ValidateStream(st); err != nil {
			return err
		}
		set.Streams[i] = st
		updated = st
		return nil
	})
	return updated, err
}

// Remove deletes the stream with id. Listeners see the stream gone, which
// drops its commands and ribbon entries.
func (s *Store) Remove(id string) error {
	err := s.mutate(func(set *models.Settings) error {
		i := slices.IndexFunc(set.Streams, func(st models.Stream) bool { return st.ID == id })
		if i < 0 {
			return fmt.Errorf("streams: remove %s: %w", id, apperr.ErrStreamNotFound)
		}
		set.Streams = slices.Delete(set.Streams, i, i+1)
		return nil
	})
	if err == nil {
		s.logger.Info("stream removed", slog.String("id", id))
	}
	return err
}

// SetReuseCurrentTab flips the tab-reuse switch and persists it. It
// replaces any override.
func (s *Store) SetReuseCurrentTab(v bool) error {
	var prev *bool
	err := s.mutate(func(set *models.Settings) error {
		set.ReuseCurrentTab = v
		prev, s.reuseTab = s.reuseTab, nil
		return nil
	})
	if err != nil {
		s.mu.Lock()
		if s.reuseTab == nil {
			s.reuseTab = prev
		}
		s.mu.Unlock()
	}
	return err
}

// mutate applies fn to a copy, persists it and only then swaps it in, so a
// failed save leaves the in-memory settings untouched.
func (s *Store) mutate(fn func(*models.Settings) error) error {
	s.mu.Lock()
	next := s.copyLocked()
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.saveLocked(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.settings = next
	listeners := slices.Clone(s.listeners)
	snapshot := s.effectiveLocked()
	s.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
	return nil
}

func (s *Store) copyLocked() models.Settings {
	out := s.settings
	out.Streams = slices.Clone(s.settings.Streams)
	if out.Streams == nil {
		out.Streams = []models.Stream{}
	}
	return out
}

func (s *Store) effectiveLocked() models.Settings {
	out := s.copyLocked()
	if s.reuseTab != nil {
		out.ReuseCurrentTab = *s.reuseTab
	}
	return out
}

// saveLocked writes the settings atomically: tmp file → fsync → rename.
func (s *Store) saveLocked(set models.Settings) error {
	data, err := yaml.Marshal(set)
	if err != nil {
		return fmt.Errorf("streams: encode settings: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("streams: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-tmp-*")
	if err != nil {
		return fmt.Errorf("streams: create temp: %w", err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("streams: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("streams: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("streams: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("streams: rename: %w", err)
	}
	success = true
	return nil
}

// ValidateStream checks the user-editable fields of a stream.
func ValidateStream(st models.Stream) error {
	err := validation.ValidateStruct(&st,
		validation.Field(&st.ID, validation.Required),
		validation.Field(&st.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&st.Folder, validation.By(noDotSegments)),
	)
	if err != nil {
		return fmt.Errorf("streams: invalid stream: %w", err)
	}
	return nil
}

func noDotSegments(value any) error {
	folder, _ := value.(string)
	for _, seg := range datekey.Segments(folder) {
		if seg == "." || seg == ".." {
			return errors.New("must not contain . or .. segments")
		}
	}
	return nil
}

func newID() string {
	return ulid.Make().String()
}
