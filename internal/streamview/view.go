// Package streamview is the aggregate view of a stream: its daily notes
// concatenated newest first and loaded a page at a time.
package streamview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmparser "github.com/yuin/goldmark/parser"

	"github.com/starford/daystreams/internal/apperr"
	"github.com/starford/daystreams/internal/datekey"
	"github.com/starford/daystreams/internal/models"
	"github.com/starford/daystreams/internal/parser"
	"github.com/starford/daystreams/internal/streams"
)

// DefaultPageSize is used when a view is created with a non-positive size.
const DefaultPageSize = 10

var (
	// ErrClosed is returned by operations on a closed view.
	ErrClosed = errors.New("streamview: view closed")
	// ErrStale is returned by a load whose page was dropped because the
	// view was reloaded while it ran.
	ErrStale = errors.New("streamview: view reloaded during load")
)

// Files is the vault surface a view reads from.
type Files interface {
	List(dir string) ([]models.NoteMetadata, error)
	Read(path string) ([]byte, error)
}

// Entry is one rendered daily note.
type Entry struct {
	Path     string      `json:"path"`
	Date     datekey.Key `json:"date"`
	Title    string      `json:"title"`
	Summary  string      `json:"summary,omitempty"`
	Tags     []string    `json:"tags"`
	Size     int64       `json:"size"`
	Markdown string      `json:"markdown"`
	HTML     string      `json:"html"`
}

type source struct {
	meta models.NoteMetadata
	date datekey.Key
}

// View pages through one stream's notes.
type View struct {
	stream   models.Stream
	files    Files
	md       goldmark.Markdown
	pageSize int
	logger   *slog.Logger

	mu      sync.Mutex
	sources []source
	entries []Entry
	next    int
	busy    bool
	closed  bool
	gen     uint64
}

// New creates a view of s. Call Reload before LoadMore.
func New(s models.Stream, files Files, pageSize int, logger *slog.Logger) *View {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &View{
		stream:   s,
		files:    files,
		pageSize: pageSize,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(gmparser.WithAutoHeadingID()),
		),
		logger: logger.With(slog.String("component", "streamview"), slog.String("stream", s.ID)),
	}
}

// Stream returns the stream shown by the view.
func (v *View) Stream() models.Stream {
	return v.stream
}

// Reload rescans the stream folder and drops loaded entries. Only daily
// notes directly inside the folder are shown.
func (v *View) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	metas, err := v.files.List(v.stream.Folder)
	if err != nil {
		return fmt.Errorf("streamview: list %s: %w", v.stream.Folder, err)
	}
	var srcs []source
	for _, m := range metas {
		d, ok := streams.IsDailyNote(m.Path, v.stream)
		if !ok || !d.Valid() {
			continue
		}
		srcs = append(srcs, source{meta: m, date: d})
	}
	sort.Slice(srcs, func(i, j int) bool { return srcs[j].date.Before(srcs[i].date) })

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	v.gen++
	v.sources = srcs
	v.entries = nil
	v.next = 0
	v.logger.Debug("stream view reloaded", slog.Int("notes", len(srcs)))
	return nil
}

// LoadMore renders the next page and appends it. A call while another load
// is running fails with apperr.ErrBusy. If the view is closed or reloaded
// while the page is loading, the page is discarded and ErrClosed or ErrStale
// is returned.
func (v *View) LoadMore(ctx context.Context) ([]Entry, error) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil, ErrClosed
	}
	if v.busy {
		v.mu.Unlock()
		return nil, fmt.Errorf("streamview: load more: %w", apperr.ErrBusy)
	}
	v.busy = true
	gen := v.gen
	end := min(v.next+v.pageSize, len(v.sources))
	batch := append([]source(nil), v.sources[v.next:end]...)
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		v.busy = false
		v.mu.Unlock()
	}()

	page := make([]Entry, 0, len(batch))
	for _, src := range batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e, err := v.render(src)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				// Deleted since the scan.
				continue
			}
			return nil, err
		}
		page = append(page, e)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil, ErrClosed
	}
	if gen != v.gen {
		return nil, ErrStale
	}
	v.entries = append(v.entries, page...)
	v.next = end
	return page, nil
}

// Refresh rescans the folder and loads pages until at least as many notes
// as before are loaded again, and never less than one page.
func (v *View) Refresh(ctx context.Context) error {
	v.mu.Lock()
	want := max(v.next, 1)
	v.mu.Unlock()

	if err := v.Reload(ctx); err != nil {
		return err
	}
	for v.HasMore() && v.loaded() < want {
		if _, err := v.LoadMore(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (v *View) loaded() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.next
}

// Entries returns a copy of everything loaded so far.
func (v *View) Entries() []Entry {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Entry(nil), v.entries...)
}

// HasMore reports whether LoadMore has notes left to load.
func (v *View) HasMore() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.closed && v.next < len(v.sources)
}

// Busy reports whether a load is in progress.
func (v *View) Busy() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.busy
}

// Close marks the view dead. Loads in flight drop their results.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.sources = nil
	v.entries = nil
}

func (v *View) render(src source) (Entry, error) {
	data, err := v.files.Read(src.meta.Path)
	if err != nil {
		return Entry{}, err
	}
	res := parser.Parse(data)
	title := res.Title
	if title == "" {
		title = src.date.String()
	}
	var buf bytes.Buffer
	if err := v.md.Convert([]byte(res.Body), &buf); err != nil {
		return Entry{}, fmt.Errorf("streamview: render %s: %w", src.meta.Path, err)
	}
	tags := res.Tags
	if tags == nil {
		tags = []string{}
	}
	return Entry{
		Path:     src.meta.Path,
		Date:     src.date,
		Title:    title,
		Summary:  res.Summary,
		Tags:     tags,
		Size:     int64(len(data)),
		Markdown: res.Body,
		HTML:     buf.String(),
	}, nil
}

