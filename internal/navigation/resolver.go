// Package navigation resolves (stream, date) pairs to daily-note files and
// routes the workspace to them.
//
// Two rules hold after every navigation: a file is open in at most one tab,
// and at most one placeholder tab exists.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/daystreams/internal/apperr"
	"github.com/starford/daystreams/internal/datekey"
	"github.com/starford/daystreams/internal/models"
	"github.com/starford/daystreams/internal/workspace"
)

// Storage is the subset of the vault the resolver needs.
type Storage interface {
	Exists(path string) bool
	CreateFolder(path string) error
	CreateFile(path string, content []byte) (models.NoteMetadata, error)
}

// Workspace is the subset of the tab set the resolver drives.
type Workspace interface {
	ActiveDocument() (workspace.Document, bool)
	Document(id string) (workspace.Document, bool)
	FindOpenDocumentByPath(path string) (workspace.Document, bool)
	FindPlaceholder() (workspace.Document, bool)
	FindAggregate(streamID string) (workspace.Document, bool)
	OpenInNewTab(b workspace.Binding) (workspace.Document, error)
	OpenInCurrentTab(b workspace.Binding) (workspace.Document, error)
	Rebind(id string, b workspace.Binding) (workspace.Document, error)
	ActivateDocument(id string, focus bool) error
}

// Target is the resolution of a (stream, date) pair.
type Target struct {
	StreamID string      `json:"stream_id"`
	Date     datekey.Key `json:"date"`
	FilePath string      `json:"file_path"`
	Exists   bool        `json:"exists"`
}

// Outcome says how a navigation request finished.
type Outcome string

const (
	OutcomeAborted            Outcome = "aborted"
	OutcomeActivatedExisting  Outcome = "activated-existing"
	OutcomeOpenedExisting     Outcome = "opened-existing"
	OutcomeReplacedCurrent    Outcome = "replaced-current"
	OutcomePlaceholderOpened  Outcome = "placeholder-opened"
	OutcomePlaceholderRebound Outcome = "placeholder-rebound"
	OutcomeCreated            Outcome = "created"
	OutcomeStreamView         Outcome = "stream-view"
)

// Result describes a finished navigation.
type Result struct {
	Target     Target  `json:"target"`
	DocumentID string  `json:"document_id"`
	Outcome    Outcome `json:"outcome"`
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock overrides the clock used for "today".
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// Resolver performs navigation requests one at a time.
type Resolver struct {
	store    Storage
	ws       Workspace
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu sync.Mutex
}

// New creates a resolver.
func New(store Storage, ws Workspace, notifier Notifier, logger *slog.Logger, opts ...Option) *Resolver {
	if notifier == nil {
		notifier = NotifierFunc(func(Notice) {})
	}
	r := &Resolver{
		store:    store,
		ws:       ws,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "navigation")),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Today returns the current local day according to the resolver's clock.
func (r *Resolver) Today() datekey.Key {
	return datekey.FromTime(r.now())
}

// Resolve maps (stream, date) to a file path and probes its existence.
// The path depends on nothing but the stream folder and the date.
func (r *Resolver) Resolve(s models.Stream, d datekey.Key) Target {
	p := datekey.ToFilePath(s.Folder, d)
	return Target{
		StreamID: s.ID,
		Date:     d,
		FilePath: p,
		Exists:   r.store.Exists(p),
	}
}

// NavigateTo shows the daily note of s for d: the open tab if there is one,
// the file in a (possibly reused) tab if it exists, otherwise the single
// placeholder tab bound to the missing file.
func (r *Resolver) NavigateTo(ctx context.Context, s models.Stream, d datekey.Key, reuseTab bool) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.navigateLocked(ctx, s, d, reuseTab)
}

func (r *Resolver) navigateLocked(ctx context.Context, s models.Stream, d datekey.Key, reuseTab bool) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{Outcome: OutcomeAborted}, err
	}
	if !d.Valid() {
		return r.abort(Target{StreamID: s.ID, Date: d},
			fmt.Errorf("navigation: %q: %w", d.String(), apperr.ErrInvalidDate),
			fmt.Sprintf("Invalid date: %s", d))
	}

	target := r.Resolve(s, d)
	if err := r.ensureFolder(s.Folder); err != nil {
		return r.abort(target, err, fmt.Sprintf("Could not create folder %q", datekey.NormalizeFolderPath(s.Folder)))
	}

	var (
		res Result
		err error
	)
	if target.Exists {
		res, err = r.openExisting(target, reuseTab)
	} else {
		res, err = r.showPlaceholder(target)
	}
	if err != nil {
		return r.abort(target, err, "Could not open "+target.FilePath)
	}

	r.logger.Debug("navigated",
		slog.String("stream", s.ID),
		slog.String("date", d.String()),
		slog.String("path", target.FilePath),
		slog.String("outcome", string(res.Outcome)))
	return res, nil
}

// NavigateToAdjacentDay moves offset days from anchor. A zero anchor means
// today.
func (r *Resolver) NavigateToAdjacentDay(ctx context.Context, s models.Stream, anchor datekey.Key, offset int, reuseTab bool) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	base := anchor
	if base.IsZero() {
		base = r.Today()
	}
	if !base.Valid() {
		return r.abort(Target{StreamID: s.ID, Date: anchor},
			fmt.Errorf("navigation: anchor %q: %w", anchor.String(), apperr.ErrInvalidDate),
			fmt.Sprintf("Invalid date: %s", anchor))
	}
	return r.navigateLocked(ctx, s, base.AddDays(offset), reuseTab)
}

// OpenToday navigates to today's note of s.
func (r *Resolver) OpenToday(ctx context.Context, s models.Stream, reuseTab bool) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.navigateLocked(ctx, s, r.Today(), reuseTab)
}

// OpenStreamView activates the aggregate view of s, opening it if needed.
func (r *Resolver) OpenStreamView(ctx context.Context, s models.Stream) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return Result{Outcome: OutcomeAborted}, err
	}

	target := Target{StreamID: s.ID}
	if doc, ok := r.ws.FindAggregate(s.ID); ok {
		if err := r.ws.ActivateDocument(doc.ID, true); err != nil {
			return r.abort(target, err, "Could not open stream view")
		}
		return Result{Target: target, DocumentID: doc.ID, Outcome: OutcomeStreamView}, nil
	}
	doc, err := r.ws.OpenInNewTab(workspace.Aggregate(s.ID))
	if err != nil {
		return r.abort(target, err, "Could not open stream view")
	}
	return Result{Target: target, DocumentID: doc.ID, Outcome: OutcomeStreamView}, nil
}

// CreateFromPlaceholder creates the file a placeholder document is bound to
// and turns that document into a note tab in place. On failure the
// placeholder stays as it was.
func (r *Resolver) CreateFromPlaceholder(ctx context.Context, docID string, content []byte) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return Result{Outcome: OutcomeAborted}, err
	}

	doc, ok := r.ws.Document(docID)
	if !ok || doc.Binding.Kind != workspace.KindPlaceholder {
		return Result{Outcome: OutcomeAborted}, fmt.Errorf("navigation: placeholder %s: %w", docID, apperr.ErrNotFound)
	}
	b := doc.Binding
	target := Target{StreamID: b.StreamID, Date: b.Date, FilePath: b.Path}

	if err := r.ensureFolder(datekey.Dir(b.Path)); err != nil {
		return r.abort(target, err, "Could not create folder for "+b.Path)
	}
	if _, err := r.store.CreateFile(b.Path, content); err != nil && !errors.Is(err, apperr.ErrAlreadyExists) {
		return r.abort(target,
			fmt.Errorf("navigation: create %s: %w: %w", b.Path, apperr.ErrStorageWrite, err),
			"Could not create "+b.Path)
	}
	target.Exists = true

	// Another tab may already show the file if it appeared meanwhile.
	if open, ok := r.ws.FindOpenDocumentByPath(b.Path); ok {
		if err := r.ws.ActivateDocument(open.ID, true); err != nil {
			return r.abort(target, err, "Could not open "+b.Path)
		}
		return Result{Target: target, DocumentID: open.ID, Outcome: OutcomeActivatedExisting}, nil
	}
	if _, err := r.ws.Rebind(docID, workspace.Note(b.Path)); err != nil {
		return r.abort(target, err, "Could not open "+b.Path)
	}
	if err := r.ws.ActivateDocument(docID, true); err != nil {
		return r.abort(target, err, "Could not open "+b.Path)
	}
	r.logger.Info("daily note created", slog.String("path", b.Path))
	return Result{Target: target, DocumentID: docID, Outcome: OutcomeCreated}, nil
}

func (r *Resolver) openExisting(t Target, reuseTab bool) (Result, error) {
	res := Result{Target: t}

	if doc, ok := r.ws.FindOpenDocumentByPath(t.FilePath); ok {
		res.DocumentID, res.Outcome = doc.ID, OutcomeActivatedExisting
		return res, r.ws.ActivateDocument(doc.ID, true)
	}

	// A placeholder for this very file means it was created elsewhere;
	// promote the placeholder rather than opening a second tab.
	if ph, ok := r.ws.FindPlaceholder(); ok && ph.Binding.Path == t.FilePath {
		if _, err := r.ws.Rebind(ph.ID, workspace.Note(t.FilePath)); err != nil {
			return res, err
		}
		res.DocumentID, res.Outcome = ph.ID, OutcomeOpenedExisting
		return res, r.ws.ActivateDocument(ph.ID, true)
	}

	b := workspace.Note(t.FilePath)
	if reuseTab && r.activeReusable() {
		doc, err := r.ws.OpenInCurrentTab(b)
		res.DocumentID, res.Outcome = doc.ID, OutcomeReplacedCurrent
		return res, err
	}
	doc, err := r.ws.OpenInNewTab(b)
	res.DocumentID, res.Outcome = doc.ID, OutcomeOpenedExisting
	return res, err
}

func (r *Resolver) showPlaceholder(t Target) (Result, error) {
	res := Result{Target: t}
	b := workspace.Placeholder(t.FilePath, t.StreamID, t.Date)

	if ph, ok := r.ws.FindPlaceholder(); ok {
		if ph.Binding != b {
			if _, err := r.ws.Rebind(ph.ID, b); err != nil {
				return res, err
			}
		}
		res.DocumentID, res.Outcome = ph.ID, OutcomePlaceholderRebound
		return res, r.ws.ActivateDocument(ph.ID, true)
	}
	doc, err := r.ws.OpenInNewTab(b)
	res.DocumentID, res.Outcome = doc.ID, OutcomePlaceholderOpened
	return res, err
}

// activeReusable reports whether the active tab may be replaced: it must be
// an unpinned note tab.
func (r *Resolver) activeReusable() bool {
	doc, ok := r.ws.ActiveDocument()
	return ok && !doc.Pinned && doc.Binding.Kind == workspace.KindNote
}

func (r *Resolver) ensureFolder(folder string) error {
	folder = datekey.NormalizeFolderPath(folder)
	if folder == "" || r.store.Exists(folder) {
		return nil
	}
	if err := r.store.CreateFolder(folder); err != nil {
		return fmt.Errorf("navigation: create folder %s: %w: %w", folder, apperr.ErrStorageWrite, err)
	}
	return nil
}

func (r *Resolver) abort(t Target, err error, msg string) (Result, error) {
	r.logger.Warn("navigation aborted",
		slog.String("stream", t.StreamID),
		slog.String("date", t.Date.String()),
		slog.String("error", err.Error()))
	r.notifier.Notify(Notice{Level: LevelError, Message: msg})
	return Result{Target: t, Outcome: OutcomeAborted}, err
}
