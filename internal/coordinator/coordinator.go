// Package coordinator keeps calendar widgets in step with the workspace.
//
// The registry maps document ids to live widgets. At most one widget per
// document is live; registering a document again tears the old widget down
// first.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/daystreams/internal/apperr"
	"github.com/starford/daystreams/internal/calendar"
	"github.com/starford/daystreams/internal/datekey"
	"github.com/starford/daystreams/internal/models"
	"github.com/starford/daystreams/internal/navigation"
	"github.com/starford/daystreams/internal/streams"
	"github.com/starford/daystreams/internal/workspace"
)

// StreamSource supplies the configured streams and settings.
type StreamSource interface {
	Streams() []models.Stream
	Settings() models.Settings
}

// Navigator is the part of the resolver that widgets drive.
type Navigator interface {
	NavigateTo(ctx context.Context, s models.Stream, d datekey.Key, reuseTab bool) (navigation.Result, error)
	NavigateToAdjacentDay(ctx context.Context, s models.Stream, anchor datekey.Key, offset int, reuseTab bool) (navigation.Result, error)
}

// Notifications is the workspace surface the coordinator listens to.
type Notifications interface {
	OnActiveDocumentChanged(fn workspace.ActiveFunc) (cancel func())
	OnDocumentStateChanged(fn workspace.StateFunc) (cancel func())
}

// Coordinator owns the widget registry.
type Coordinator struct {
	ctx    context.Context
	src    StreamSource
	nav    Navigator
	engine *calendar.Engine
	hub    calendar.Subscriber
	render calendar.Renderer
	logger *slog.Logger

	mu       sync.Mutex
	widgets  map[string]*calendar.Widget
	active   workspace.Document
	hasDoc   bool
	detaches []func()
}

// New creates a coordinator. ctx bounds every widget it mounts.
func New(ctx context.Context, src StreamSource, nav Navigator, engine *calendar.Engine, hub calendar.Subscriber, render calendar.Renderer, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		ctx:     ctx,
		src:     src,
		nav:     nav,
		engine:  engine,
		hub:     hub,
		render:  render,
		logger:  logger.With(slog.String("component", "coordinator")),
		widgets: make(map[string]*calendar.Widget),
	}
}

// Attach subscribes to ws notifications. The returned func detaches.
func (c *Coordinator) Attach(ws Notifications) (detach func()) {
	offActive := ws.OnActiveDocumentChanged(func(doc workspace.Document, ok bool) {
		c.ActiveDocumentChanged(c.ctx, doc, ok)
	})
	offState := ws.OnDocumentStateChanged(func(doc workspace.Document) {
		c.DocumentStateChanged(c.ctx, doc)
	})
	var once sync.Once
	detach = func() {
		once.Do(func() {
			offActive()
			offState()
		})
	}
	c.mu.Lock()
	c.detaches = append(c.detaches, detach)
	c.mu.Unlock()
	return detach
}

// ActiveDocumentChanged tears down every widget and mounts one for doc if
// it belongs to a stream.
func (c *Coordinator) ActiveDocumentChanged(ctx context.Context, doc workspace.Document, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.active, c.hasDoc = doc, ok
	c.teardownAllLocked()
	if !ok {
		return
	}
	c.mountLocked(ctx, doc)
}

// DocumentStateChanged follows a binding change of doc. A widget on the
// same stream is updated in place; otherwise it is rebuilt.
func (c *Coordinator) DocumentStateChanged(ctx context.Context, doc workspace.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasDoc && c.active.ID == doc.ID {
		c.active = doc
	}
	w, registered := c.widgets[doc.ID]
	if !registered {
		if c.hasDoc && c.active.ID == doc.ID {
			c.mountLocked(ctx, doc)
		}
		return
	}

	s, d, err := c.owner(doc.Binding)
	if err == nil && s == w.Stream() {
		if err := w.SetCurrentViewedDate(ctx, d); err != nil {
			c.logger.Warn("widget update failed", slog.String("doc", doc.ID), slog.String("error", err.Error()))
		}
		return
	}
	w.Teardown()
	delete(c.widgets, doc.ID)
	if err == nil {
		c.mountLocked(ctx, doc)
	}
}

// SettingsChanged re-resolves the active document after streams were
// edited, dropping widgets whose stream is gone.
func (c *Coordinator) SettingsChanged(models.Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasDoc {
		c.teardownAllLocked()
		return
	}
	doc := c.active
	if w, ok := c.widgets[doc.ID]; ok {
		if s, _, err := c.owner(doc.Binding); err == nil && s == w.Stream() {
			return
		}
	}
	c.teardownAllLocked()
	c.mountLocked(c.ctx, doc)
}

// Widget returns the live widget anchored to docID.
func (c *Coordinator) Widget(docID string) (*calendar.Widget, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.widgets[docID]
	return w, ok
}

// ActiveWidget returns the widget of the active document.
func (c *Coordinator) ActiveWidget() (*calendar.Widget, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasDoc {
		return nil, false
	}
	w, ok := c.widgets[c.active.ID]
	return w, ok
}

// Snapshots returns copies of every live widget.
func (c *Coordinator) Snapshots() []calendar.Snapshot {
	c.mu.Lock()
	ws := make([]*calendar.Widget, 0, len(c.widgets))
	for _, w := range c.widgets {
		ws = append(ws, w)
	}
	c.mu.Unlock()

	out := make([]calendar.Snapshot, 0, len(ws))
	for _, w := range ws {
		if snap, ok := w.Snapshot(); ok {
			out = append(out, snap)
		}
	}
	return out
}

// SelectDay navigates to d in the stream of the widget on docID.
func (c *Coordinator) SelectDay(ctx context.Context, docID string, d datekey.Key) (navigation.Result, error) {
	w, ok := c.Widget(docID)
	if !ok {
		return navigation.Result{Outcome: navigation.OutcomeAborted},
			fmt.Errorf("coordinator: widget for %s: %w", docID, apperr.ErrNotFound)
	}
	return c.nav.NavigateTo(ctx, w.Stream(), d, c.src.Settings().ReuseCurrentTab)
}

// Step navigates offset days away from the date the widget on docID is
// anchored to, or from today when it has none.
func (c *Coordinator) Step(ctx context.Context, docID string, offset int) (navigation.Result, error) {
	w, ok := c.Widget(docID)
	if !ok {
		return navigation.Result{Outcome: navigation.OutcomeAborted},
			fmt.Errorf("coordinator: widget for %s: %w", docID, apperr.ErrNotFound)
	}
	anchor := w.State().CurrentViewedDate
	return c.nav.NavigateToAdjacentDay(ctx, w.Stream(), anchor, offset, c.src.Settings().ReuseCurrentTab)
}

// Close detaches from every workspace and tears down all widgets.
func (c *Coordinator) Close() {
	c.mu.Lock()
	detaches := c.detaches
	c.detaches = nil
	c.mu.Unlock()
	for _, d := range detaches {
		d()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownAllLocked()
	c.hasDoc = false
}

// Len returns the number of registered widgets.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.widgets)
}

// owner resolves the stream and anchor date of a binding. A note outside
// every stream folder yields apperr.ErrStreamNotFound.
func (c *Coordinator) owner(b workspace.Binding) (models.Stream, datekey.Key, error) {
	list := c.src.Streams()
	var (
		s  models.Stream
		d  datekey.Key
		ok bool
	)
	switch b.Kind {
	case workspace.KindNote:
		s, ok = streams.Match(b.Path, list)
		if ok {
			d, _ = streams.IsDailyNote(b.Path, s)
		}
	case workspace.KindPlaceholder:
		s, ok = streams.Find(b.StreamID, list)
		d = b.Date
	case workspace.KindAggregate:
		s, ok = streams.Find(b.StreamID, list)
	}
	if !ok {
		return models.Stream{}, datekey.Key{}, apperr.ErrStreamNotFound
	}
	return s, d, nil
}

func (c *Coordinator) mountLocked(ctx context.Context, doc workspace.Document) {
	s, d, err := c.owner(doc.Binding)
	if err != nil {
		// Not a stream document: no widget.
		return
	}
	if old, ok := c.widgets[doc.ID]; ok {
		old.Teardown()
		delete(c.widgets, doc.ID)
	}
	w := calendar.NewWidget(doc.ID, s, d, c.src.Settings().CalendarExpanded, c.engine, c.render, c.logger)
	if err := w.Mount(ctx, c.hub); err != nil {
		c.logger.Warn("widget mount failed",
			slog.String("doc", doc.ID),
			slog.String("stream", s.ID),
			slog.String("error", err.Error()))
		return
	}
	c.widgets[doc.ID] = w
	c.logger.Debug("widget mounted",
		slog.String("doc", doc.ID),
		slog.String("stream", s.ID),
		slog.String("date", d.String()))
}

func (c *Coordinator) teardownAllLocked() {
	for id, w := range c.widgets {
		w.Teardown()
		delete(c.widgets, id)
	}
}
