package calendar

import (
	"context"
	"log/slog"
	"sync"

	"github.com/starford/daystreams/internal/datekey"
	"github.com/starford/daystreams/internal/events"
	"github.com/starford/daystreams/internal/models"
	"github.com/starford/daystreams/internal/streams"
)

// ViewState is the state one widget owns.
type ViewState struct {
	CurrentMonth      datekey.Month `json:"current_month"`
	CurrentViewedDate datekey.Key   `json:"current_viewed_date"`
	Expanded          bool          `json:"expanded"`
}

// Snapshot is an immutable copy of a widget for renderers.
type Snapshot struct {
	DocumentID string        `json:"document_id"`
	Stream     models.Stream `json:"stream"`
	State      ViewState     `json:"state"`
	Grid       *Grid         `json:"grid"`
}

// Renderer draws widgets. Calls happen with the widget locked, so a
// renderer must not call back into the widget.
type Renderer interface {
	Render(Snapshot)
	Unmount(documentID string)
}

// Subscriber hands out file-event subscriptions.
type Subscriber interface {
	Subscribe(fn events.Handler) (cancel func())
}

// Widget is a calendar anchored to one open document.
//
// Lookups run without the lock held. When one finishes, its result is
// applied only if the widget is still live and no newer lookup has been
// applied or started a different layout.
type Widget struct {
	docID  string
	engine *Engine
	render Renderer
	logger *slog.Logger

	mu        sync.Mutex
	stream    models.Stream
	state     ViewState
	grid      *Grid
	live      bool
	ctx       context.Context
	cancel    context.CancelFunc
	unsub     func()
	seq       uint64
	layoutSeq uint64
	applied   uint64
}

// NewWidget creates an unmounted widget. A zero anchor shows the current
// month with no viewed day.
func NewWidget(docID string, s models.Stream, anchor datekey.Key, expanded bool, engine *Engine, render Renderer, logger *slog.Logger) *Widget {
	month := engine.Today().MonthOf()
	if anchor.Valid() {
		month = anchor.MonthOf()
	}
	return &Widget{
		docID:  docID,
		engine: engine,
		render: render,
		logger: logger.With(slog.String("component", "calendar"), slog.String("doc", docID)),
		stream: s,
		state: ViewState{
			CurrentMonth:      month,
			CurrentViewedDate: anchor,
			Expanded:          expanded,
		},
	}
}

// Mount subscribes to file events and builds the first grid. Events that
// arrive while the grid is being built refresh it. The subscription lives
// until Teardown.
func (w *Widget) Mount(parent context.Context, sub Subscriber) error {
	w.mu.Lock()
	if w.live {
		w.mu.Unlock()
		return nil
	}
	w.ctx, w.cancel = context.WithCancel(parent)
	ctx := w.ctx
	w.live = true
	w.mu.Unlock()

	unsub := sub.Subscribe(w.HandleFileEvent)
	w.mu.Lock()
	if !w.live {
		// Torn down while subscribing.
		w.mu.Unlock()
		unsub()
		return nil
	}
	w.unsub = unsub
	w.mu.Unlock()

	if err := w.update(ctx, true); err != nil {
		w.Teardown()
		return err
	}
	return nil
}

// Teardown stops the widget: it drops its subscription, cancels in-flight
// lookups and unmounts from the renderer. Nothing is rendered afterwards.
func (w *Widget) Teardown() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.live {
		return
	}
	w.live = false
	if w.cancel != nil {
		w.cancel()
	}
	if w.unsub != nil {
		w.unsub()
		w.unsub = nil
	}
	w.grid = nil
	w.render.Unmount(w.docID)
	w.logger.Debug("widget torn down")
}

// Live reports whether the widget is mounted and not torn down.
func (w *Widget) Live() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.live
}

// DocumentID returns the id of the document the widget is anchored to.
func (w *Widget) DocumentID() string {
	return w.docID
}

// Stream returns the widget's stream.
func (w *Widget) Stream() models.Stream {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stream
}

// State returns a copy of the view state.
func (w *Widget) State() ViewState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Snapshot returns a copy of the widget. ok is false once torn down.
func (w *Widget) Snapshot() (Snapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.live || w.grid == nil {
		return Snapshot{}, false
	}
	return w.snapshotLocked(), true
}

// SetCurrentViewedDate re-anchors the widget in place. A date in another
// month switches the grid to that month.
func (w *Widget) SetCurrentViewedDate(ctx context.Context, d datekey.Key) error {
	w.mu.Lock()
	if !w.live {
		w.mu.Unlock()
		return nil
	}
	w.state.CurrentViewedDate = d
	relayout := d.Valid() && !w.state.CurrentMonth.Contains(d)
	if relayout {
		w.state.CurrentMonth = d.MonthOf()
	}
	w.mu.Unlock()
	return w.update(ctx, relayout)
}

// ShowMonth switches the grid to m.
func (w *Widget) ShowMonth(ctx context.Context, m datekey.Month) error {
	w.mu.Lock()
	if !w.live {
		w.mu.Unlock()
		return nil
	}
	relayout := w.state.CurrentMonth != m
	w.state.CurrentMonth = m
	w.mu.Unlock()
	return w.update(ctx, relayout)
}

// NextMonth shows the following month.
func (w *Widget) NextMonth(ctx context.Context) error {
	return w.ShowMonth(ctx, w.State().CurrentMonth.Next())
}

// PrevMonth shows the preceding month.
func (w *Widget) PrevMonth(ctx context.Context) error {
	return w.ShowMonth(ctx, w.State().CurrentMonth.Prev())
}

// ShowToday shows the month containing today.
func (w *Widget) ShowToday(ctx context.Context) error {
	return w.ShowMonth(ctx, w.engine.Today().MonthOf())
}

// SetExpanded toggles the expanded state. No lookups are needed.
func (w *Widget) SetExpanded(expanded bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.live {
		return
	}
	w.state.Expanded = expanded
	if w.grid != nil {
		w.render.Render(w.snapshotLocked())
	}
}

// HandleFileEvent refreshes the grid when a daily note of the widget's
// stream in the visible month changes.
func (w *Widget) HandleFileEvent(ev events.Event) {
	w.mu.Lock()
	if !w.live {
		w.mu.Unlock()
		return
	}
	s, month, ctx := w.stream, w.state.CurrentMonth, w.ctx
	w.mu.Unlock()

	d, ok := streams.IsDailyNote(ev.Path, s)
	if !ok || !month.Contains(d) {
		return
	}
	if err := w.update(ctx, false); err != nil && ctx.Err() == nil {
		w.logger.Warn("refresh after file event failed",
			slog.String("path", ev.Path),
			slog.String("error", err.Error()))
	}
}

// Refresh re-reads the visible month.
func (w *Widget) Refresh(ctx context.Context) error {
	return w.update(ctx, false)
}

func (w *Widget) update(ctx context.Context, relayout bool) error {
	w.mu.Lock()
	if !w.live {
		w.mu.Unlock()
		return nil
	}
	w.seq++
	seq := w.seq
	if relayout || w.grid == nil {
		relayout = true
		w.layoutSeq = seq
	}
	layoutSeq := w.layoutSeq
	s, month := w.stream, w.state.CurrentMonth
	w.mu.Unlock()

	contents, err := w.engine.Contents(ctx, s, month)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.live || seq < w.applied || layoutSeq != w.layoutSeq {
		return nil
	}
	if err != nil {
		return err
	}
	if relayout || w.grid == nil || w.grid.Month != month {
		w.grid = Layout(s.ID, month)
	}
	Apply(w.grid, contents, w.engine.Today(), w.state.CurrentViewedDate)
	w.applied = seq
	w.render.Render(w.snapshotLocked())
	return nil
}

func (w *Widget) snapshotLocked() Snapshot {
	return Snapshot{
		DocumentID: w.docID,
		Stream:     w.stream,
		State:      w.state,
		Grid:       w.grid.Clone(),
	}
}
