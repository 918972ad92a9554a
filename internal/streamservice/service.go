// Package streamservice wires streams, navigation, calendar widgets, stream
// views and the search index into the single surface used by the HTTP API,
// the MCP server and the terminal UI.
package streamservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/daystreams/internal/apperr"
	"github.com/starford/daystreams/internal/calendar"
	"github.com/starford/daystreams/internal/checksum"
	"github.com/starford/daystreams/internal/coordinator"
	"github.com/starford/daystreams/internal/datekey"
	"github.com/starford/daystreams/internal/events"
	"github.com/starford/daystreams/internal/index"
	"github.com/starford/daystreams/internal/models"
	"github.com/starford/daystreams/internal/navigation"
	"github.com/starford/daystreams/internal/parser"
	"github.com/starford/daystreams/internal/storage"
	"github.com/starford/daystreams/internal/streams"
	"github.com/starford/daystreams/internal/streamview"
	"github.com/starford/daystreams/internal/workspace"
)

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used for "today" everywhere.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithPageSize sets how many notes a stream view loads per page.
func WithPageSize(n int) Option {
	return func(s *Service) {
		s.pageSize = n
	}
}

// NoteDetail is the full representation of a daily note.
type NoteDetail struct {
	StreamID    string         `json:"stream_id"`
	Date        datekey.Key    `json:"date"`
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Checksum    string         `json:"checksum"`
	Tags        []string       `json:"tags"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Words       int            `json:"words"`
}

// StreamStats summarises the indexed notes of a stream.
type StreamStats struct {
	index.Stats
	StreamID string `json:"stream_id"`
	// Streak counts consecutive days with a note, ending today or, when
	// today has none yet, yesterday.
	Streak int `json:"streak"`
}

// ViewPage is a slice of a stream view.
type ViewPage struct {
	DocumentID string             `json:"document_id"`
	Stream     models.Stream      `json:"stream"`
	Entries    []streamview.Entry `json:"entries"`
	HasMore    bool               `json:"has_more"`
}

// StreamPatch lists the stream fields to change. Nil fields are kept.
type StreamPatch struct {
	Name              *string `json:"name"`
	Folder            *string `json:"folder"`
	Icon              *string `json:"icon"`
	ViewIcon          *string `json:"view_icon"`
	ShowTodayInRibbon *bool   `json:"show_today_in_ribbon"`
	AddTodayCommand   *bool   `json:"add_today_command"`
	ShowViewInRibbon  *bool   `json:"show_view_in_ribbon"`
	AddViewCommand    *bool   `json:"add_view_command"`
	TodayBorderColor  *string `json:"today_border_color"`
	ViewedBorderColor *string `json:"viewed_border_color"`
}

func (p StreamPatch) apply(st *models.Stream) {
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setBool := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	setString(&st.Name, p.Name)
	setString(&st.Folder, p.Folder)
	setString(&st.Icon, p.Icon)
	setString(&st.ViewIcon, p.ViewIcon)
	setBool(&st.ShowTodayInRibbon, p.ShowTodayInRibbon)
	setBool(&st.AddTodayCommand, p.AddTodayCommand)
	setBool(&st.ShowViewInRibbon, p.ShowViewInRibbon)
	setBool(&st.AddViewCommand, p.AddViewCommand)
	setString(&st.TodayBorderColor, p.TodayBorderColor)
	setString(&st.ViewedBorderColor, p.ViewedBorderColor)
}

type openView struct {
	view  *streamview.View
	unsub func()
}

// Service coordinates storage, navigation, widgets and the index.
type Service struct {
	store    *streams.Store
	commands *streams.Commands
	files    storage.Provider
	db       *index.DB
	hub      *events.Hub
	ws       *workspace.Workspace
	nav      *navigation.Resolver
	engine   *calendar.Engine
	coord    *coordinator.Coordinator
	now      func() time.Time
	pageSize int
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	views map[string]*openView
}

// New assembles a service over one vault. render receives calendar widget
// updates and notifier receives navigation notices; either may be nil.
func New(ctx context.Context, store *streams.Store, files storage.Provider, db *index.DB, hub *events.Hub,
	render calendar.Renderer, notifier navigation.Notifier, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		commands: streams.NewCommands(),
		files:    files,
		db:       db,
		hub:      hub,
		now:      time.Now,
		pageSize: streamview.DefaultPageSize,
		logger:   logger.With(slog.String("component", "streamservice")),
		views:    make(map[string]*openView),
	}
	for _, opt := range opts {
		opt(s)
	}
	if render == nil {
		render = nopRenderer{}
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.ws = workspace.New(logger)
	s.nav = navigation.New(files, s.ws, notifier, logger, navigation.WithClock(s.now))
	s.engine = calendar.NewEngine(files, s.now)
	s.coord = coordinator.New(s.ctx, store, s.nav, s.engine, hub, render, logger)
	s.coord.Attach(s.ws)
	s.ws.OnActiveDocumentChanged(func(workspace.Document, bool) { s.pruneViews() })

	s.commands.Sync(store.Streams())
	store.Subscribe(func(set models.Settings) { s.commands.Sync(set.Streams) })
	store.Subscribe(s.coord.SettingsChanged)
	store.Subscribe(s.closeOrphanedDocuments)
	return s
}

// Close tears down widgets and views. The store, files and index stay open.
func (s *Service) Close() {
	s.cancel()
	s.coord.Close()

	s.mu.Lock()
	views := s.views
	s.views = make(map[string]*openView)
	s.mu.Unlock()
	for _, ov := range views {
		ov.unsub()
		ov.view.Close()
	}
}

// Today returns the current local day.
func (s *Service) Today() datekey.Key {
	return s.engine.Today()
}

// Streams returns the configured streams in order.
func (s *Service) Streams() []models.Stream {
	return s.store.Streams()
}

// Stream returns the stream with id.
func (s *Service) Stream(id string) (models.Stream, error) {
	st, ok := s.store.Stream(id)
	if !ok {
		return models.Stream{}, fmt.Errorf("streamservice: stream %s: %w", id, apperr.ErrStreamNotFound)
	}
	return st, nil
}

// AddStream creates a stream with default options.
func (s *Service) AddStream(name, folder string) (models.Stream, error) {
	return s.store.Add(name, folder)
}

// UpdateStream applies p to the stream with id.
func (s *Service) UpdateStream(id string, p StreamPatch) (models.Stream, error) {
	return s.store.Update(id, p.apply)
}

// RemoveStream deletes the stream with id. Its commands, widgets and open
// stream views go with it.
func (s *Service) RemoveStream(id string) error {
	return s.store.Remove(id)
}

// Settings returns the current settings.
func (s *Service) Settings() models.Settings {
	return s.store.Settings()
}

// SetReuseCurrentTab flips the tab-reuse switch.
func (s *Service) SetReuseCurrentTab(v bool) error {
	return s.store.SetReuseCurrentTab(v)
}

// Commands returns the registered palette and ribbon commands.
func (s *Service) Commands() []streams.Command {
	return s.commands.List()
}

// Ribbon returns the commands shown in the ribbon.
func (s *Service) Ribbon() []streams.Command {
	return s.commands.Ribbon()
}

// ExecuteCommand runs the command with id.
func (s *Service) ExecuteCommand(ctx context.Context, id string) (navigation.Result, error) {
	cmd, ok := s.commands.Get(id)
	if !ok {
		return navigation.Result{Outcome: navigation.OutcomeAborted},
			fmt.Errorf("streamservice: command %s: %w", id, apperr.ErrNotFound)
	}
	switch cmd.Kind {
	case streams.CommandOpenToday:
		return s.OpenToday(ctx, cmd.StreamID)
	case streams.CommandOpenView:
		page, err := s.OpenStreamView(ctx, cmd.StreamID)
		if err != nil {
			return navigation.Result{Outcome: navigation.OutcomeAborted}, err
		}
		return navigation.Result{
			Target:     navigation.Target{StreamID: cmd.StreamID},
			DocumentID: page.DocumentID,
			Outcome:    navigation.OutcomeStreamView,
		}, nil
	default:
		return navigation.Result{Outcome: navigation.OutcomeAborted},
			fmt.Errorf("streamservice: command %s: unknown kind %q", id, cmd.Kind)
	}
}

// Navigate opens the daily note of streamID for d.
func (s *Service) Navigate(ctx context.Context, streamID string, d datekey.Key) (navigation.Result, error) {
	st, err := s.Stream(streamID)
	if err != nil {
		return navigation.Result{Outcome: navigation.OutcomeAborted}, err
	}
	return s.nav.NavigateTo(ctx, st, d, s.reuseTab())
}

// NavigateAdjacent opens the note offset days away from anchor. A zero
// anchor counts from today.
func (s *Service) NavigateAdjacent(ctx context.Context, streamID string, anchor datekey.Key, offset int) (navigation.Result, error) {
	st, err := s.Stream(streamID)
	if err != nil {
		return navigation.Result{Outcome: navigation.OutcomeAborted}, err
	}
	return s.nav.NavigateToAdjacentDay(ctx, st, anchor, offset, s.reuseTab())
}

// OpenToday opens today's note of streamID.
func (s *Service) OpenToday(ctx context.Context, streamID string) (navigation.Result, error) {
	st, err := s.Stream(streamID)
	if err != nil {
		return navigation.Result{Outcome: navigation.OutcomeAborted}, err
	}
	return s.nav.OpenToday(ctx, st, s.reuseTab())
}

// Resolve maps a stream and date to its file without opening anything.
func (s *Service) Resolve(streamID string, d datekey.Key) (navigation.Target, error) {
	st, err := s.Stream(streamID)
	if err != nil {
		return navigation.Target{}, err
	}
	if !d.Valid() {
		return navigation.Target{}, fmt.Errorf("streamservice: resolve %s: %w", d, apperr.ErrInvalidDate)
	}
	return s.nav.Resolve(st, d), nil
}

// CreateFromPlaceholder writes the note a placeholder tab stands for and
// turns the tab into a real note.
func (s *Service) CreateFromPlaceholder(ctx context.Context, docID string, content []byte) (navigation.Result, error) {
	res, err := s.nav.CreateFromPlaceholder(ctx, docID, content)
	if err == nil {
		s.reindex(res.Target.FilePath)
	}
	return res, err
}

func (s *Service) reuseTab() bool {
	return s.store.Settings().ReuseCurrentTab
}

// Documents returns the open tabs in order.
func (s *Service) Documents() []workspace.Document {
	return s.ws.Documents()
}

// ActiveDocument returns the focused tab.
func (s *Service) ActiveDocument() (workspace.Document, bool) {
	return s.ws.ActiveDocument()
}

// ActivateDocument focuses the tab with id.
func (s *Service) ActivateDocument(id string) error {
	return s.ws.ActivateDocument(id, true)
}

// CloseDocument closes the tab with id.
func (s *Service) CloseDocument(id string) error {
	return s.ws.Close(id)
}

// PinDocument pins or unpins the tab with id.
func (s *Service) PinDocument(id string, pinned bool) error {
	return s.ws.SetPinned(id, pinned)
}

// MonthGrid builds a standalone grid for streamID and m. It is not bound to
// any tab.
func (s *Service) MonthGrid(ctx context.Context, streamID string, m datekey.Month, viewed datekey.Key) (*calendar.Grid, error) {
	st, err := s.Stream(streamID)
	if err != nil {
		return nil, err
	}
	return s.engine.BuildMonthGrid(ctx, st, m, viewed)
}

// Widgets returns snapshots of every live calendar widget.
func (s *Service) Widgets() []calendar.Snapshot {
	return s.coord.Snapshots()
}

// Widget returns the snapshot of the widget on docID.
func (s *Service) Widget(docID string) (calendar.Snapshot, error) {
	w, err := s.widget(docID)
	if err != nil {
		return calendar.Snapshot{}, err
	}
	return s.snapshot(w)
}

// ShowMonth switches the widget on docID to m.
func (s *Service) ShowMonth(ctx context.Context, docID string, m datekey.Month) (calendar.Snapshot, error) {
	w, err := s.widget(docID)
	if err != nil {
		return calendar.Snapshot{}, err
	}
	if err := w.ShowMonth(ctx, m); err != nil {
		return calendar.Snapshot{}, err
	}
	return s.snapshot(w)
}

// ShiftMonth moves the widget on docID delta months.
func (s *Service) ShiftMonth(ctx context.Context, docID string, delta int) (calendar.Snapshot, error) {
	w, err := s.widget(docID)
	if err != nil {
		return calendar.Snapshot{}, err
	}
	if err := w.ShowMonth(ctx, w.State().CurrentMonth.Add(delta)); err != nil {
		return calendar.Snapshot{}, err
	}
	return s.snapshot(w)
}

// ShowTodayMonth switches the widget on docID to the current month.
func (s *Service) ShowTodayMonth(ctx context.Context, docID string) (calendar.Snapshot, error) {
	w, err := s.widget(docID)
	if err != nil {
		return calendar.Snapshot{}, err
	}
	if err := w.ShowToday(ctx); err != nil {
		return calendar.Snapshot{}, err
	}
	return s.snapshot(w)
}

// SetExpanded expands or collapses the widget on docID.
func (s *Service) SetExpanded(docID string, expanded bool) (calendar.Snapshot, error) {
	w, err := s.widget(docID)
	if err != nil {
		return calendar.Snapshot{}, err
	}
	w.SetExpanded(expanded)
	return s.snapshot(w)
}

// SelectDay navigates to d in the stream of the widget on docID.
func (s *Service) SelectDay(ctx context.Context, docID string, d datekey.Key) (navigation.Result, error) {
	return s.coord.SelectDay(ctx, docID, d)
}

// StepDay navigates offset days from the widget's viewed date.
func (s *Service) StepDay(ctx context.Context, docID string, offset int) (navigation.Result, error) {
	return s.coord.Step(ctx, docID, offset)
}

func (s *Service) widget(docID string) (*calendar.Widget, error) {
	w, ok := s.coord.Widget(docID)
	if !ok {
		return nil, fmt.Errorf("streamservice: widget for %s: %w", docID, apperr.ErrNotFound)
	}
	return w, nil
}

func (s *Service) snapshot(w *calendar.Widget) (calendar.Snapshot, error) {
	snap, ok := w.Snapshot()
	if !ok {
		return calendar.Snapshot{}, fmt.Errorf("streamservice: widget for %s: %w", w.DocumentID(), apperr.ErrNotFound)
	}
	return snap, nil
}

// OpenStreamView focuses the aggregate tab of streamID and returns its
// first page.
func (s *Service) OpenStreamView(ctx context.Context, streamID string) (ViewPage, error) {
	st, err := s.Stream(streamID)
	if err != nil {
		return ViewPage{}, err
	}
	res, err := s.nav.OpenStreamView(ctx, st)
	if err != nil {
		return ViewPage{}, err
	}
	v, err := s.viewFor(ctx, res.DocumentID)
	if err != nil {
		return ViewPage{}, err
	}
	if len(v.Entries()) == 0 && v.HasMore() {
		if _, err := v.LoadMore(ctx); err != nil && !errors.Is(err, apperr.ErrBusy) && !errors.Is(err, streamview.ErrStale) {
			return ViewPage{}, err
		}
	}
	return s.page(res.DocumentID, v, v.Entries()), nil
}

// ViewEntries returns everything loaded so far in the view on docID.
func (s *Service) ViewEntries(ctx context.Context, docID string) (ViewPage, error) {
	v, err := s.viewFor(ctx, docID)
	if err != nil {
		return ViewPage{}, err
	}
	return s.page(docID, v, v.Entries()), nil
}

// LoadMore appends the next page to the view on docID and returns it.
func (s *Service) LoadMore(ctx context.Context, docID string) (ViewPage, error) {
	v, err := s.viewFor(ctx, docID)
	if err != nil {
		return ViewPage{}, err
	}
	entries, err := v.LoadMore(ctx)
	if err != nil {
		return ViewPage{}, err
	}
	return s.page(docID, v, entries), nil
}

func (s *Service) page(docID string, v *streamview.View, entries []streamview.Entry) ViewPage {
	if entries == nil {
		entries = []streamview.Entry{}
	}
	return ViewPage{DocumentID: docID, Stream: v.Stream(), Entries: entries, HasMore: v.HasMore()}
}

// viewFor returns the view behind the aggregate tab docID, building it on
// first use or when the stream's settings changed since.
func (s *Service) viewFor(ctx context.Context, docID string) (*streamview.View, error) {
	doc, ok := s.ws.Document(docID)
	if !ok || doc.Binding.Kind != workspace.KindAggregate {
		return nil, fmt.Errorf("streamservice: stream view %s: %w", docID, apperr.ErrNotFound)
	}
	st, err := s.Stream(doc.Binding.StreamID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if ov, ok := s.views[docID]; ok {
		if ov.view.Stream() == st {
			s.mu.Unlock()
			return ov.view, nil
		}
		delete(s.views, docID)
		ov.unsub()
		ov.view.Close()
	}
	s.mu.Unlock()

	v := streamview.New(st, s.files, s.pageSize, s.logger)
	if err := v.Reload(ctx); err != nil {
		return nil, err
	}
	unsub := s.hub.Subscribe(func(ev events.Event) {
		if _, ok := streams.IsDailyNote(ev.Path, st); !ok {
			return
		}
		s.refreshView(v)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if ov, ok := s.views[docID]; ok {
		// Lost a race with another caller.
		unsub()
		v.Close()
		return ov.view, nil
	}
	s.views[docID] = &openView{view: v, unsub: unsub}
	return v, nil
}

// refreshView rescans after a change on disk and reloads as many notes as
// were loaded before.
func (s *Service) refreshView(v *streamview.View) {
	err := v.Refresh(s.ctx)
	switch {
	case err == nil,
		errors.Is(err, streamview.ErrClosed),
		errors.Is(err, streamview.ErrStale),
		errors.Is(err, apperr.ErrBusy),
		errors.Is(err, context.Canceled):
	default:
		s.logger.Warn("stream view refresh failed", slog.String("stream", v.Stream().ID), slog.String("error", err.Error()))
	}
}

// pruneViews drops views whose tab has been closed.
func (s *Service) pruneViews() {
	s.mu.Lock()
	var dead []*openView
	for id, ov := range s.views {
		if _, ok := s.ws.Document(id); !ok {
			dead = append(dead, ov)
			delete(s.views, id)
		}
	}
	s.mu.Unlock()
	for _, ov := range dead {
		ov.unsub()
		ov.view.Close()
	}
}

// closeOrphanedDocuments closes stream views and placeholders of streams
// that no longer exist.
func (s *Service) closeOrphanedDocuments(set models.Settings) {
	for _, doc := range s.ws.Documents() {
		b := doc.Binding
		if b.Kind != workspace.KindAggregate && b.Kind != workspace.KindPlaceholder {
			continue
		}
		if _, ok := streams.Find(b.StreamID, set.Streams); ok {
			continue
		}
		if err := s.ws.Close(doc.ID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			s.logger.Warn("close orphaned document failed", slog.String("doc", doc.ID), slog.String("error", err.Error()))
		}
	}
}

// ReadNote returns the daily note of streamID for d.
func (s *Service) ReadNote(_ context.Context, streamID string, d datekey.Key) (*NoteDetail, error) {
	t, err := s.Resolve(streamID, d)
	if err != nil {
		return nil, err
	}
	data, err := s.files.Read(t.FilePath)
	if err != nil {
		return nil, err
	}
	return buildNoteDetail(t, data), nil
}

// CreateNote writes a new daily note without opening it. It fails with
// apperr.ErrAlreadyExists if the note is present.
func (s *Service) CreateNote(_ context.Context, streamID string, d datekey.Key, content []byte) (*NoteDetail, error) {
	t, err := s.Resolve(streamID, d)
	if err != nil {
		return nil, err
	}
	if dir := datekey.Dir(t.FilePath); dir != "" {
		if err := s.files.CreateFolder(dir); err != nil {
			return nil, fmt.Errorf("streamservice: create folder %s: %w: %w", dir, apperr.ErrStorageWrite, err)
		}
	}
	if _, err := s.files.CreateFile(t.FilePath, content); err != nil {
		return nil, err
	}
	s.reindex(t.FilePath)
	return buildNoteDetail(t, content), nil
}

// WriteNote replaces the content of an existing daily note. ifMatch, when
// set, must name the current content (see checksum.Matches).
func (s *Service) WriteNote(_ context.Context, streamID string, d datekey.Key, content []byte, ifMatch string) (*NoteDetail, error) {
	t, err := s.Resolve(streamID, d)
	if err != nil {
		return nil, err
	}
	existing, err := s.files.Read(t.FilePath)
	if err != nil {
		return nil, err
	}
	if !checksum.Matches(existing, ifMatch) {
		return nil, fmt.Errorf("streamservice: write %s: %w", t.FilePath, apperr.ErrConflict)
	}
	if err := s.files.Write(t.FilePath, content); err != nil {
		return nil, err
	}
	s.reindex(t.FilePath)
	return buildNoteDetail(t, content), nil
}

func (s *Service) reindex(p string) {
	if p == "" {
		return
	}
	data, err := s.files.Read(p)
	if err != nil {
		return
	}
	if err := index.IndexFile(s.db, p, data); err != nil {
		s.logger.Warn("index update failed", slog.String("path", p), slog.String("error", err.Error()))
	}
}

func buildNoteDetail(t navigation.Target, data []byte) *NoteDetail {
	res := parser.Parse(data)
	title := res.Title
	if title == "" {
		title = t.Date.String()
	}
	tags := res.Tags
	if tags == nil {
		tags = []string{}
	}
	return &NoteDetail{
		StreamID:    t.StreamID,
		Date:        t.Date,
		Path:        t.FilePath,
		Title:       title,
		Content:     string(data),
		Checksum:    checksum.Sum(data),
		Tags:        tags,
		Frontmatter: res.Frontmatter,
		Words:       res.Words,
	}
}

// Search runs a full-text query over the notes of streamID.
func (s *Service) Search(_ context.Context, streamID, query string, limit int) ([]index.SearchResult, error) {
	st, err := s.Stream(streamID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	res, err := s.db.Search(st.Folder, query, limit)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = []index.SearchResult{}
	}
	return res, nil
}

// Stats summarises the indexed notes of streamID.
func (s *Service) Stats(_ context.Context, streamID string) (StreamStats, error) {
	st, err := s.Stream(streamID)
	if err != nil {
		return StreamStats{}, err
	}
	base, err := s.db.Stats(st.Folder)
	if err != nil {
		return StreamStats{}, err
	}
	dates, err := s.db.Dates(st.Folder)
	if err != nil {
		return StreamStats{}, err
	}
	return StreamStats{Stats: base, StreamID: st.ID, Streak: streak(dates, s.Today())}, nil
}

func streak(dates []datekey.Key, today datekey.Key) int {
	have := make(map[datekey.Key]struct{}, len(dates))
	for _, d := range dates {
		have[d] = struct{}{}
	}
	day := today
	if _, ok := have[day]; !ok {
		day = day.AddDays(-1)
	}
	n := 0
	for {
		if _, ok := have[day]; !ok {
			return n
		}
		n++
		day = day.AddDays(-1)
	}
}

type nopRenderer struct{}

func (nopRenderer) Render(calendar.Snapshot) {}
func (nopRenderer) Unmount(string)           {}
