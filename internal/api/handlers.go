package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/daystreams/internal/apperr"
	"github.com/starford/daystreams/internal/calendar"
	"github.com/starford/daystreams/internal/checksum"
	"github.com/starford/daystreams/internal/datekey"
	"github.com/starford/daystreams/internal/streams"
	"github.com/starford/daystreams/internal/streamservice"
	"github.com/starford/daystreams/internal/streamview"
	"github.com/starford/daystreams/internal/workspace"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *streamservice.Service
	logger *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(svc *streamservice.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger.With(slog.String("component", "api"))}
}

// fail maps a service error to a status code. Unclassified errors are
// logged and reported as internal.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr validation.Errors
	switch {
	case errors.Is(err, apperr.ErrStreamNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("stream not found"))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrInvalidDate):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid date"))
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody(verr.Error()))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("already exists"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, apperr.ErrBusy):
		writeJSON(w, http.StatusConflict, errorBody("load already in progress"))
	case errors.Is(err, streamview.ErrStale):
		writeJSON(w, http.StatusConflict, errorBody("view reloaded, retry"))
	case errors.Is(err, streamview.ErrClosed):
		writeJSON(w, http.StatusGone, errorBody("view closed"))
	default:
		h.logger.Error(op+" failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func dateParam(w http.ResponseWriter, raw string) (datekey.Key, bool) {
	d, ok := datekey.Parse(raw)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
		return datekey.Key{}, false
	}
	return d, true
}

// ListStreams handles GET /api/streams.
//
//	@Summary		List configured streams
//	@Tags			streams
//	@Produce		json
//	@Success		200	{object}	StreamListResponse
//	@Security		BearerAuth
//	@Router			/streams [get]
func (h *Handler) ListStreams(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StreamListResponse{Streams: h.svc.Streams()})
}

// CreateStream handles POST /api/streams.
//
//	@Summary		Add a stream
//	@Tags			streams
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateStreamRequest	true	"Stream to add"
//	@Success		201		{object}	models.Stream
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/streams [post]
func (h *Handler) CreateStream(w http.ResponseWriter, r *http.Request) {
	var req CreateStreamRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := h.svc.AddStream(req.Name, req.Folder)
	if err != nil {
		h.fail(w, r, "create stream", err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// GetStream handles GET /api/streams/{streamID}.
func (h *Handler) GetStream(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stream(chi.URLParam(r, "streamID"))
	if err != nil {
		h.fail(w, r, "get stream", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// UpdateStream handles PATCH /api/streams/{streamID}.
//
//	@Summary		Change stream options
//	@Tags			streams
//	@Accept			json
//	@Produce		json
//	@Param			streamID	path		string				true	"Stream ID"
//	@Param			body		body		UpdateStreamRequest	true	"Fields to change"
//	@Success		200			{object}	models.Stream
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/streams/{streamID} [patch]
func (h *Handler) UpdateStream(w http.ResponseWriter, r *http.Request) {
	var req UpdateStreamRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := h.svc.UpdateStream(chi.URLParam(r, "streamID"), req)
	if err != nil {
		h.fail(w, r, "update stream", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// DeleteStream handles DELETE /api/streams/{streamID}.
func (h *Handler) DeleteStream(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveStream(chi.URLParam(r, "streamID")); err != nil {
		h.fail(w, r, "delete stream", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Settings())
}

// UpdateSettings handles PUT /api/settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ReuseCurrentTab != nil {
		if err := h.svc.SetReuseCurrentTab(*req.ReuseCurrentTab); err != nil {
			h.fail(w, r, "update settings", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, h.svc.Settings())
}

// MonthGrid handles GET /api/streams/{streamID}/calendar.
//
//	@Summary		Month grid with note-size indicators
//	@Tags			calendar
//	@Produce		json
//	@Param			streamID	path		string	true	"Stream ID"
//	@Param			month		query		string	false	"Month as YYYY-MM (default: current)"
//	@Param			viewed		query		string	false	"Day to highlight as YYYY-MM-DD"
//	@Success		200			{object}	calendar.Grid
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/streams/{streamID}/calendar [get]
func (h *Handler) MonthGrid(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	month := h.svc.Today().MonthOf()
	if raw := q.Get("month"); raw != "" {
		m, ok := datekey.ParseMonth(raw)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorBody("month must be YYYY-MM"))
			return
		}
		month = m
	}
	var viewed datekey.Key
	if raw := q.Get("viewed"); raw != "" {
		d, ok := dateParam(w, raw)
		if !ok {
			return
		}
		viewed = d
	}
	grid, err := h.svc.MonthGrid(r.Context(), chi.URLParam(r, "streamID"), month, viewed)
	if err != nil {
		h.fail(w, r, "month grid", err)
		return
	}
	writeJSON(w, http.StatusOK, grid)
}

// Navigate handles POST /api/streams/{streamID}/navigate.
//
//	@Summary		Open the daily note for a date
//	@Tags			navigation
//	@Accept			json
//	@Produce		json
//	@Param			streamID	path		string			true	"Stream ID"
//	@Param			body		body		NavigateRequest	true	"Target day"
//	@Success		200			{object}	navigation.Result
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/streams/{streamID}/navigate [post]
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req NavigateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, ok := dateParam(w, req.Date)
	if !ok {
		return
	}
	res, err := h.svc.Navigate(r.Context(), chi.URLParam(r, "streamID"), d)
	if err != nil {
		h.fail(w, r, "navigate", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Adjacent handles POST /api/streams/{streamID}/adjacent.
func (h *Handler) Adjacent(w http.ResponseWriter, r *http.Request) {
	var req AdjacentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var anchor datekey.Key
	if req.Anchor != "" {
		d, ok := dateParam(w, req.Anchor)
		if !ok {
			return
		}
		anchor = d
	}
	res, err := h.svc.NavigateAdjacent(r.Context(), chi.URLParam(r, "streamID"), anchor, req.Offset)
	if err != nil {
		h.fail(w, r, "adjacent", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Today handles POST /api/streams/{streamID}/today.
func (h *Handler) Today(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.OpenToday(r.Context(), chi.URLParam(r, "streamID"))
	if err != nil {
		h.fail(w, r, "open today", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// OpenStreamView handles POST /api/streams/{streamID}/view.
//
//	@Summary		Open the aggregate view of a stream
//	@Tags			views
//	@Produce		json
//	@Param			streamID	path		string	true	"Stream ID"
//	@Success		200			{object}	ViewPage
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/streams/{streamID}/view [post]
func (h *Handler) OpenStreamView(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.OpenStreamView(r.Context(), chi.URLParam(r, "streamID"))
	if err != nil {
		h.fail(w, r, "open stream view", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetNote handles GET /api/streams/{streamID}/notes/{date}.
//
//	@Summary		Read a daily note
//	@Tags			notes
//	@Produce		json
//	@Param			streamID	path		string	true	"Stream ID"
//	@Param			date		path		string	true	"Day as YYYY-MM-DD"
//	@Success		200			{object}	NoteDetail
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/streams/{streamID}/notes/{date} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	d, ok := dateParam(w, chi.URLParam(r, "date"))
	if !ok {
		return
	}
	note, err := h.svc.ReadNote(r.Context(), chi.URLParam(r, "streamID"), d)
	if err != nil {
		h.fail(w, r, "get note", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(note.Checksum))
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/streams/{streamID}/notes/{date}.
//
//	@Summary		Create a daily note without opening it
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			streamID	path		string				true	"Stream ID"
//	@Param			date		path		string				true	"Day as YYYY-MM-DD"
//	@Param			body		body		NoteContentRequest	true	"Initial content"
//	@Success		201			{object}	NoteDetail
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/streams/{streamID}/notes/{date} [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	d, ok := dateParam(w, chi.URLParam(r, "date"))
	if !ok {
		return
	}
	var req NoteContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.svc.CreateNote(r.Context(), chi.URLParam(r, "streamID"), d, []byte(req.Content))
	if err != nil {
		h.fail(w, r, "create note", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(note.Checksum))
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/streams/{streamID}/notes/{date}.
//
//	@Summary		Replace a daily note with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			streamID	path		string				true	"Stream ID"
//	@Param			date		path		string				true	"Day as YYYY-MM-DD"
//	@Param			If-Match	header		string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		NoteContentRequest	true	"New content"
//	@Success		200			{object}	NoteDetail
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/streams/{streamID}/notes/{date} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	d, ok := dateParam(w, chi.URLParam(r, "date"))
	if !ok {
		return
	}
	var req NoteContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.svc.WriteNote(r.Context(), chi.URLParam(r, "streamID"), d, []byte(req.Content), r.Header.Get("If-Match"))
	if err != nil {
		h.fail(w, r, "update note", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(note.Checksum))
	writeJSON(w, http.StatusOK, note)
}

// Search handles GET /api/streams/{streamID}/search.
//
//	@Summary		Full-text search within a stream
//	@Tags			search
//	@Produce		json
//	@Param			streamID	path		string	true	"Stream ID"
//	@Param			q			query		string	true	"Search query"
//	@Param			limit		query		int		false	"Max results"
//	@Success		200			{object}	SearchResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/streams/{streamID}/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), chi.URLParam(r, "streamID"), q, limit)
	if err != nil {
		h.fail(w, r, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Stats handles GET /api/streams/{streamID}/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context(), chi.URLParam(r, "streamID"))
	if err != nil {
		h.fail(w, r, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ListDocuments handles GET /api/documents.
func (h *Handler) ListDocuments(w http.ResponseWriter, _ *http.Request) {
	docs := h.svc.Documents()
	if docs == nil {
		docs = []workspace.Document{}
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: docs})
}

// ActivateDocument handles POST /api/documents/{docID}/activate.
func (h *Handler) ActivateDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ActivateDocument(chi.URLParam(r, "docID")); err != nil {
		h.fail(w, r, "activate document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PinDocument handles PUT /api/documents/{docID}/pin.
func (h *Handler) PinDocument(w http.ResponseWriter, r *http.Request) {
	var req PinRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.PinDocument(chi.URLParam(r, "docID"), req.Pinned); err != nil {
		h.fail(w, r, "pin document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CloseDocument handles DELETE /api/documents/{docID}.
func (h *Handler) CloseDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CloseDocument(chi.URLParam(r, "docID")); err != nil {
		h.fail(w, r, "close document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateFromPlaceholder handles POST /api/documents/{docID}/create.
//
//	@Summary		Create the note a placeholder tab stands for
//	@Tags			navigation
//	@Accept			json
//	@Produce		json
//	@Param			docID	path		string				true	"Placeholder document ID"
//	@Param			body	body		NoteContentRequest	false	"Initial content"
//	@Success		201		{object}	navigation.Result
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{docID}/create [post]
func (h *Handler) CreateFromPlaceholder(w http.ResponseWriter, r *http.Request) {
	var req NoteContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.CreateFromPlaceholder(r.Context(), chi.URLParam(r, "docID"), []byte(req.Content))
	if err != nil {
		h.fail(w, r, "create from placeholder", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// ViewEntries handles GET /api/documents/{docID}/entries.
func (h *Handler) ViewEntries(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.ViewEntries(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		h.fail(w, r, "view entries", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// LoadMore handles POST /api/documents/{docID}/entries/more.
//
//	@Summary		Load the next page of a stream view
//	@Tags			views
//	@Produce		json
//	@Param			docID	path		string	true	"Stream view document ID"
//	@Success		200		{object}	ViewPage
//	@Failure		409		{object}	errResponse	"A load is already running"
//	@Security		BearerAuth
//	@Router			/documents/{docID}/entries/more [post]
func (h *Handler) LoadMore(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.LoadMore(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		h.fail(w, r, "load more", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ListWidgets handles GET /api/widgets.
func (h *Handler) ListWidgets(w http.ResponseWriter, _ *http.Request) {
	snaps := h.svc.Widgets()
	if snaps == nil {
		snaps = []calendar.Snapshot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"widgets": snaps})
}

// GetWidget handles GET /api/widgets/{docID}.
func (h *Handler) GetWidget(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Widget(chi.URLParam(r, "docID"))
	if err != nil {
		h.fail(w, r, "get widget", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// WidgetMonth handles POST /api/widgets/{docID}/month.
func (h *Handler) WidgetMonth(w http.ResponseWriter, r *http.Request) {
	var req MonthRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	docID := chi.URLParam(r, "docID")
	var (
		snap calendar.Snapshot
		err  error
	)
	switch {
	case req.Month != "":
		m, ok := datekey.ParseMonth(req.Month)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorBody("month must be YYYY-MM"))
			return
		}
		snap, err = h.svc.ShowMonth(r.Context(), docID, m)
	case req.Delta != 0:
		snap, err = h.svc.ShiftMonth(r.Context(), docID, req.Delta)
	case req.Today:
		snap, err = h.svc.ShowTodayMonth(r.Context(), docID)
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("one of month, delta or today is required"))
		return
	}
	if err != nil {
		h.fail(w, r, "widget month", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// WidgetExpanded handles PUT /api/widgets/{docID}/expanded.
func (h *Handler) WidgetExpanded(w http.ResponseWriter, r *http.Request) {
	var req ExpandRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	snap, err := h.svc.SetExpanded(chi.URLParam(r, "docID"), req.Expanded)
	if err != nil {
		h.fail(w, r, "widget expand", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// WidgetSelect handles POST /api/widgets/{docID}/select.
func (h *Handler) WidgetSelect(w http.ResponseWriter, r *http.Request) {
	var req NavigateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, ok := dateParam(w, req.Date)
	if !ok {
		return
	}
	res, err := h.svc.SelectDay(r.Context(), chi.URLParam(r, "docID"), d)
	if err != nil {
		h.fail(w, r, "widget select", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// WidgetStep handles POST /api/widgets/{docID}/step.
func (h *Handler) WidgetStep(w http.ResponseWriter, r *http.Request) {
	var req StepRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Offset == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("offset must be non-zero"))
		return
	}
	res, err := h.svc.StepDay(r.Context(), chi.URLParam(r, "docID"), req.Offset)
	if err != nil {
		h.fail(w, r, "widget step", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListCommands handles GET /api/commands. ?ribbon=true limits the list to
// ribbon entries.
func (h *Handler) ListCommands(w http.ResponseWriter, r *http.Request) {
	cmds := h.svc.Commands()
	if r.URL.Query().Get("ribbon") == "true" {
		cmds = h.svc.Ribbon()
	}
	if cmds == nil {
		cmds = []streams.Command{}
	}
	writeJSON(w, http.StatusOK, CommandListResponse{Commands: cmds})
}

// ExecuteCommand handles POST /api/commands/{commandID}/execute.
func (h *Handler) ExecuteCommand(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ExecuteCommand(r.Context(), chi.URLParam(r, "commandID"))
	if err != nil {
		h.fail(w, r, "execute command", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
