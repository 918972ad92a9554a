package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/daystreams/internal/streamservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events; it also accepts the
// token as an access_token query parameter.
func NewRouter(svc *streamservice.Service, authEnabled bool, token string, sseHandler http.Handler, logger *slog.Logger) chi.Router {
	h := NewHandler(svc, logger)

	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token))

		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)

		r.Route("/streams", func(r chi.Router) {
			r.Get("/", h.ListStreams)
			r.Post("/", h.CreateStream)
			r.Route("/{streamID}", func(r chi.Router) {
				r.Get("/", h.GetStream)
				r.Patch("/", h.UpdateStream)
				r.Delete("/", h.DeleteStream)

				r.Get("/calendar", h.MonthGrid)
				r.Post("/navigate", h.Navigate)
				r.Post("/adjacent", h.Adjacent)
				r.Post("/today", h.Today)
				r.Post("/view", h.OpenStreamView)

				r.Get("/notes/{date}", h.GetNote)
				r.Post("/notes/{date}", h.CreateNote)
				r.Put("/notes/{date}", h.UpdateNote)

				r.Get("/search", h.Search)
				r.Get("/stats", h.Stats)
			})
		})

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", h.ListDocuments)
			r.Route("/{docID}", func(r chi.Router) {
				r.Post("/activate", h.ActivateDocument)
				r.Put("/pin", h.PinDocument)
				r.Delete("/", h.CloseDocument)
				r.Post("/create", h.CreateFromPlaceholder)
				r.Get("/entries", h.ViewEntries)
				r.Post("/entries/more", h.LoadMore)
			})
		})

		r.Route("/widgets", func(r chi.Router) {
			r.Get("/", h.ListWidgets)
			r.Route("/{docID}", func(r chi.Router) {
				r.Get("/", h.GetWidget)
				r.Post("/month", h.WidgetMonth)
				r.Put("/expanded", h.WidgetExpanded)
				r.Post("/select", h.WidgetSelect)
				r.Post("/step", h.WidgetStep)
			})
		})

		r.Get("/commands", h.ListCommands)
		r.Post("/commands/{commandID}/execute", h.ExecuteCommand)
	})

	if sseHandler != nil {
		r.Group(func(r chi.Router) {
			r.Use(EventsAuthMiddleware(authEnabled, token))
			r.Get("/events", sseHandler.ServeHTTP)
		})
	}

	return r
}
