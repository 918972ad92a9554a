// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/daystreams/internal/api"
	"github.com/starford/daystreams/internal/calendar"
	"github.com/starford/daystreams/internal/events"
	"github.com/starford/daystreams/internal/index"
	"github.com/starford/daystreams/internal/navigation"
	"github.com/starford/daystreams/internal/sse"
	"github.com/starford/daystreams/internal/storage"
	"github.com/starford/daystreams/internal/streams"
	"github.com/starford/daystreams/internal/streamservice"
)

// runtime is the state shared by every command that touches the vault.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	files  *storage.FS
	store  *streams.Store
	db     *index.DB
	hub    *events.Hub
}

func bootstrap(app *application) (*runtime, error) {
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(app.logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("settings_path", cfg.Streams.SettingsPath),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	files, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	store, err := streams.Open(cfg.Streams.SettingsPath, logger)
	if err != nil {
		return nil, fmt.Errorf("init streams: %w", err)
	}
	if v := cfg.Navigation.ReuseCurrentTab; v != nil {
		store.OverrideReuseCurrentTab(*v)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	// Run initial sync.
	if err := index.Sync(db, files, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return &runtime{
		cfg:    cfg,
		logger: logger,
		files:  files,
		store:  store,
		db:     db,
		hub:    events.NewHub(),
	}, nil
}

func (rt *runtime) service(ctx context.Context, render calendar.Renderer, notifier navigation.Notifier) *streamservice.Service {
	return streamservice.New(ctx, rt.store, rt.files, rt.db, rt.hub, render, notifier, rt.logger,
		streamservice.WithPageSize(rt.cfg.StreamView.PageSize))
}

// watch indexes vault changes and fans them out on the hub until ctx ends.
func (rt *runtime) watch(ctx context.Context) error {
	if err := index.Watch(ctx, rt.db, rt.files, rt.cfg.Vault.Path, rt.hub, rt.logger); err != nil {
		return fmt.Errorf("watch vault: %w", err)
	}
	return nil
}

func (rt *runtime) Close() {
	if err := rt.db.Close(); err != nil {
		rt.logger.Warn("close index", slog.String("error", err.Error()))
	}
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(os.Stdout, opts)
	if err != nil {
		return err
	}
	rt, err := bootstrap(app)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := app.config
	logger := rt.logger

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// SSE broker doubles as widget renderer and notice sink for API clients.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	unsubscribe := rt.hub.Subscribe(broker.PublishFileEvent)
	defer unsubscribe()

	svc := rt.service(ctx, broker, broker)
	defer svc.Close()

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := rt.db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return rt.watch(gCtx)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		cancel()

		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
