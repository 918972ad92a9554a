package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/starford/daystreams/internal/apperr"
	"github.com/starford/daystreams/internal/datekey"
	"github.com/starford/daystreams/internal/mcpserver"
	"github.com/starford/daystreams/internal/models"
	"github.com/starford/daystreams/internal/streams"
	"github.com/starford/daystreams/internal/tui"
)

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(os.Stderr, opts)
	if err != nil {
		return err
	}
	rt, err := bootstrap(app)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	svc := rt.service(ctx, nil, nil)
	defer svc.Close()

	go func() {
		if err := rt.watch(ctx); err != nil {
			rt.logger.Error("watcher failed", slog.String("error", err.Error()))
		}
	}()

	rt.logger.Info("MCP server starting on stdio")
	if err := mcpserver.New(svc).ServeStdio(); err != nil {
		return fmt.Errorf("mcp: %w", err)
	}
	return nil
}

// RunBrowse opens the terminal browser. Logs are dropped unless
// WithLogOutput is given, since the browser owns the terminal.
func RunBrowse(ctx context.Context, opts ...Option) error {
	app, err := newApplication(io.Discard, opts)
	if err != nil {
		return err
	}
	rt, err := bootstrap(app)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bridge := tui.NewBridge(64)
	svc := rt.service(ctx, bridge, bridge)
	defer svc.Close()

	go func() {
		if err := rt.watch(ctx); err != nil {
			rt.logger.Error("watcher failed", slog.String("error", err.Error()))
		}
	}()

	return tui.Run(ctx, svc, bridge)
}

// PrintCalendar writes the month grid of one stream to w. month is YYYY-MM;
// empty means the current month.
func PrintCalendar(ctx context.Context, w io.Writer, streamRef, month string, opts ...Option) error {
	app, err := newApplication(io.Discard, opts)
	if err != nil {
		return err
	}
	rt, err := bootstrap(app)
	if err != nil {
		return err
	}
	defer rt.Close()

	st, err := findStream(rt.store, streamRef)
	if err != nil {
		return err
	}

	svc := rt.service(ctx, nil, nil)
	defer svc.Close()

	m := svc.Today().MonthOf()
	if month != "" {
		parsed, ok := datekey.ParseMonth(month)
		if !ok {
			return fmt.Errorf("invalid month %q, want YYYY-MM: %w", month, apperr.ErrInvalidDate)
		}
		m = parsed
	}
	g, err := svc.MonthGrid(ctx, st.ID, m, datekey.Key{})
	if err != nil {
		return err
	}

	fmt.Fprintln(w, st.Name)
	fmt.Fprintln(w, tui.RenderMonth(tui.DefaultStyles(), st, g, true))
	return nil
}

// ListStreams prints the configured streams as a table.
func ListStreams(w io.Writer, opts ...Option) error {
	store, err := openStreams(opts)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tFOLDER")
	for _, st := range store.Streams() {
		folder := st.Folder
		if folder == "" {
			folder = "/"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", st.ID, st.Name, folder)
	}
	return tw.Flush()
}

// AddStream appends a stream to the settings file.
func AddStream(w io.Writer, name, folder string, opts ...Option) error {
	store, err := openStreams(opts)
	if err != nil {
		return err
	}
	st, err := store.Add(name, folder)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "added %s (%s)\n", st.Name, st.ID)
	return nil
}

// RemoveStream deletes a stream, by id or name, from the settings file.
// Notes in its folder are left alone.
func RemoveStream(w io.Writer, ref string, opts ...Option) error {
	store, err := openStreams(opts)
	if err != nil {
		return err
	}
	st, err := findStream(store, ref)
	if err != nil {
		return err
	}
	if err := store.Remove(st.ID); err != nil {
		return err
	}
	fmt.Fprintf(w, "removed %s (%s)\n", st.Name, st.ID)
	return nil
}

func openStreams(opts []Option) (*streams.Store, error) {
	app, err := newApplication(io.Discard, opts)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(app.logOut, &slog.HandlerOptions{Level: app.config.App.LogLevel}))
	store, err := streams.Open(app.config.Streams.SettingsPath, logger)
	if err != nil {
		return nil, fmt.Errorf("init streams: %w", err)
	}
	return store, nil
}

// findStream matches ref against stream ids, then names ignoring case.
func findStream(store *streams.Store, ref string) (models.Stream, error) {
	if st, ok := store.Stream(ref); ok {
		return st, nil
	}
	for _, st := range store.Streams() {
		if strings.EqualFold(st.Name, ref) {
			return st, nil
		}
	}
	return models.Stream{}, fmt.Errorf("stream %q: %w", ref, apperr.ErrStreamNotFound)
}
