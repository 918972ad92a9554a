// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes daystreams tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/daystreams/internal/apperr"
	"github.com/starford/daystreams/internal/calendar"
	"github.com/starford/daystreams/internal/datekey"
	"github.com/starford/daystreams/internal/models"
	"github.com/starford/daystreams/internal/streamservice"
)

const conventionURI = "daystreams://filename-convention"

// Server wraps the MCP server with daystreams tools.
type Server struct {
	mcp *server.MCPServer
	svc *streamservice.Service
}

// New creates a new MCP server with all daystreams tools registered.
func New(svc *streamservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Daystreams",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_streams",
		mcp.WithDescription("List the configured streams (folders of daily notes) with their ids."),
	), s.listStreams)

	s.mcp.AddTool(mcp.NewTool("open_daily_note",
		mcp.WithDescription("Open the daily note of a stream for a date. "+
			"A missing note is shown as an unsaved placeholder, not created."),
		mcp.WithString("stream", mcp.Required(), mcp.Description("Stream id or name")),
		mcp.WithString("date", mcp.Description("Day as YYYY-MM-DD (default: today)")),
	), s.openDailyNote)

	s.mcp.AddTool(mcp.NewTool("read_daily_note",
		mcp.WithDescription("Read the Markdown of a stream's daily note."),
		mcp.WithString("stream", mcp.Required(), mcp.Description("Stream id or name")),
		mcp.WithString("date", mcp.Description("Day as YYYY-MM-DD (default: today)")),
	), s.readDailyNote)

	s.mcp.AddTool(mcp.NewTool("create_daily_note",
		mcp.WithDescription("Create a stream's daily note for a date. Never overwrites; "+
			"read the "+conventionURI+" resource for the file layout."),
		mcp.WithString("stream", mcp.Required(), mcp.Description("Stream id or name")),
		mcp.WithString("date", mcp.Description("Day as YYYY-MM-DD (default: today)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content")),
	), s.createDailyNote)

	s.mcp.AddTool(mcp.NewTool("month_calendar",
		mcp.WithDescription("Show a month of a stream as a calendar with a size mark on each day that has a note."),
		mcp.WithString("stream", mcp.Required(), mcp.Description("Stream id or name")),
		mcp.WithString("month", mcp.Description("Month as YYYY-MM (default: current)")),
	), s.monthCalendar)

	s.mcp.AddTool(mcp.NewTool("search_stream",
		mcp.WithDescription("Full-text search through the daily notes of one stream, newest first."),
		mcp.WithString("stream", mcp.Required(), mcp.Description("Stream id or name")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.searchStream)

	s.mcp.AddResource(
		mcp.NewResource(conventionURI, "Daily Note Filename Convention",
			mcp.WithResourceDescription("How daily notes are named and where they live."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readConventionResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// stream finds a stream by id, then by case-insensitive name.
func (s *Server) stream(ref string) (models.Stream, error) {
	if st, err := s.svc.Stream(ref); err == nil {
		return st, nil
	}
	for _, st := range s.svc.Streams() {
		if strings.EqualFold(st.Name, ref) {
			return st, nil
		}
	}
	return models.Stream{}, fmt.Errorf("unknown stream %q; call list_streams", ref)
}

// target reads the stream and date arguments shared by the note tools.
func (s *Server) target(req mcp.CallToolRequest) (models.Stream, datekey.Key, error) {
	ref, err := req.RequireString("stream")
	if err != nil {
		return models.Stream{}, datekey.Key{}, err
	}
	st, err := s.stream(ref)
	if err != nil {
		return models.Stream{}, datekey.Key{}, err
	}
	raw := req.GetString("date", "")
	if raw == "" {
		return st, s.svc.Today(), nil
	}
	d, ok := datekey.Parse(raw)
	if !ok || !d.Valid() {
		return models.Stream{}, datekey.Key{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw)
	}
	return st, d, nil
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listStreams(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Streams()), nil
}

func (s *Server) openDailyNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, d, err := s.target(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Navigate(ctx, st.ID, d)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) readDailyNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, d, err := s.target(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.ReadNote(ctx, st.ID, d)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("no note for %s in %s", d, st.Name)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(note.Content), nil
}

func (s *Server) createDailyNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, d, err := s.target(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.CreateNote(ctx, st.ID, d, []byte(content))
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return mcp.NewToolResultError(fmt.Sprintf("note already exists: %s", d)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", note.Path)), nil
}

func (s *Server) monthCalendar(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("stream")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	st, err := s.stream(ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	month := s.svc.Today().MonthOf()
	if raw := req.GetString("month", ""); raw != "" {
		m, ok := datekey.ParseMonth(raw)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("invalid month %q, want YYYY-MM", raw)), nil
		}
		month = m
	}
	g, err := s.svc.MonthGrid(ctx, st.ID, month, datekey.Key{})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatGrid(st, g)), nil
}

func (s *Server) searchStream(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("stream")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	st, err := s.stream(ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, st.ID, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) readConventionResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      conventionURI,
			MIMEType: "text/markdown",
			Text:     FilenameConvention,
		},
	}, nil
}

var marks = map[calendar.Indicator]string{
	calendar.IndicatorSmall:  "·",
	calendar.IndicatorMedium: "•",
	calendar.IndicatorLarge:  "●",
}

// formatGrid renders g as a fixed-width text calendar.
func formatGrid(st models.Stream, g *calendar.Grid) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %d\n", st.Name, g.Month.Month, g.Month.Year)
	for _, h := range g.Headers {
		fmt.Fprintf(&b, "%-4s", h)
	}
	b.WriteString("\n")

	col := 0
	for ; col < g.Leading; col++ {
		b.WriteString("    ")
	}
	for _, c := range g.Days {
		mark := marks[c.Indicator]
		if mark == "" {
			mark = " "
		}
		today := " "
		if c.IsToday {
			today = "*"
		}
		fmt.Fprintf(&b, "%2d%s%s", c.Day, mark, today)
		col++
		if col%7 == 0 {
			b.WriteString("\n")
		}
	}
	if col%7 != 0 {
		b.WriteString("\n")
	}
	b.WriteString("· <1KiB  • <5KiB  ● larger  * today\n")
	return b.String()
}
