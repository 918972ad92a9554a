package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/daystreams/internal/storage"
	"github.com/starford/daystreams/internal/testutil"
)

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()
	env := testutil.TestService(t, nil, nil, []string{"Journal"})
	return New(env.Svc), env.Files
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_streams":
		result, err = srv.listStreams(ctx, req)
	case "open_daily_note":
		result, err = srv.openDailyNote(ctx, req)
	case "read_daily_note":
		result, err = srv.readDailyNote(ctx, req)
	case "create_daily_note":
		result, err = srv.createDailyNote(ctx, req)
	case "month_calendar":
		result, err = srv.monthCalendar(ctx, req)
	case "search_stream":
		result, err = srv.searchStream(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadDailyNote(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_daily_note", map[string]interface{}{
		"stream":  "journal",
		"date":    "2024-02-09",
		"content": "# Friday\nHello",
	})
	if r.IsError {
		t.Fatalf("create failed: %s", resultText(r))
	}
	if text := resultText(r); text != "created: Journal/2024-02-09.md" {
		t.Errorf("create result = %q", text)
	}

	r = callTool(t, srv, "read_daily_note", map[string]interface{}{
		"stream": "Journal",
		"date":   "2024-02-09",
	})
	if text := resultText(r); text != "# Friday\nHello" {
		t.Errorf("read result = %q", text)
	}
}

func TestCreateDailyNoteNeverOverwrites(t *testing.T) {
	srv, fs := testServer(t)
	if err := fs.Write("Journal/2024-02-10.md", []byte("original")); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "create_daily_note", map[string]interface{}{
		"stream":  "Journal",
		"content": "replacement",
	})
	if !r.IsError {
		t.Fatal("expected error for existing note")
	}
	data, err := fs.Read("Journal/2024-02-10.md")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "original" {
		t.Errorf("note was overwritten: %q", data)
	}
}

func TestReadDailyNoteMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_daily_note", map[string]interface{}{"stream": "Journal"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestUnknownStreamAndBadDate(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "open_daily_note", map[string]interface{}{"stream": "Work"})
	if !r.IsError || !strings.Contains(resultText(r), "list_streams") {
		t.Errorf("unknown stream result = %q", resultText(r))
	}

	r = callTool(t, srv, "open_daily_note", map[string]interface{}{
		"stream": "Journal",
		"date":   "2024-02-30",
	})
	if !r.IsError {
		t.Error("expected error for impossible date")
	}
}

func TestOpenDailyNoteShowsPlaceholder(t *testing.T) {
	srv, fs := testServer(t)

	r := callTool(t, srv, "open_daily_note", map[string]interface{}{"stream": "Journal"})
	if r.IsError {
		t.Fatalf("open failed: %s", resultText(r))
	}
	if text := resultText(r); !strings.Contains(text, `"placeholder-opened"`) {
		t.Errorf("open result = %s", text)
	}
	if fs.Exists("Journal/2024-02-10.md") {
		t.Error("opening a missing day must not create the file")
	}
}

func TestListStreams(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "list_streams", map[string]interface{}{})
	if text := resultText(r); !strings.Contains(text, `"name": "Journal"`) {
		t.Errorf("list = %s", text)
	}
}

func TestMonthCalendar(t *testing.T) {
	srv, fs := testServer(t)
	_ = fs.Write("Journal/2024-02-05.md", []byte("short"))
	_ = fs.Write("Journal/2024-02-06.md", []byte(strings.Repeat("x", 2000)))

	r := callTool(t, srv, "month_calendar", map[string]interface{}{"stream": "Journal"})
	text := resultText(r)
	if !strings.HasPrefix(text, "Journal February 2024\n") {
		t.Errorf("header = %q", text)
	}
	for _, want := range []string{" 5· ", " 6• ", "10 *"} {
		if !strings.Contains(text, want) {
			t.Errorf("calendar missing %q:\n%s", want, text)
		}
	}

	r = callTool(t, srv, "month_calendar", map[string]interface{}{"stream": "Journal", "month": "2024-13"})
	if !r.IsError {
		t.Error("expected error for invalid month")
	}
}

func TestSearchStream(t *testing.T) {
	srv, _ := testServer(t)
	_ = callTool(t, srv, "create_daily_note", map[string]interface{}{
		"stream":  "Journal",
		"date":    "2024-02-08",
		"content": "walked past the lighthouse",
	})

	r := callTool(t, srv, "search_stream", map[string]interface{}{
		"stream": "Journal",
		"query":  "lighthouse",
	})
	if text := resultText(r); !strings.Contains(text, "2024-02-08.md") {
		t.Errorf("search = %s", text)
	}
}

func TestFilenameConventionResource(t *testing.T) {
	srv, _ := testServer(t)
	contents, err := srv.readConventionResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != conventionURI || !strings.Contains(tc.Text, "YYYY-MM-DD") {
		t.Errorf("resource = %#v", contents[0])
	}
}
