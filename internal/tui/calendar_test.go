package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/daystreams/internal/calendar"
	"github.com/starford/daystreams/internal/datekey"
	"github.com/starford/daystreams/internal/models"
)

func testGrid() *calendar.Grid {
	g := calendar.Layout("s1", datekey.Month{Year: 2024, Month: time.February})
	calendar.Apply(g, calendar.Contents{5: calendar.IndicatorSmall, 14: calendar.IndicatorLarge},
		datekey.New(2024, time.February, 10), datekey.New(2024, time.February, 20))
	return g
}

func TestRenderMonth_Expanded(t *testing.T) {
	out := RenderMonth(DefaultStyles(), models.NewStream("Journal", "Journal"), testGrid(), true)
	lines := strings.Split(out, "\n")

	// title, weekday header, five weeks
	if len(lines) != 7 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if lines[0] != "February 2024" {
		t.Errorf("title = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Su  Mo") {
		t.Errorf("header = %q", lines[1])
	}
	if !strings.Contains(out, " 5·") || !strings.Contains(out, "14●") {
		t.Errorf("indicators missing:\n%s", out)
	}
}

func TestRenderMonth_CollapsedShowsViewedWeek(t *testing.T) {
	out := RenderMonth(DefaultStyles(), models.NewStream("Journal", "Journal"), testGrid(), false)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[2], "18") || !strings.Contains(lines[2], "24") {
		t.Errorf("collapsed week = %q, want 18..24", lines[2])
	}
}

func TestRenderMonth_Nil(t *testing.T) {
	if RenderMonth(DefaultStyles(), models.Stream{}, nil, true) != "" {
		t.Error("nil grid should render empty")
	}
}
