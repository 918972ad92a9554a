package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/starford/daystreams/internal/calendar"
	"github.com/starford/daystreams/internal/models"
)

var marks = map[calendar.Indicator]string{
	calendar.IndicatorSmall:  "·",
	calendar.IndicatorMedium: "•",
	calendar.IndicatorLarge:  "●",
}

// RenderMonth draws g as a Sunday-first month grid. A collapsed grid shows
// only the week holding the viewed day, or today, or the 1st.
func RenderMonth(s Styles, st models.Stream, g *calendar.Grid, expanded bool) string {
	if g == nil {
		return ""
	}
	title := fmt.Sprintf("%s %d", g.Month.Month, g.Month.Year)
	lines := []string{s.Month.Render(title)}

	headers := make([]string, 0, len(g.Headers))
	for _, h := range g.Headers {
		headers = append(headers, fmt.Sprintf("%-3s", h))
	}
	lines = append(lines, s.Weekday.Render(strings.Join(headers, " ")))

	today := lipgloss.NewStyle().Bold(true).Foreground(s.color(st.TodayBorderColor))
	viewed := lipgloss.NewStyle().Reverse(true).Foreground(s.color(st.ViewedBorderColor))

	var weeks [][]string
	row := make([]string, 0, 7)
	for i := 0; i < g.Leading; i++ {
		row = append(row, "   ")
	}
	focus := -1
	for _, c := range g.Days {
		num := fmt.Sprintf("%2d", c.Day)
		switch {
		case c.IsViewed:
			num = viewed.Render(num)
		case c.IsToday:
			num = today.Render(num)
		default:
			num = s.Day.Render(num)
		}
		mark := " "
		if m, ok := marks[c.Indicator]; ok {
			mark = s.Mark.Render(m)
		}
		row = append(row, num+mark)

		if c.IsViewed || (c.IsToday && focus < 0) {
			focus = len(weeks)
		}
		if len(row) == 7 {
			weeks = append(weeks, row)
			row = make([]string, 0, 7)
		}
	}
	if len(row) > 0 {
		weeks = append(weeks, row)
	}

	if !expanded && len(weeks) > 0 {
		if focus < 0 {
			focus = 0
		}
		weeks = weeks[focus : focus+1]
	}
	for _, w := range weeks {
		lines = append(lines, strings.TrimRight(strings.Join(w, " "), " "))
	}
	return strings.Join(lines, "\n")
}
