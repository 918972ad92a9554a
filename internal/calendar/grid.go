// Package calendar builds month grids for a stream and keeps them current
// in per-document widgets.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/starford/daystreams/internal/apperr"
	"github.com/starford/daystreams/internal/datekey"
	"github.com/starford/daystreams/internal/models"
)

// Size thresholds for content indicators, in bytes.
const (
	SmallLimit  = 1024
	MediumLimit = 5120
)

// Indicator is a coarse content-density hint for a day.
type Indicator string

const (
	IndicatorNone   Indicator = "none"
	IndicatorSmall  Indicator = "small"
	IndicatorMedium Indicator = "medium"
	IndicatorLarge  Indicator = "large"
)

// IndicatorFor buckets a file size. A missing file has no indicator.
func IndicatorFor(size int64, exists bool) Indicator {
	switch {
	case !exists:
		return IndicatorNone
	case size < SmallLimit:
		return IndicatorSmall
	case size < MediumLimit:
		return IndicatorMedium
	default:
		return IndicatorLarge
	}
}

// Weekdays are the Sunday-first column headers.
var Weekdays = [7]string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"}

// Cell is one day of the grid.
type Cell struct {
	Day       int         `json:"day"`
	Date      datekey.Key `json:"date"`
	IsToday   bool        `json:"is_today"`
	IsViewed  bool        `json:"is_viewed"`
	Indicator Indicator   `json:"indicator"`
}

// Grid is the model of one month for one stream.
type Grid struct {
	StreamID string        `json:"stream_id"`
	Month    datekey.Month `json:"month"`
	Headers  [7]string     `json:"headers"`
	Leading  int           `json:"leading"`
	Days     []Cell        `json:"days"`
}

// Clone returns a deep copy of g.
func (g *Grid) Clone() *Grid {
	if g == nil {
		return nil
	}
	out := *g
	out.Days = append([]Cell(nil), g.Days...)
	return &out
}

// Contents maps day-of-month to indicator.
type Contents map[int]Indicator

// SizeSource answers existence and size questions about vault files.
type SizeSource interface {
	Exists(path string) bool
	Size(path string) (int64, error)
}

// Engine builds and refreshes grids.
type Engine struct {
	files SizeSource
	now   func() time.Time
}

// NewEngine creates an engine reading sizes from files. A nil now uses
// time.Now.
func NewEngine(files SizeSource, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{files: files, now: now}
}

// Today returns the current local day.
func (e *Engine) Today() datekey.Key {
	return datekey.FromTime(e.now())
}

// Layout returns the bare structure of a month: headers, leading blanks and
// one cell per day, with no flags or indicators set.
func Layout(streamID string, m datekey.Month) *Grid {
	n := m.Days()
	g := &Grid{
		StreamID: streamID,
		Month:    m,
		Headers:  Weekdays,
		Leading:  int(m.First().Weekday()),
		Days:     make([]Cell, n),
	}
	for i := range g.Days {
		day := i + 1
		g.Days[i] = Cell{
			Day:       day,
			Date:      datekey.New(m.Year, m.Month, day),
			Indicator: IndicatorNone,
		}
	}
	return g
}

// Contents looks up the daily note of every day of m. It performs I/O and
// may be slow; it does not touch any grid.
func (e *Engine) Contents(ctx context.Context, s models.Stream, m datekey.Month) (Contents, error) {
	out := make(Contents, m.Days())
	for day := 1; day <= m.Days(); day++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := datekey.ToFilePath(s.Folder, datekey.New(m.Year, m.Month, day))
		if !e.files.Exists(p) {
			out[day] = IndicatorNone
			continue
		}
		size, err := e.files.Size(p)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				out[day] = IndicatorNone
				continue
			}
			return nil, fmt.Errorf("calendar: size of %s: %w", p, err)
		}
		out[day] = IndicatorFor(size, true)
	}
	return out, nil
}

// Apply sets flags and indicators on the existing cells of g.
func Apply(g *Grid, c Contents, today, viewed datekey.Key) {
	for i := range g.Days {
		cell := &g.Days[i]
		cell.IsToday = cell.Date == today
		cell.IsViewed = !viewed.IsZero() && cell.Date == viewed
		if ind, ok := c[cell.Day]; ok {
			cell.Indicator = ind
		} else {
			cell.Indicator = IndicatorNone
		}
	}
}

// BuildMonthGrid lays out m and fills it for s.
func (e *Engine) BuildMonthGrid(ctx context.Context, s models.Stream, m datekey.Month, viewed datekey.Key) (*Grid, error) {
	c, err := e.Contents(ctx, s, m)
	if err != nil {
		return nil, err
	}
	g := Layout(s.ID, m)
	Apply(g, c, e.Today(), viewed)
	return g, nil
}

// RefreshContent updates an existing grid in place without relaying it out.
// The result equals a fresh BuildMonthGrid for the same inputs.
func (e *Engine) RefreshContent(ctx context.Context, g *Grid, s models.Stream, viewed datekey.Key) error {
	c, err := e.Contents(ctx, s, g.Month)
	if err != nil {
		return err
	}
	Apply(g, c, e.Today(), viewed)
	return nil
}
