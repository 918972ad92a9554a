package api

import (
	"github.com/starford/daystreams/internal/index"
	"github.com/starford/daystreams/internal/models"
	"github.com/starford/daystreams/internal/streams"
	"github.com/starford/daystreams/internal/streamservice"
	"github.com/starford/daystreams/internal/workspace"
)

// CreateStreamRequest is the request body for adding a stream.
type CreateStreamRequest struct {
	Name   string `json:"name" example:"Journal" validate:"required"`
	Folder string `json:"folder" example:"Journal"`
}

// UpdateStreamRequest lists the stream fields to change (aliased from the domain layer).
type UpdateStreamRequest = streamservice.StreamPatch

// StreamListResponse wraps the configured streams.
type StreamListResponse struct {
	Streams []models.Stream `json:"streams" validate:"required"`
}

// SettingsRequest is the request body for changing switches.
type SettingsRequest struct {
	ReuseCurrentTab *bool `json:"reuse_current_tab" example:"true"`
}

// NavigateRequest names the day to open.
type NavigateRequest struct {
	Date string `json:"date" example:"2024-02-10" validate:"required"`
}

// AdjacentRequest moves relative to an anchor day. An empty anchor means today.
type AdjacentRequest struct {
	Anchor string `json:"anchor,omitempty" example:"2024-02-10"`
	Offset int    `json:"offset" example:"-1" validate:"required"`
}

// NoteContentRequest carries the Markdown of a note.
type NoteContentRequest struct {
	Content string `json:"content" example:"# Saturday\nLong walk." validate:"required"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = streamservice.NoteDetail

// StreamStats is the stats response type (aliased from the domain layer).
type StreamStats = streamservice.StreamStats

// ViewPage is a page of a stream view (aliased from the domain layer).
type ViewPage = streamservice.ViewPage

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// DocumentListResponse wraps the open tabs.
type DocumentListResponse struct {
	Documents []workspace.Document `json:"documents" validate:"required"`
}

// PinRequest pins or unpins a tab.
type PinRequest struct {
	Pinned bool `json:"pinned" example:"true"`
}

// MonthRequest changes the month a widget shows. Exactly one of Month,
// Delta or Today is used, in that order.
type MonthRequest struct {
	Month string `json:"month,omitempty" example:"2024-03"`
	Delta int    `json:"delta,omitempty" example:"1"`
	Today bool   `json:"today,omitempty"`
}

// ExpandRequest expands or collapses a widget.
type ExpandRequest struct {
	Expanded bool `json:"expanded" example:"true"`
}

// StepRequest moves a widget's note by whole days.
type StepRequest struct {
	Offset int `json:"offset" example:"1" validate:"required"`
}

// CommandListResponse wraps registered commands.
type CommandListResponse struct {
	Commands []streams.Command `json:"commands" validate:"required"`
}
