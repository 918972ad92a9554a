// Package models defines the domain types for daystreams.
package models

import "time"

// Stream is a named channel of daily notes rooted at one vault folder.
type Stream struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Folder   string `yaml:"folder" json:"folder"`
	Icon     string `yaml:"icon" json:"icon"`
	ViewIcon string `yaml:"view_icon" json:"view_icon"`

	ShowTodayInRibbon bool `yaml:"show_today_in_ribbon" json:"show_today_in_ribbon"`
	AddTodayCommand   bool `yaml:"add_today_command" json:"add_today_command"`
	ShowViewInRibbon  bool `yaml:"show_view_in_ribbon" json:"show_view_in_ribbon"`
	AddViewCommand    bool `yaml:"add_view_command" json:"add_view_command"`

	TodayBorderColor  string `yaml:"today_border_color" json:"today_border_color"`
	ViewedBorderColor string `yaml:"viewed_border_color" json:"viewed_border_color"`
}

// NewStream returns a stream with default presentation options.
// The caller assigns the ID.
func NewStream(name, folder string) Stream {
	return Stream{
		Name:              name,
		Folder:            folder,
		Icon:              "calendar",
		ViewIcon:          "list",
		ShowTodayInRibbon: true,
		AddTodayCommand:   true,
		AddViewCommand:    true,
		TodayBorderColor:  "accent",
		ViewedBorderColor: "accent",
	}
}

// Settings is the persisted settings blob.
type Settings struct {
	Streams          []Stream `yaml:"streams" json:"streams"`
	ReuseCurrentTab  bool     `yaml:"reuse_current_tab" json:"reuse_current_tab"`
	CalendarExpanded bool     `yaml:"calendar_expanded" json:"calendar_expanded"`
}

// DefaultSettings returns an empty settings blob with default switches.
func DefaultSettings() Settings {
	return Settings{
		Streams:          []Stream{},
		CalendarExpanded: true,
	}
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
