package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used by the browser and the calendar printer.
type Styles struct {
	Accent lipgloss.Color
	Muted  lipgloss.Color

	Tab       lipgloss.Style
	ActiveTab lipgloss.Style
	Month     lipgloss.Style
	Weekday   lipgloss.Style
	Day       lipgloss.Style
	Mark      lipgloss.Style
	Path      lipgloss.Style
	Pending   lipgloss.Style
	Info      lipgloss.Style
	Error     lipgloss.Style
}

// DefaultStyles returns the default palette.
func DefaultStyles() Styles {
	accent := lipgloss.Color("#7D56F4")
	muted := lipgloss.Color("#6C6C6C")
	return Styles{
		Accent:    accent,
		Muted:     muted,
		Tab:       lipgloss.NewStyle().Foreground(muted).Padding(0, 1),
		ActiveTab: lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(0, 1).Underline(true),
		Month:     lipgloss.NewStyle().Bold(true),
		Weekday:   lipgloss.NewStyle().Foreground(muted),
		Day:       lipgloss.NewStyle(),
		Mark:      lipgloss.NewStyle().Foreground(accent),
		Path:      lipgloss.NewStyle().Foreground(muted),
		Pending:   lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#E0AF68")),
		Info:      lipgloss.NewStyle().Foreground(lipgloss.Color("#9ECE6A")),
		Error:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F7768E")),
	}
}

// color resolves a stream colour option. "accent" and "" use the palette accent;
// anything else is passed to lipgloss as is.
func (s Styles) color(name string) lipgloss.Color {
	if name == "" || name == "accent" {
		return s.Accent
	}
	return lipgloss.Color(name)
}
