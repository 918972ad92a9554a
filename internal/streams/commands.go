package streams

import (
	"slices"
	"sync"

	"github.com/starford/daystreams/internal/models"
)

// CommandKind is the action a command performs.
type CommandKind string

const (
	CommandOpenToday CommandKind = "open-today"
	CommandOpenView  CommandKind = "open-view"
)

// Command is a palette command or ribbon entry bound to one stream.
type Command struct {
	ID       string      `json:"id"`
	StreamID string      `json:"stream_id"`
	Kind     CommandKind `json:"kind"`
	Name     string      `json:"name"`
	Icon     string      `json:"icon"`
	Palette  bool        `json:"palette"`
	Ribbon   bool        `json:"ribbon"`
}

// CommandID returns the stable command id for a stream and kind.
func CommandID(kind CommandKind, streamID string) string {
	return string(kind) + ":" + streamID
}

// Commands tracks the commands registered for the configured streams.
type Commands struct {
	mu    sync.RWMutex
	byID  map[string]Command
	order []string
}

// NewCommands returns an empty registry.
func NewCommands() *Commands {
	return &Commands{byID: make(map[string]Command)}
}

// Sync replaces the registry contents with the commands the given streams
// ask for. Commands of streams no longer present are dropped.
func (c *Commands) Sync(streams []models.Stream) {
	byID := make(map[string]Command)
	var order []string
	add := func(cmd Command) {
		if !cmd.Palette && !cmd.Ribbon {
			return
		}
		byID[cmd.ID] = cmd
		order = append(order, cmd.ID)
	}
	for _, s := range streams {
		add(Command{
			ID:       CommandID(CommandOpenToday, s.ID),
			StreamID: s.ID,
			Kind:     CommandOpenToday,
			Name:     "Open today: " + s.Name,
			Icon:     s.Icon,
			Palette:  s.AddTodayCommand,
			Ribbon:   s.ShowTodayInRibbon,
		})
		add(Command{
			ID:       CommandID(CommandOpenView, s.ID),
			StreamID: s.ID,
			Kind:     CommandOpenView,
			Name:     "Open stream view: " + s.Name,
			Icon:     s.ViewIcon,
			Palette:  s.AddViewCommand,
			Ribbon:   s.ShowViewInRibbon,
		})
	}

	c.mu.Lock()
	c.byID = byID
	c.order = order
	c.mu.Unlock()
}

// Unregister drops every command bound to streamID.
func (c *Commands) Unregister(streamID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = slices.DeleteFunc(c.order, func(id string) bool {
		if c.byID[id].StreamID == streamID {
			delete(c.byID, id)
			return true
		}
		return false
	})
}

// Get returns the command with id.
func (c *Commands) Get(id string) (Command, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cmd, ok := c.byID[id]
	return cmd, ok
}

// List returns palette commands in registration order.
func (c *Commands) List() []Command {
	return c.filter(func(cmd Command) bool { return cmd.Palette })
}

// Ribbon returns ribbon entries in registration order.
func (c *Commands) Ribbon() []Command {
	return c.filter(func(cmd Command) bool { return cmd.Ribbon })
}

// ForStream returns every command bound to streamID.
func (c *Commands) ForStream(streamID string) []Command {
	return c.filter(func(cmd Command) bool { return cmd.StreamID == streamID })
}

func (c *Commands) filter(keep func(Command) bool) []Command {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []Command{}
	for _, id := range c.order {
		if cmd := c.byID[id]; keep(cmd) {
			out = append(out, cmd)
		}
	}
	return out
}
