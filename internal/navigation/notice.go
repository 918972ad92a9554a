package navigation

// Notice levels.
const (
	LevelInfo  = "info"
	LevelError = "error"
)

// Notice is a short user-visible message.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Notifier surfaces notices to the user.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify calls f.
func (f NotifierFunc) Notify(n Notice) { f(n) }
