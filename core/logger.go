package core

// Logger is any service that can report application events.
// args may hold errors, map[string]interface{} extras and the Actor behind the event.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Actor is the ID of the staff member (cashier, registrar...) behind a logged event.
type Actor string
