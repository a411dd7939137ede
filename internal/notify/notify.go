// Package notify delivers user-facing notifications (toasts).
package notify

import (
	"sync"

	"go.uber.org/zap"
)

// Severity is the visual variant of a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification is one toast.
type Notification struct {
	Title    string
	Message  string
	Severity Severity
}

// Notifier presents notifications. Notify must not block on the user.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to Notifier.
type Func func(Notification)

// Notify calls f.
func (f Func) Notify(n Notification) { f(n) }

// Log writes notifications to a zap logger.
type Log struct {
	Logger *zap.Logger
}

// Notify logs n at info level, or warn level for errors.
func (l Log) Notify(n Notification) {
	logger := l.Logger
	if logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("title", n.Title),
		zap.String("message", n.Message),
		zap.String("severity", string(n.Severity)),
	}
	if n.Severity == SeverityError {
		logger.Warn("notification", fields...)
		return
	}
	logger.Info("notification", fields...)
}

// Multi fans a notification out to several notifiers in order.
type Multi []Notifier

// Notify forwards n to every notifier.
func (m Multi) Notify(n Notification) {
	for _, target := range m {
		if target != nil {
			target.Notify(n)
		}
	}
}

// Recorder keeps every notification it receives. It is used by the
// rendering layer to show the latest toast and by tests.
type Recorder struct {
	mu  sync.Mutex
	all []Notification
}

// Notify records n.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, n)
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.all))
	copy(out, r.all)
	return out
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.all) == 0 {
		return Notification{}, false
	}
	return r.all[len(r.all)-1], true
}
