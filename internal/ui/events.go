package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/marina/internal/loading"
	"github.com/five82/marina/internal/notify"
	"github.com/five82/marina/internal/records"
)

const eventBuffer = 64

type (
	loadingMsg struct{ event loading.Event }
	resultMsg  struct{ tag string }
	toastMsg   struct{ note notify.Notification }
)

// Events carries controller callbacks, which fire on arbitrary goroutines,
// into the bubbletea update loop. Loading and result events are hints: the
// model re-reads controller state when one arrives, so a full buffer drops
// them rather than blocking the caller.
type Events struct {
	ch chan tea.Msg
}

// NewEvents returns an empty event queue.
func NewEvents() *Events {
	return &Events{ch: make(chan tea.Msg, eventBuffer)}
}

// Notify implements notify.Notifier.
func (e *Events) Notify(n notify.Notification) {
	e.send(toastMsg{note: n})
}

// Loading is a loading.Listener.
func (e *Events) Loading(ev loading.Event) {
	e.send(loadingMsg{event: ev})
}

// Result receives accepted result sets.
func (e *Events) Result(rs records.ResultSet) {
	e.send(resultMsg{tag: rs.Tag.String()})
}

func (e *Events) send(msg tea.Msg) {
	select {
	case e.ch <- msg:
	default:
	}
}

// wait returns a command that blocks for the next event.
func (e *Events) wait() tea.Cmd {
	return func() tea.Msg {
		return <-e.ch
	}
}

var _ notify.Notifier = (*Events)(nil)
