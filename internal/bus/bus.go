// Package bus is the in-process message bus selections travel on, plus a
// websocket bridge that forwards bus traffic to out-of-process listeners.
package bus

import (
	"sync"

	"go.uber.org/zap"

	"github.com/five82/marina/internal/selection"
)

// Handler receives messages from a channel.
type Handler func(selection.Message)

type subscription struct {
	id      int
	handler Handler
}

// Bus fans messages out to the handlers subscribed to their channel.
// Delivery is synchronous, at most once, and unacknowledged.
type Bus struct {
	logger *zap.Logger

	mu     sync.RWMutex
	nextID int
	subs   map[selection.Channel][]subscription
}

// New returns an empty bus.
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{logger: logger, subs: make(map[selection.Channel][]subscription)}
}

// Subscribe registers h on channel. The returned func removes it.
func (b *Bus) Subscribe(channel selection.Channel, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[channel] = append(b.subs[channel], subscription{id: id, handler: h})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[channel]
		for i, s := range subs {
			if s.id == id {
				b.subs[channel] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers msg to every handler on channel. A panicking handler is
// logged and does not stop delivery to the others.
func (b *Bus) Publish(channel selection.Channel, msg selection.Message) {
	b.mu.RLock()
	subs := append([]subscription(nil), b.subs[channel]...)
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(channel, s.handler, msg)
	}
}

func (b *Bus) deliver(channel selection.Channel, h Handler, msg selection.Message) {
	defer func() {
		if p := recover(); p != nil {
			b.logger.Error("bus handler panicked",
				zap.String("channel", string(channel)),
				zap.String("record_id", msg.RecordID),
				zap.Any("panic", p))
		}
	}()
	h(msg)
}

var _ selection.Publisher = (*Bus)(nil)
