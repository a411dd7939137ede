package selection

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Channel names a message channel shared by unrelated components.
type Channel string

// BoatChannel carries boat selections.
const BoatChannel Channel = "BoatMessageChannel"

// Message is published once per selection.
type Message struct {
	ID       ulid.ULID `json:"id"`
	RecordID string    `json:"recordId"`
	SentAt   time.Time `json:"sentAt"`
}

// Publisher delivers a message on a channel. Delivery is fire-and-forget.
type Publisher interface {
	Publish(channel Channel, msg Message)
}

// Broadcaster publishes selections on a fixed channel.
type Broadcaster struct {
	publisher Publisher
	channel   Channel
	logger    *zap.Logger

	mu       sync.Mutex
	selected string
}

// NewBroadcaster builds a Broadcaster publishing on channel.
func NewBroadcaster(p Publisher, channel Channel, logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{publisher: p, channel: channel, logger: logger}
}

// Select records recordID as the current selection and publishes it once,
// synchronously. There is no retry and no acknowledgment.
func (b *Broadcaster) Select(recordID string) {
	b.mu.Lock()
	b.selected = recordID
	b.mu.Unlock()

	msg := Message{ID: ulid.Make(), RecordID: recordID, SentAt: time.Now()}
	b.logger.Debug("selection published",
		zap.String("channel", string(b.channel)),
		zap.String("record_id", recordID))
	if b.publisher != nil {
		b.publisher.Publish(b.channel, msg)
	}
}

// Selected returns the last selected record id.
func (b *Broadcaster) Selected() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selected
}
