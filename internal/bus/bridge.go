package bus

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/five82/marina/internal/selection"
)

const (
	clientBuffer = 16
	writeTimeout = 5 * time.Second
)

type bridgeClient struct {
	conn *websocket.Conn
	send chan selection.Message
	once sync.Once
}

func (c *bridgeClient) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Bridge forwards bus messages to websocket clients as JSON. A client that
// cannot keep up is dropped; publishing never blocks on a client.
type Bridge struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*bridgeClient]struct{}
}

// NewBridge returns a bridge with no clients.
func NewBridge(logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*bridgeClient]struct{}),
	}
}

// Attach forwards every message on channel to the connected clients. The
// returned func detaches the bridge from the bus.
func (br *Bridge) Attach(b *Bus, channel selection.Channel) func() {
	return b.Subscribe(channel, br.Forward)
}

// Forward queues msg for every client.
func (br *Bridge) Forward(msg selection.Message) {
	br.mu.Lock()
	defer br.mu.Unlock()
	for c := range br.clients {
		select {
		case c.send <- msg:
		default:
			br.logger.Warn("dropping slow bridge client", zap.String("remote", c.conn.RemoteAddr().String()))
			delete(br.clients, c)
			c.close()
		}
	}
}

// ServeHTTP upgrades the request to a websocket and streams messages to it
// until either side closes.
func (br *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := br.upgrader.Upgrade(w, r, nil)
	if err != nil {
		br.logger.Warn("bridge upgrade failed", zap.Error(err))
		return
	}
	c := &bridgeClient{conn: conn, send: make(chan selection.Message, clientBuffer)}

	br.mu.Lock()
	br.clients[c] = struct{}{}
	br.mu.Unlock()
	br.logger.Debug("bridge client connected", zap.String("remote", conn.RemoteAddr().String()))

	go br.writeLoop(c)

	// Reads only detect the peer going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	br.remove(c)
}

func (br *Bridge) writeLoop(c *bridgeClient) {
	defer func() { _ = c.conn.Close() }()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			br.logger.Debug("bridge write failed", zap.Error(err))
			br.remove(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
}

func (br *Bridge) remove(c *bridgeClient) {
	br.mu.Lock()
	delete(br.clients, c)
	br.mu.Unlock()
	c.close()
}

// Clients returns the number of connected clients.
func (br *Bridge) Clients() int {
	br.mu.Lock()
	defer br.mu.Unlock()
	return len(br.clients)
}

// Close disconnects every client.
func (br *Bridge) Close() {
	br.mu.Lock()
	clients := br.clients
	br.clients = make(map[*bridgeClient]struct{})
	br.mu.Unlock()
	for c := range clients {
		c.close()
	}
}
