package bus

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/marina/internal/selection"
)

func TestBus_DeliversToChannelSubscribersOnly(t *testing.T) {
	b := New(nil)
	var boats, other []string
	b.Subscribe(selection.BoatChannel, func(m selection.Message) { boats = append(boats, m.RecordID) })
	b.Subscribe("OtherChannel", func(m selection.Message) { other = append(other, m.RecordID) })

	b.Publish(selection.BoatChannel, selection.Message{RecordID: "1"})

	assert.Equal(t, []string{"1"}, boats)
	assert.Empty(t, other)
}

func TestBus_Unsubscribe(t *testing.T) {
	b := New(nil)
	var a, c int
	unsubscribe := b.Subscribe(selection.BoatChannel, func(selection.Message) { a++ })
	b.Subscribe(selection.BoatChannel, func(selection.Message) { c++ })

	b.Publish(selection.BoatChannel, selection.Message{})
	unsubscribe()
	unsubscribe()
	b.Publish(selection.BoatChannel, selection.Message{})

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, c)
}

func TestBus_PanickingHandlerDoesNotStopDelivery(t *testing.T) {
	b := New(nil)
	var got int
	b.Subscribe(selection.BoatChannel, func(selection.Message) { panic("listener bug") })
	b.Subscribe(selection.BoatChannel, func(selection.Message) { got++ })

	assert.NotPanics(t, func() {
		b.Publish(selection.BoatChannel, selection.Message{RecordID: "1"})
	})
	assert.Equal(t, 1, got)
}

func TestBus_WithBroadcaster(t *testing.T) {
	b := New(nil)
	var got []selection.Message
	b.Subscribe(selection.BoatChannel, func(m selection.Message) { got = append(got, m) })

	selection.NewBroadcaster(b, selection.BoatChannel, nil).Select("a0B7")

	require.Len(t, got, 1)
	assert.Equal(t, "a0B7", got[0].RecordID)
}

func TestBridge_ForwardsMessagesToWebsocketClients(t *testing.T) {
	b := New(nil)
	br := NewBridge(nil)
	detach := br.Attach(b, selection.BoatChannel)
	t.Cleanup(detach)

	server := httptest.NewServer(br)
	t.Cleanup(server.Close)
	t.Cleanup(br.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return br.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	id := ulid.Make()
	b.Publish(selection.BoatChannel, selection.Message{ID: id, RecordID: "a0B9"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got selection.Message
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "a0B9", got.RecordID)
	assert.Equal(t, id, got.ID)
}

func TestBridge_ClientDisconnectIsRemoved(t *testing.T) {
	br := NewBridge(nil)
	server := httptest.NewServer(br)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return br.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return br.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)

	assert.NotPanics(t, func() { br.Forward(selection.Message{RecordID: "1"}) })
}
