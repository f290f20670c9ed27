package hub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JulienCr/obs-live-suite-sub006/internal/domain"
)

// testHub sets up a Hub behind a test HTTP server running the full
// register/read-pump path.
func testHub(t *testing.T, maxClients int64) (*Hub, func() *ws.Conn) {
	t.Helper()

	h := New(clockwork.NewRealClock(), maxClients)
	t.Cleanup(func() { h.Stop() })

	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		clientID, err := h.Register(conn)
		if err != nil {
			conn.Close()
			return
		}
		go h.ReadPump(clientID, conn)
	}))
	t.Cleanup(func() { server.Close() })

	dial := func() *ws.Conn {
		t.Helper()
		url := "ws" + strings.TrimPrefix(server.URL, "http")
		conn, _, err := ws.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}

	return h, dial
}

func subscribe(t *testing.T, conn *ws.Conn, channel string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(domain.SubscribeFrame{Type: domain.FrameSubscribe, Channel: channel}))
}

func waitForSubscribers(h *Hub, channel string, expected int) bool {
	for i := 0; i < 200; i++ {
		if h.SubscriberCount(channel) == expected {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func waitForClients(h *Hub, expected int) bool {
	for i := 0; i < 200; i++ {
		if h.ClientCount() == expected {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func readEnvelope(t *testing.T, conn *ws.Conn) domain.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var env domain.Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

func TestHub_SubscribeAndBroadcast(t *testing.T) {
	h, dial := testHub(t, 10)

	conn := dial()
	subscribe(t, conn, "lower")
	require.True(t, waitForSubscribers(h, "lower", 1))

	h.Broadcast("lower", domain.Envelope{
		Channel:   "lower",
		Type:      "show",
		Payload:   map[string]any{"title": "Test"},
		ID:        uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
	})

	env := readEnvelope(t, conn)
	assert.Equal(t, "lower", env.Channel)
	assert.Equal(t, "show", env.Type)
	assert.Equal(t, map[string]any{"title": "Test"}, env.Payload)
}

func TestHub_SubscribeIsIdempotent(t *testing.T) {
	h, dial := testHub(t, 10)

	conn := dial()
	subscribe(t, conn, "lower")
	subscribe(t, conn, "lower")
	subscribe(t, conn, "lower")
	require.True(t, waitForSubscribers(h, "lower", 1))

	h.Broadcast("lower", domain.Envelope{Channel: "lower", Type: "show", ID: uuid.NewString()})
	env := readEnvelope(t, conn)
	assert.Equal(t, "show", env.Type)

	// Only one copy was queued: the next read times out instead of
	// returning a duplicate.
	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_BroadcastTargetsOnlySubscribedChannel(t *testing.T) {
	h, dial := testHub(t, 10)

	lowerConn := dial()
	posterConn := dial()
	subscribe(t, lowerConn, "lower")
	subscribe(t, posterConn, "poster")
	require.True(t, waitForSubscribers(h, "lower", 1))
	require.True(t, waitForSubscribers(h, "poster", 1))

	h.Broadcast("lower", domain.Envelope{Channel: "lower", Type: "show", ID: uuid.NewString()})

	env := readEnvelope(t, lowerConn)
	assert.Equal(t, "lower", env.Channel)

	posterConn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := posterConn.ReadMessage()
	assert.Error(t, err, "poster subscriber must not receive lower events")
}

func TestHub_BroadcastToChannelWithoutSubscribers(t *testing.T) {
	h, _ := testHub(t, 10)

	// Must not panic or block
	h.Broadcast("lower", domain.Envelope{Channel: "lower", Type: "show", ID: uuid.NewString()})
	assert.Equal(t, 0, h.SubscriberCount("lower"))
}

func TestHub_BroadcastOrderPreservedPerChannel(t *testing.T) {
	h, dial := testHub(t, 10)

	conn := dial()
	subscribe(t, conn, "countdown")
	require.True(t, waitForSubscribers(h, "countdown", 1))

	const n = 10
	for i := 0; i < n; i++ {
		h.Broadcast("countdown", domain.Envelope{
			Channel: "countdown",
			Type:    fmt.Sprintf("tick-%d", i),
			ID:      uuid.NewString(),
		})
	}

	for i := 0; i < n; i++ {
		env := readEnvelope(t, conn)
		assert.Equal(t, fmt.Sprintf("tick-%d", i), env.Type)
	}
}

func TestHub_MalformedFramesAreDropped(t *testing.T) {
	h, dial := testHub(t, 10)

	conn := dial()
	require.True(t, waitForClients(h, 1))

	// Garbage, unknown type, subscribe without channel, ack without event id
	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte(`{"type":"mystery"}`)))
	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte(`{"type":"subscribe"}`)))
	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte(`{"type":"ack"}`)))

	// The connection survives and the protocol still works
	subscribe(t, conn, "lower")
	require.True(t, waitForSubscribers(h, "lower", 1))

	h.Broadcast("lower", domain.Envelope{Channel: "lower", Type: "show", ID: uuid.NewString()})
	env := readEnvelope(t, conn)
	assert.Equal(t, "show", env.Type)
}

func TestHub_AckFramesReachListeners(t *testing.T) {
	h, dial := testHub(t, 10)

	var mu sync.Mutex
	var received []domain.AckEvent
	h.AddAckListener(func(ack domain.AckEvent) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, ack)
	})

	conn := dial()
	require.True(t, waitForClients(h, 1))

	eventID := uuid.NewString()
	require.NoError(t, conn.WriteJSON(domain.AckEvent{
		Type:    domain.FrameAck,
		EventID: eventID,
		Channel: "lower",
		Success: true,
	}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, eventID, received[0].EventID)
	assert.Equal(t, "lower", received[0].Channel)
	assert.True(t, received[0].Success)
}

func TestHub_MultipleAckListeners(t *testing.T) {
	h, dial := testHub(t, 10)

	var mu sync.Mutex
	calls := make(map[string]int)
	for _, name := range []string{"first", "second"} {
		name := name
		h.AddAckListener(func(domain.AckEvent) {
			mu.Lock()
			defer mu.Unlock()
			calls[name]++
		})
	}

	conn := dial()
	require.True(t, waitForClients(h, 1))
	require.NoError(t, conn.WriteJSON(domain.AckEvent{Type: domain.FrameAck, EventID: uuid.NewString(), Success: true}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls["first"] == 1 && calls["second"] == 1
	}, time.Second, time.Millisecond)
}

func TestHub_DisconnectListenerFiresAfterRemoval(t *testing.T) {
	h, dial := testHub(t, 10)

	type disconnectEvent struct {
		clientID   uuid.UUID
		channels   []string
		lowerCount int
	}
	var mu sync.Mutex
	var events []disconnectEvent
	h.AddDisconnectListener(func(clientID uuid.UUID, channels []string) {
		mu.Lock()
		defer mu.Unlock()
		// SubscriberCount from inside the listener must reflect
		// post-disconnect state.
		events = append(events, disconnectEvent{
			clientID:   clientID,
			channels:   channels,
			lowerCount: h.SubscriberCount("lower"),
		})
	})

	conn := dial()
	subscribe(t, conn, "lower")
	subscribe(t, conn, "countdown")
	require.True(t, waitForSubscribers(h, "lower", 1))
	require.True(t, waitForSubscribers(h, "countdown", 1))

	conn.Close()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 1
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.NotEqual(t, uuid.Nil, events[0].clientID)
	assert.ElementsMatch(t, []string{"lower", "countdown"}, events[0].channels)
	assert.Equal(t, 0, events[0].lowerCount)

	// Exactly once per connection close
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, events, 1)
}

func TestHub_SubscriberCountTracksDisconnects(t *testing.T) {
	h, dial := testHub(t, 10)

	conn1 := dial()
	conn2 := dial()
	subscribe(t, conn1, "lower")
	subscribe(t, conn2, "lower")
	require.True(t, waitForSubscribers(h, "lower", 2))

	conn1.Close()
	require.True(t, waitForSubscribers(h, "lower", 1))

	conn2.Close()
	require.True(t, waitForSubscribers(h, "lower", 0))
	assert.Equal(t, 0, h.SubscriberCount("lower"))
}

func TestHub_MaxClients(t *testing.T) {
	h, dial := testHub(t, 2)

	dial()
	dial()
	require.True(t, waitForClients(h, 2))

	// Third connection is rejected server-side and closed promptly.
	conn := dial()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 2, h.ClientCount())
}

func TestHub_StopClosesAllClients(t *testing.T) {
	h, dial := testHub(t, 10)

	conn := dial()
	subscribe(t, conn, "lower")
	require.True(t, waitForSubscribers(h, "lower", 1))

	h.Stop()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	assert.Equal(t, 0, h.ClientCount())
}

func TestHub_DisconnectListenersFireOnStop(t *testing.T) {
	h, dial := testHub(t, 10)

	var mu sync.Mutex
	var fired int
	h.AddDisconnectListener(func(uuid.UUID, []string) {
		mu.Lock()
		defer mu.Unlock()
		fired++
	})

	dial()
	dial()
	require.True(t, waitForClients(h, 2))

	h.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, fired)
}
