package hub

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/JulienCr/obs-live-suite-sub006/internal/domain"
	"github.com/JulienCr/obs-live-suite-sub006/internal/metrics"
)

const (
	commandTimeout = 5 * time.Second // actor command timeout
	stopTimeout    = 10 * time.Second
	commandBuffer  = 256
)

// client is the actor-owned state for one live connection.
type client struct {
	id       uuid.UUID
	conn     *websocket.Conn
	writer   *clientWriter
	channels map[string]struct{}
}

func (c *client) channelList() []string {
	list := make([]string, 0, len(c.channels))
	for ch := range c.channels {
		list = append(list, ch)
	}
	return list
}

// hubCmd is the command interface for the Hub actor.
type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerReply struct {
	clientID uuid.UUID
	err      error
}

type registerCmd struct {
	baseHubCmd
	connection   *websocket.Conn
	replyChannel chan registerReply
}

type unregisterCmd struct {
	baseHubCmd
	clientID uuid.UUID
}

type subscribeCmd struct {
	baseHubCmd
	clientID uuid.UUID
	channel  string
}

type broadcastCmd struct {
	baseHubCmd
	channel string
	data    []byte
}

type ackCmd struct {
	baseHubCmd
	ack domain.AckEvent
}

type addAckListenerCmd struct {
	baseHubCmd
	listener domain.AckListener
}

type addDisconnectListenerCmd struct {
	baseHubCmd
	listener domain.DisconnectListener
}

type stopCmd struct {
	baseHubCmd
}

// Hub multiplexes overlay connections over named channels and owns the raw
// broadcast primitive. All registry state is confined to the run goroutine.
type Hub struct {
	cmdCh               chan hubCmd
	clock               clockwork.Clock
	clients             map[uuid.UUID]*client
	subscriptions       map[string]map[uuid.UUID]*client
	counts              *channelCounts
	ackListeners        []domain.AckListener
	disconnectListeners []domain.DisconnectListener
	maxClients          int64
	done                chan struct{}
	stopTimeout         time.Duration
}

// New creates a hub and starts its actor loop.
// maxClients caps concurrent connections (prevents resource exhaustion).
func New(clock clockwork.Clock, maxClients int64) *Hub {
	h := &Hub{
		cmdCh:         make(chan hubCmd, commandBuffer),
		clock:         clock,
		clients:       make(map[uuid.UUID]*client),
		subscriptions: make(map[string]map[uuid.UUID]*client),
		counts:        newChannelCounts(),
		maxClients:    maxClients,
		done:          make(chan struct{}),
		stopTimeout:   stopTimeout,
	}
	go h.run()
	return h
}

// AddAckListener registers a listener for inbound acknowledgment frames.
// Listeners must be attached before traffic starts; registration order is
// notification order.
func (h *Hub) AddAckListener(fn domain.AckListener) {
	h.cmdCh <- addAckListenerCmd{listener: fn}
}

// AddDisconnectListener registers a listener notified after each connection
// is removed from the registry.
func (h *Hub) AddDisconnectListener(fn domain.DisconnectListener) {
	h.cmdCh <- addDisconnectListenerCmd{listener: fn}
}

// Register adds a connection and returns its assigned client id.
// Returns an error if the hub is at capacity or unresponsive.
func (h *Hub) Register(conn *websocket.Conn) (uuid.UUID, error) {
	replyCh := make(chan registerReply, 1)
	h.cmdCh <- registerCmd{connection: conn, replyChannel: replyCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case reply := <-replyCh:
		return reply.clientID, reply.err
	case <-timer.Chan():
		return uuid.Nil, fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a connection. Safe to call for an already-removed id.
func (h *Hub) Unregister(clientID uuid.UUID) {
	h.cmdCh <- unregisterCmd{clientID: clientID}
}

// Subscribe adds channel to the connection's subscription set. Idempotent.
func (h *Hub) Subscribe(clientID uuid.UUID, channel string) {
	h.cmdCh <- subscribeCmd{clientID: clientID, channel: channel}
}

// Broadcast serializes env once and fans it out to every connection
// subscribed to channel. Send failures are isolated per connection and never
// reach the caller. Calls for the same channel are delivered in call order.
func (h *Hub) Broadcast(channel string, env domain.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		slog.Error("Failed to marshal envelope", "channel", channel, "type", env.Type, "error", err)
		return
	}
	h.cmdCh <- broadcastCmd{channel: channel, data: data}
}

// SubscriberCount returns the number of live connections subscribed to
// channel. Reads a mirrored count table, so it never blocks on the actor and
// is safe to call from inside disconnect listeners.
func (h *Hub) SubscriberCount(channel string) int {
	return h.counts.get(channel)
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	return h.counts.clientTotal()
}

// Stop shuts down the hub, closing all connections.
// Blocks until the actor goroutine has exited or the timeout is reached.
func (h *Hub) Stop() {
	h.cmdCh <- stopCmd{}

	timeout := h.clock.NewTimer(h.stopTimeout)
	defer timeout.Stop()

	select {
	case <-h.done:
		slog.Info("Hub stopped gracefully")
	case <-timeout.Chan():
		slog.Warn("Hub stop timeout exceeded, forcing exit", "timeout", h.stopTimeout)
		metrics.HubStopTimeoutsTotal.Inc()
		close(h.done)
	}
}

func (h *Hub) run() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Hub panic recovered", "panic", r)
			metrics.HubPanicsTotal.Inc()
			h.closeAllClients("hub panic")
		}
	}()

	defer close(h.done)

	// Track command channel depth every second
	depthTicker := h.clock.NewTicker(1 * time.Second)
	defer depthTicker.Stop()

	for {
		select {
		case <-depthTicker.Chan():
			depth := len(h.cmdCh)
			metrics.HubCommandChannelDepth.Set(float64(depth))
			if depth > commandBuffer*4/5 {
				slog.Warn("Command channel near capacity", "depth", depth, "capacity", cap(h.cmdCh))
			}

		case cmd := <-h.cmdCh:
			switch c := cmd.(type) {
			case registerCmd:
				h.handleRegister(c)
			case unregisterCmd:
				h.handleUnregister(c.clientID)
			case subscribeCmd:
				h.handleSubscribe(c)
			case broadcastCmd:
				h.handleBroadcast(c)
			case ackCmd:
				for _, fn := range h.ackListeners {
					fn(c.ack)
				}
			case addAckListenerCmd:
				h.ackListeners = append(h.ackListeners, c.listener)
			case addDisconnectListenerCmd:
				h.disconnectListeners = append(h.disconnectListeners, c.listener)
			case stopCmd:
				h.handleStop()
				return
			default:
				slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	if int64(len(h.clients)) >= h.maxClients {
		slog.Warn("Rejecting client: max clients reached", "max_clients", h.maxClients)
		c.connection.Close()
		c.replyChannel <- registerReply{err: fmt.Errorf("max clients (%d) reached", h.maxClients)}
		return
	}

	cl := &client{
		id:       uuid.New(),
		conn:     c.connection,
		writer:   newClientWriter(c.connection, h.clock),
		channels: make(map[string]struct{}),
	}
	h.clients[cl.id] = cl
	h.counts.setClientTotal(len(h.clients))
	metrics.HubConnectedClients.Set(float64(len(h.clients)))

	slog.Debug("Client registered", "client_id", cl.id.String(), "total_clients", len(h.clients))
	c.replyChannel <- registerReply{clientID: cl.id}
}

func (h *Hub) handleSubscribe(c subscribeCmd) {
	cl, exists := h.clients[c.clientID]
	if !exists {
		return
	}
	if _, already := cl.channels[c.channel]; already {
		// subscribing twice has no additional effect
		return
	}

	cl.channels[c.channel] = struct{}{}
	subs, exists := h.subscriptions[c.channel]
	if !exists {
		subs = make(map[uuid.UUID]*client)
		h.subscriptions[c.channel] = subs
	}
	subs[c.clientID] = cl
	h.counts.set(c.channel, len(subs))
	metrics.HubSubscriptions.WithLabelValues(c.channel).Set(float64(len(subs)))

	slog.Debug("Client subscribed", "client_id", c.clientID.String(), "channel", c.channel, "subscribers", len(subs))
}

func (h *Hub) handleBroadcast(c broadcastCmd) {
	subs, exists := h.subscriptions[c.channel]
	if !exists {
		return
	}

	start := h.clock.Now()

	var slow []uuid.UUID
	for id, cl := range subs {
		select {
		case cl.writer.sendChannel <- c.data:
		default:
			slow = append(slow, id)
		}
	}

	for _, id := range slow {
		slog.Warn("Disconnecting slow client", "client_id", id.String(), "channel", c.channel)
		metrics.HubSlowClientsEvicted.Inc()
		h.handleUnregister(id)
	}

	metrics.HubBroadcastsTotal.WithLabelValues(c.channel).Inc()
	metrics.HubBroadcastDuration.Observe(h.clock.Since(start).Seconds())
}

func (h *Hub) handleUnregister(clientID uuid.UUID) {
	cl, exists := h.clients[clientID]
	if !exists {
		return
	}

	cl.writer.stop()
	delete(h.clients, clientID)
	for ch := range cl.channels {
		subs := h.subscriptions[ch]
		delete(subs, clientID)
		if len(subs) == 0 {
			delete(h.subscriptions, ch)
			metrics.HubSubscriptions.DeleteLabelValues(ch)
		} else {
			metrics.HubSubscriptions.WithLabelValues(ch).Set(float64(len(subs)))
		}
		h.counts.set(ch, len(subs))
	}
	h.counts.setClientTotal(len(h.clients))
	metrics.HubConnectedClients.Set(float64(len(h.clients)))

	slog.Debug("Client unregistered", "client_id", clientID.String(), "remaining_clients", len(h.clients))

	// Listeners run after registry removal so subscriber counts reflect
	// post-disconnect state.
	channels := cl.channelList()
	for _, fn := range h.disconnectListeners {
		fn(clientID, channels)
	}
}

func (h *Hub) handleStop() {
	slog.Info("Hub shutting down", "clients", len(h.clients))
	h.closeAllClients("Server shutting down")
	slog.Info("Hub shutdown complete")
}

// closeAllClients closes every connection with the given reason.
// Used during panic recovery and graceful shutdown.
func (h *Hub) closeAllClients(reason string) {
	for id, cl := range h.clients {
		cl.writer.stopGraceful(reason)
		delete(h.clients, id)
		for ch := range cl.channels {
			subs := h.subscriptions[ch]
			delete(subs, id)
			if len(subs) == 0 {
				delete(h.subscriptions, ch)
				metrics.HubSubscriptions.DeleteLabelValues(ch)
			}
			h.counts.set(ch, len(subs))
		}
		h.counts.setClientTotal(len(h.clients))
		channels := cl.channelList()
		for _, fn := range h.disconnectListeners {
			fn(id, channels)
		}
	}
	metrics.HubConnectedClients.Set(0)
}
