package publisher

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/JulienCr/obs-live-suite-sub006/internal/domain"
	"github.com/JulienCr/obs-live-suite-sub006/internal/metrics"
)

// pendingAck is the bookkeeping for one unacknowledged delivery.
type pendingAck struct {
	channel   string
	timer     clockwork.Timer
	createdAt time.Time
}

// Publisher stamps control events with identity and time, broadcasts them
// through the hub, and reclaims ack bookkeeping on ack, timeout, or
// disconnect-triggered cleanup. One instance per process, constructed by the
// composition root and wired to the hub's listener hooks there.
type Publisher struct {
	hub        domain.Broadcaster
	clock      clockwork.Clock
	ackTimeout time.Duration

	mu      sync.Mutex
	pending map[string]*pendingAck
}

// New creates a publisher. The caller is responsible for wiring HandleAck and
// HandleClientDisconnect into the hub's listener hooks.
func New(hub domain.Broadcaster, clock clockwork.Clock, ackTimeout time.Duration) *Publisher {
	return &Publisher{
		hub:        hub,
		clock:      clock,
		ackTimeout: ackTimeout,
		pending:    make(map[string]*pendingAck),
	}
}

// Publish broadcasts an event on channel and tracks its acknowledgment.
// Fire and forget: the returned envelope records what was sent, but delivery
// outcome is observed only via ack or timeout, never by the caller.
func (p *Publisher) Publish(channel, eventType string, payload any) domain.Envelope {
	env := p.newEnvelope(eventType, payload)
	env.Channel = channel
	p.hub.Broadcast(channel, env)
	p.track(env.ID, channel)
	return env
}

// PublishLowerThird publishes on the lower-third channel.
func (p *Publisher) PublishLowerThird(eventType string, payload any) domain.Envelope {
	return p.Publish(domain.ChannelLower, eventType, payload)
}

// PublishCountdown publishes on the countdown channel.
func (p *Publisher) PublishCountdown(eventType string, payload any) domain.Envelope {
	return p.Publish(domain.ChannelCountdown, eventType, payload)
}

// PublishPoster publishes on the poster channel.
func (p *Publisher) PublishPoster(eventType string, payload any) domain.Envelope {
	return p.Publish(domain.ChannelPoster, eventType, payload)
}

// PublishSystem publishes on the system channel.
func (p *Publisher) PublishSystem(eventType string, payload any) domain.Envelope {
	return p.Publish(domain.ChannelSystem, eventType, payload)
}

// PublishToRoom broadcasts an event to a collaboration room. The envelope
// carries roomId instead of channel; the hub channel is "room:"+roomID.
func (p *Publisher) PublishToRoom(roomID, eventType string, payload any) domain.Envelope {
	env := p.newEnvelope(eventType, payload)
	env.RoomID = roomID
	channel := domain.RoomChannel(roomID)
	p.hub.Broadcast(channel, env)
	p.track(env.ID, channel)
	return env
}

// PublishToPresenter broadcasts an event on the presenter channel.
func (p *Publisher) PublishToPresenter(eventType string, payload any) domain.Envelope {
	return p.Publish(domain.ChannelPresenter, eventType, payload)
}

func (p *Publisher) newEnvelope(eventType string, payload any) domain.Envelope {
	return domain.Envelope{
		Type:      eventType,
		Payload:   payload,
		ID:        uuid.NewString(),
		Timestamp: p.clock.Now().UnixMilli(),
	}
}

func (p *Publisher) track(eventID, channel string) {
	p.mu.Lock()
	p.pending[eventID] = &pendingAck{
		channel:   channel,
		createdAt: p.clock.Now(),
		timer:     p.clock.AfterFunc(p.ackTimeout, func() { p.reap(eventID) }),
	}
	size := len(p.pending)
	p.mu.Unlock()

	metrics.PublishedEventsTotal.WithLabelValues(channel).Inc()
	metrics.PendingAcks.Set(float64(size))
}

// reap removes a pending entry whose timeout fired before any ack arrived.
// Losing the race to HandleAck or a cleanup is a no-op.
func (p *Publisher) reap(eventID string) {
	p.mu.Lock()
	entry, ok := p.pending[eventID]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(p.pending, eventID)
	size := len(p.pending)
	p.mu.Unlock()

	metrics.AckTimeoutsTotal.Inc()
	metrics.PendingAcks.Set(float64(size))
	slog.Debug("Pending ack timed out", "event_id", eventID, "channel", entry.channel, "timeout", p.ackTimeout)
}

// HandleAck resolves the pending entry for ack.EventID. Unknown, duplicate,
// or late acks are silently ignored. A failure ack (Success=false) is logged
// but cleaned up identically.
func (p *Publisher) HandleAck(ack domain.AckEvent) {
	p.mu.Lock()
	entry, ok := p.pending[ack.EventID]
	if !ok {
		p.mu.Unlock()
		metrics.AcksReceivedTotal.WithLabelValues("stale").Inc()
		return
	}
	entry.timer.Stop()
	delete(p.pending, ack.EventID)
	size := len(p.pending)
	p.mu.Unlock()

	metrics.PendingAcks.Set(float64(size))
	metrics.AckRoundTrip.Observe(p.clock.Since(entry.createdAt).Seconds())

	if ack.Success {
		metrics.AcksReceivedTotal.WithLabelValues("success").Inc()
	} else {
		metrics.AcksReceivedTotal.WithLabelValues("failure").Inc()
		slog.Warn("Client reported render failure", "event_id", ack.EventID, "channel", ack.Channel, "client_error", ack.Error)
	}
}

// HandleClientDisconnect is the hub disconnect hook. For each channel the
// closed connection was subscribed to, pending acks are cleared if no
// subscriber remains to ever ack them. Channels with other live subscribers
// and unrelated channels are left untouched.
func (p *Publisher) HandleClientDisconnect(clientID uuid.UUID, channels []string) {
	for _, channel := range channels {
		if p.hub.SubscriberCount(channel) != 0 {
			continue
		}
		if cleared := p.clearChannel(channel); cleared > 0 {
			slog.Debug("Cleared orphaned pending acks", "client_id", clientID.String(), "channel", channel, "cleared", cleared)
		}
	}
}

func (p *Publisher) clearChannel(channel string) int {
	p.mu.Lock()
	cleared := 0
	for id, entry := range p.pending {
		if entry.channel != channel {
			continue
		}
		entry.timer.Stop()
		delete(p.pending, id)
		cleared++
	}
	size := len(p.pending)
	p.mu.Unlock()

	if cleared > 0 {
		metrics.DisconnectCleanupsTotal.Add(float64(cleared))
		metrics.PendingAcks.Set(float64(size))
	}
	return cleared
}

// ClearPendingAcks cancels every outstanding timeout and empties the table.
// Used at shutdown; safe to call with zero entries.
func (p *Publisher) ClearPendingAcks() {
	p.mu.Lock()
	for id, entry := range p.pending {
		entry.timer.Stop()
		delete(p.pending, id)
	}
	p.mu.Unlock()

	metrics.PendingAcks.Set(0)
}

// PendingAckCount returns the current size of the pending-ack table.
func (p *Publisher) PendingAckCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// HasSubscribers reports whether channel has at least one live subscriber.
func (p *Publisher) HasSubscribers(channel string) bool {
	return p.hub.SubscriberCount(channel) > 0
}

// SubscriberCount returns the live subscriber count for channel.
func (p *Publisher) SubscriberCount(channel string) int {
	return p.hub.SubscriberCount(channel)
}

// RoomHasSubscribers reports whether a room channel has live subscribers.
func (p *Publisher) RoomHasSubscribers(roomID string) bool {
	return p.HasSubscribers(domain.RoomChannel(roomID))
}

// RoomSubscribers returns the live subscriber count for a room channel.
func (p *Publisher) RoomSubscribers(roomID string) int {
	return p.SubscriberCount(domain.RoomChannel(roomID))
}

// PresenterHasSubscribers reports whether the presenter channel has live subscribers.
func (p *Publisher) PresenterHasSubscribers() bool {
	return p.HasSubscribers(domain.ChannelPresenter)
}

// PresenterSubscribers returns the live subscriber count for the presenter channel.
func (p *Publisher) PresenterSubscribers() int {
	return p.SubscriberCount(domain.ChannelPresenter)
}
