package domain

import "github.com/google/uuid"

// Broadcaster is the hub surface the publisher depends on.
type Broadcaster interface {
	// Broadcast serializes env once and fans it out to every connection
	// subscribed to channel. Per-connection failures are isolated and never
	// surface to the caller.
	Broadcast(channel string, env Envelope)
	// SubscriberCount returns the number of live connections subscribed to
	// channel. Never blocks; safe to call from inside hub listeners.
	SubscriberCount(channel string) int
}

// AckListener receives every ack frame arriving from overlay clients.
type AckListener func(ack AckEvent)

// DisconnectListener fires exactly once per connection close, after the
// connection has been removed from the registry. channels is the connection's
// final subscribed-channel set.
type DisconnectListener func(clientID uuid.UUID, channels []string)
