package domain

// Client-to-server frame types.
const (
	FrameSubscribe = "subscribe"
	FrameAck       = "ack"
)

// SubscribeFrame is the client request to join a channel.
// Subscribing twice to the same channel has no additional effect.
type SubscribeFrame struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

// AckEvent is the client acknowledgment for a delivered envelope.
// Success=false with an Error string is still a valid ack: the pending entry
// is cleaned up either way.
type AckEvent struct {
	Type    string `json:"type"`
	EventID string `json:"eventId"`
	Channel string `json:"channel"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
