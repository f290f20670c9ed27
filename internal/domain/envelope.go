package domain

// Envelope is the wire record delivered to overlay clients. Exactly one of
// Channel or RoomID is set: plain-channel events carry "channel", room-addressed
// events carry "roomId". Immutable after construction.
type Envelope struct {
	Channel   string `json:"channel,omitempty"`
	RoomID    string `json:"roomId,omitempty"`
	Type      string `json:"type"`
	Payload   any    `json:"payload"`
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
}
