package hub

import (
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/JulienCr/obs-live-suite-sub006/internal/domain"
	"github.com/JulienCr/obs-live-suite-sub006/internal/metrics"
)

const (
	maxFrameSize      = 4096
	inboundMsgsPerSec = 64
	inboundBurst      = 128
)

// ReadPump runs the inbound protocol loop for a registered connection.
// Blocks until the connection closes, then unregisters the client. Malformed
// or unrecognized frames are logged and dropped; the loop never panics.
func (h *Hub) ReadPump(clientID uuid.UUID, conn *websocket.Conn) {
	defer h.Unregister(clientID)

	conn.SetReadLimit(maxFrameSize)
	limiter := rate.NewLimiter(rate.Limit(inboundMsgsPerSec), inboundBurst)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("Client connection closed", "client_id", clientID.String(), "error", err)
			}
			return
		}

		if !limiter.Allow() {
			metrics.HubDroppedFramesTotal.WithLabelValues("rate_limited").Inc()
			continue
		}

		h.handleInbound(clientID, data)
	}
}

func (h *Hub) handleInbound(clientID uuid.UUID, data []byte) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		slog.Debug("Dropping malformed frame", "client_id", clientID.String(), "error", err)
		metrics.HubDroppedFramesTotal.WithLabelValues("malformed").Inc()
		return
	}

	switch head.Type {
	case domain.FrameSubscribe:
		var frame domain.SubscribeFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Channel == "" {
			slog.Debug("Dropping invalid subscribe frame", "client_id", clientID.String())
			metrics.HubDroppedFramesTotal.WithLabelValues("malformed").Inc()
			return
		}
		h.Subscribe(clientID, frame.Channel)

	case domain.FrameAck:
		var ack domain.AckEvent
		if err := json.Unmarshal(data, &ack); err != nil || ack.EventID == "" {
			slog.Debug("Dropping invalid ack frame", "client_id", clientID.String())
			metrics.HubDroppedFramesTotal.WithLabelValues("malformed").Inc()
			return
		}
		h.dispatchAck(ack)

	default:
		slog.Debug("Dropping frame with unknown type", "client_id", clientID.String(), "frame_type", head.Type)
		metrics.HubDroppedFramesTotal.WithLabelValues("unknown_type").Inc()
	}
}

// dispatchAck forwards an ack frame to the registered ack listeners.
func (h *Hub) dispatchAck(ack domain.AckEvent) {
	h.cmdCh <- ackCmd{ack: ack}
}
