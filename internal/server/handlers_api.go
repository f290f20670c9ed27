package server

import (
	"encoding/json"
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/JulienCr/obs-live-suite-sub006/internal/domain"
	apperrors "github.com/JulienCr/obs-live-suite-sub006/internal/errors"
)

// publishRequest is the control-plane request body. Payload stays opaque;
// it is validated as JSON at this boundary and passed through untouched.
type publishRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (s *Server) handlePublish(c echo.Context) error {
	channel := c.Param("channel")
	if channel == "" {
		return apperrors.ValidationError("channel is required")
	}
	if domain.IsRoomChannel(channel) {
		return apperrors.ValidationError("use the room publish endpoint for room channels").
			WithField("channel", channel)
	}

	req, err := bindPublishRequest(c)
	if err != nil {
		return err
	}

	env := s.publisher.Publish(channel, req.Type, req.Payload)
	return respondPublished(c, env)
}

func (s *Server) handlePublishToRoom(c echo.Context) error {
	roomID := c.Param("roomId")
	if roomID == "" {
		return apperrors.ValidationError("roomId is required")
	}

	req, err := bindPublishRequest(c)
	if err != nil {
		return err
	}

	env := s.publisher.PublishToRoom(roomID, req.Type, req.Payload)
	return respondPublished(c, env)
}

func (s *Server) handlePublishToPresenter(c echo.Context) error {
	req, err := bindPublishRequest(c)
	if err != nil {
		return err
	}

	env := s.publisher.PublishToPresenter(req.Type, req.Payload)
	return respondPublished(c, env)
}

func (s *Server) handleSubscriberCount(c echo.Context) error {
	channel := c.Param("channel")
	if channel == "" {
		return apperrors.ValidationError("channel is required")
	}

	count := s.publisher.SubscriberCount(channel)
	if err := c.JSON(200, map[string]any{
		"channel":         channel,
		"subscribers":     count,
		"has_subscribers": count > 0,
	}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func bindPublishRequest(c echo.Context) (*publishRequest, error) {
	var req publishRequest
	if err := c.Bind(&req); err != nil {
		return nil, apperrors.ValidationError("invalid request body")
	}
	if req.Type == "" {
		return nil, apperrors.ValidationError("type is required")
	}
	return &req, nil
}

func respondPublished(c echo.Context, env domain.Envelope) error {
	if err := c.JSON(202, map[string]any{
		"status": "accepted",
		"id":     env.ID,
	}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
