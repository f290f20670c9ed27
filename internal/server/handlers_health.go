package server

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/JulienCr/obs-live-suite-sub006/internal/version"
)

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := time.Since(s.startTime).Seconds()
	return c.JSON(200, map[string]any{
		"status": "ok",
		"uptime": uptime,
	})
}

func (s *Server) handleReadiness(c echo.Context) error {
	// No external dependencies: ready as soon as the hub and publisher are
	// wired. Counts are included for dashboard status indicators.
	return c.JSON(200, map[string]any{
		"status":       "ready",
		"clients":      s.hub.ClientCount(),
		"pending_acks": s.publisher.PendingAckCount(),
	})
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(200, version.Get())
}
