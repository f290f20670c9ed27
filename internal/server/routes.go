package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/version", s.handleVersion)

	// Overlay websocket endpoint (OBS browser sources)
	s.echo.GET("/ws/overlay", s.handleWebSocket)

	// Control-plane publish API (macro sequencer, quiz engine, dashboards)
	s.echo.POST("/api/publish/:channel", s.handlePublish)
	s.echo.POST("/api/publish/room/:roomId", s.handlePublishToRoom)
	s.echo.POST("/api/publish/presenter", s.handlePublishToPresenter)

	// Subscriber-count queries used by UI status indicators
	s.echo.GET("/api/channels/:channel/subscribers", s.handleSubscriberCount)
}
