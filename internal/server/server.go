package server

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/JulienCr/obs-live-suite-sub006/internal/config"
	"github.com/JulienCr/obs-live-suite-sub006/internal/domain"
	apperrors "github.com/JulienCr/obs-live-suite-sub006/internal/errors"
	"github.com/JulienCr/obs-live-suite-sub006/internal/logging"
)

// requestIDMiddleware stamps every request context with an ID the
// slog handler picks up.
func requestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := logging.WithRequestID(c.Request().Context(), logging.NewRequestID())
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// controlPublisher is the publisher surface used by the API handlers.
type controlPublisher interface {
	Publish(channel, eventType string, payload any) domain.Envelope
	PublishToRoom(roomID, eventType string, payload any) domain.Envelope
	PublishToPresenter(eventType string, payload any) domain.Envelope
	SubscriberCount(channel string) int
	PendingAckCount() int
}

// overlayHub is the hub surface used by the websocket handler.
type overlayHub interface {
	Register(conn *websocket.Conn) (uuid.UUID, error)
	ReadPump(clientID uuid.UUID, conn *websocket.Conn)
	ClientCount() int
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	hub       overlayHub
	publisher controlPublisher
	limits    *ConnectionLimits
	startTime time.Time
}

func NewServer(cfg *config.Config, h overlayHub, pub controlPublisher) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(requestIDMiddleware)
	e.Use(apperrors.Middleware())

	s := &Server{
		echo:      e,
		config:    cfg,
		hub:       h,
		publisher: pub,
		limits:    NewConnectionLimits(cfg.MaxClients, cfg.MaxClientsPerIP, cfg.ConnRatePerSec, cfg.ConnRateBurst),
		startTime: time.Now(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	return s.echo.Start(":" + s.config.Port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
