package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/JulienCr/obs-live-suite-sub006/internal/config"
	"github.com/JulienCr/obs-live-suite-sub006/internal/hub"
	"github.com/JulienCr/obs-live-suite-sub006/internal/logging"
	"github.com/JulienCr/obs-live-suite-sub006/internal/publisher"
	"github.com/JulienCr/obs-live-suite-sub006/internal/server"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func runGracefulShutdown(srv *server.Server, pub *publisher.Publisher, h *hub.Hub) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		// Cancel outstanding ack timers before tearing down connections
		// so timeouts don't fire against clients we are closing anyway.
		pub.ClearPendingAcks()
		h.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	overlayHub := hub.New(clock, cfg.MaxClients)
	pub := publisher.New(overlayHub, clock, cfg.AckTimeout())

	// The hub feeds acks and disconnects back into the publisher.
	overlayHub.AddAckListener(pub.HandleAck)
	overlayHub.AddDisconnectListener(pub.HandleClientDisconnect)

	srv := server.NewServer(cfg, overlayHub, pub)

	done := runGracefulShutdown(srv, pub, overlayHub)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
