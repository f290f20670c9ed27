package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// AckTimeoutMs bounds the lifetime of every pending acknowledgment.
	AckTimeoutMs int `env:"ACK_TIMEOUT_MS" default:"5000"`

	// Connection limits for the websocket accept path.
	MaxClients      int64   `env:"MAX_CLIENTS" default:"1000"`
	MaxClientsPerIP int     `env:"MAX_CLIENTS_PER_IP" default:"20"`
	ConnRatePerSec  float64 `env:"CONN_RATE_PER_SEC" default:"10"`
	ConnRateBurst   int     `env:"CONN_RATE_BURST" default:"10"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// AckTimeout returns the ack timeout as a duration.
func (c *Config) AckTimeout() time.Duration {
	return time.Duration(c.AckTimeoutMs) * time.Millisecond
}

func validate(cfg *Config) error {
	if cfg.AckTimeoutMs <= 0 {
		return fmt.Errorf("ACK_TIMEOUT_MS must be positive, got %d", cfg.AckTimeoutMs)
	}
	if cfg.MaxClients <= 0 {
		return fmt.Errorf("MAX_CLIENTS must be positive, got %d", cfg.MaxClients)
	}
	if cfg.MaxClientsPerIP <= 0 {
		return fmt.Errorf("MAX_CLIENTS_PER_IP must be positive, got %d", cfg.MaxClientsPerIP)
	}
	if cfg.ConnRatePerSec <= 0 {
		return fmt.Errorf("CONN_RATE_PER_SEC must be positive, got %v", cfg.ConnRatePerSec)
	}
	if cfg.ConnRateBurst <= 0 {
		return fmt.Errorf("CONN_RATE_BURST must be positive, got %d", cfg.ConnRateBurst)
	}
	return nil
}
