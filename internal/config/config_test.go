package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 5000, cfg.AckTimeoutMs)
	assert.Equal(t, int64(1000), cfg.MaxClients)
	assert.Equal(t, 20, cfg.MaxClientsPerIP)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ACK_TIMEOUT_MS", "2500")
	t.Setenv("MAX_CLIENTS", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 2500, cfg.AckTimeoutMs)
	assert.Equal(t, "2500ms", cfg.AckTimeout().String())
	assert.Equal(t, int64(50), cfg.MaxClients)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero ack timeout", "ACK_TIMEOUT_MS", "0"},
		{"negative ack timeout", "ACK_TIMEOUT_MS", "-100"},
		{"zero max clients", "MAX_CLIENTS", "0"},
		{"zero per-ip limit", "MAX_CLIENTS_PER_IP", "0"},
		{"zero rate", "CONN_RATE_PER_SEC", "0"},
		{"zero burst", "CONN_RATE_BURST", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
