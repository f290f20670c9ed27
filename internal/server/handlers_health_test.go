package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleLiveness(t *testing.T) {
	s, _ := testServer(t)

	rec := doRequest(s, http.MethodGet, "/health/live", "")
	require.Equal(t, 200, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Contains(t, resp, "uptime")
}

func TestHandleReadiness(t *testing.T) {
	s, pub := testServer(t)
	pub.pending = 2

	rec := doRequest(s, http.MethodGet, "/health/ready", "")
	require.Equal(t, 200, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp["status"])
	assert.Equal(t, float64(0), resp["clients"])
	assert.Equal(t, float64(2), resp["pending_acks"])
}

func TestHandleVersion(t *testing.T) {
	s, _ := testServer(t)

	rec := doRequest(s, http.MethodGet, "/version", "")
	require.Equal(t, 200, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp, "version")
	assert.Contains(t, resp, "go_version")
}
