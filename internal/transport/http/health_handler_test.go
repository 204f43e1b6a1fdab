package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitekit/internal/services"
)

func TestHealthCheck(t *testing.T) {
	svc := services.NewHealthService("1.2.3", "2026-01-01", func() int { return 2 })
	h := NewHealthHandler(svc, testLogger())

	w := httptest.NewRecorder()
	h.HealthCheck(w, httptest.NewRequest("GET", "/healthz", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody[map[string]any](t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.2.3", body["version"])

	rt, ok := body["runtime"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), rt["feed_clients"])
}

func TestVersionEndpoint(t *testing.T) {
	svc := services.NewHealthService("1.2.3", "2026-01-01", nil)
	h := NewHealthHandler(svc, testLogger())

	w := httptest.NewRecorder()
	h.Version(w, httptest.NewRequest("GET", "/version", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody[map[string]any](t, w)
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, "2026-01-01", body["build_time"])
}
