package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcphook/proxy/internal/domain/session"
	"github.com/mcphook/proxy/internal/port/outbound"
)

func TestHealthChecker_Healthy(t *testing.T) {
	store := session.NewStore(func(ctx context.Context) (outbound.TargetClient, error) {
		return nil, nil
	}, nil)
	hc := NewHealthChecker(store, "test-version")

	health := hc.Check()
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "test-version", health.Version)
	assert.Equal(t, "ok: 0 active", health.Checks["session_store"])
}

func TestHealthChecker_NilStore(t *testing.T) {
	hc := NewHealthChecker(nil, "")
	health := hc.Check()

	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "not configured", health.Checks["session_store"])
}

func TestHealthChecker_Handler_HTTP(t *testing.T) {
	store := session.NewStore(func(ctx context.Context) (outbound.TargetClient, error) {
		return nil, nil
	}, nil)
	hc := NewHealthChecker(store, "1.0.0")

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	hc.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "1.0.0", resp.Version)
}

func TestHealthChecker_GoroutineCount(t *testing.T) {
	hc := NewHealthChecker(nil, "")
	health := hc.Check()

	assert.NotEmpty(t, health.Checks["goroutines"])
	assert.NotEqual(t, "0", health.Checks["goroutines"])
}
