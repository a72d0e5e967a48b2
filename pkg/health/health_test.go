package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probe(t *testing.T, endpoint http.HandlerFunc) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	endpoint(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func TestReadyEndpoint_GateClosed(t *testing.T) {
	s := New()
	s.Start(context.Background(), time.Minute)
	defer s.Stop()

	code, body := probe(t, s.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unavailable", body["status"])

	s.SetReady(true)
	code, body = probe(t, s.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestReadyEndpoint_FailingCheck(t *testing.T) {
	s := New()
	s.AddReadinessCheck("db", time.Second, func(context.Context) error {
		return errors.New("connection refused")
	})
	s.Start(context.Background(), time.Minute)
	defer s.Stop()
	s.SetReady(true)

	code, body := probe(t, s.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	checks, ok := body["checks"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "connection refused", checks["db"])
}

func TestLiveEndpoint_IndependentOfReadyGate(t *testing.T) {
	s := New()
	s.AddLivenessCheck("goroutines", time.Second, GoroutineCountCheck(100000))
	s.Start(context.Background(), time.Minute)
	defer s.Stop()

	// Readiness gate stays closed; liveness must still be OK.
	code, body := probe(t, s.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
