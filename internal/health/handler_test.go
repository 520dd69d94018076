// AngelaMos | 2026
// handler_test.go

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func readiness(t *testing.T, h *Handler) (int, ReadinessResponse) {
	t.Helper()

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	var body ReadinessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return rec.Code, body
}

func TestReadinessAllHealthy(t *testing.T) {
	code, body := readiness(t, NewHandler(pinger{}, pinger{}))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	require.Len(t, body.Checks, 2)
	assert.Equal(t, "database", body.Checks[0].Name)
	assert.Equal(t, "redis", body.Checks[1].Name)
}

func TestReadinessDegradedWhenDatabaseDown(t *testing.T) {
	code, body := readiness(t, NewHandler(pinger{err: errors.New("down")}, pinger{}))

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", body.Status)
	assert.False(t, body.Checks[0].Healthy)
	assert.Equal(t, "ping failed", body.Checks[0].Message)
}

func TestOptionalDependencyDoesNotFailReadiness(t *testing.T) {
	h := NewHandler(pinger{}, pinger{}, Dependency{
		Name:     "rabbitmq",
		Checker:  pinger{err: errors.New("closed")},
		Optional: true,
	})

	code, body := readiness(t, h)

	assert.Equal(t, http.StatusOK, code)
	require.Len(t, body.Checks, 3)
	assert.False(t, body.Checks[2].Healthy)
	assert.True(t, body.Checks[2].Optional)
}

func TestShutdownFailsLivenessAndReadiness(t *testing.T) {
	h := NewHandler(pinger{}, pinger{})
	h.SetShutdown(true)

	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNotReady(t *testing.T) {
	h := NewHandler(pinger{}, pinger{})
	h.SetReady(false)

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_ready")
}
