package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxtriage/internal/dedupe"
	"github.com/teemow/inboxtriage/internal/store"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func getJSON(t *testing.T, h http.Handler, path string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealthChecker_Readiness(t *testing.T) {
	healthy := pingFunc(func(context.Context) error { return nil })
	broken := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		checks     map[string]Pinger
		notReady   bool
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "no dependencies",
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"ready": "ok", "shutdown": "ok"},
		},
		{
			name:       "all dependencies answer",
			checks:     map[string]Pinger{"history": healthy, "dedupe": healthy},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"history": "ok", "dedupe": "ok", "ready": "ok"},
		},
		{
			name:       "redis down",
			checks:     map[string]Pinger{"history": healthy, "dedupe": broken},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"history": "ok", "dedupe": "unreachable"},
		},
		{
			name:       "marked not ready",
			notReady:   true,
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"ready": "not ready"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthChecker(nil)
			for name, p := range tt.checks {
				h.AddCheck(name, p)
			}
			h.SetReady(!tt.notReady)

			code, body := getJSON(t, h.ReadinessHandler(), "/readyz")
			assert.Equal(t, tt.wantStatus, code)

			checks, ok := body["checks"].(map[string]any)
			require.True(t, ok)
			for name, want := range tt.wantChecks {
				assert.Equal(t, want, checks[name], name)
			}
		})
	}
}

func TestHealthChecker_PingDeadline(t *testing.T) {
	h := NewHealthChecker(nil)
	h.AddCheck("history", pingFunc(func(ctx context.Context) error {
		deadline, ok := ctx.Deadline()
		if !ok || time.Until(deadline) > dependencyCheckTimeout {
			return errors.New("ping without deadline")
		}
		return nil
	}))

	code, _ := getJSON(t, h.ReadinessHandler(), "/readyz")
	assert.Equal(t, http.StatusOK, code)
}

func TestHealthChecker_Dependencies(t *testing.T) {
	history, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = history.Close() })

	mr := miniredis.RunT(t)
	seen, err := dedupe.NewFromURL(context.Background(), "redis://"+mr.Addr(), "default", time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = seen.Close() })

	sc, err := NewServerContext(context.Background(), Options{
		Config:        testConfig(),
		TokenProvider: withTokens(),
		LLM:           replyLLM{},
		History:       history,
		Dedupe:        seen,
	})
	require.NoError(t, err)

	h := NewHealthChecker(sc)

	code, body := getJSON(t, h.DetailedHealthHandler(), "/healthz/detailed")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["history"])
	assert.Equal(t, "ok", body["dedupe"])
	assert.NotContains(t, body, "last_run")

	mr.Close()
	code, body = getJSON(t, h.ReadinessHandler(), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["history"])
	assert.Equal(t, "unreachable", checks["dedupe"])

	// Liveness does not depend on Redis.
	code, _ = getJSON(t, h.LivenessHandler(), "/healthz")
	assert.Equal(t, http.StatusOK, code)
}

func TestHealthChecker_ShuttingDown(t *testing.T) {
	sc, err := NewServerContext(context.Background(), Options{
		Config:        testConfig(),
		TokenProvider: withTokens(),
		LLM:           replyLLM{},
	})
	require.NoError(t, err)
	h := NewHealthChecker(sc)

	require.NoError(t, sc.Shutdown())

	code, body := getJSON(t, h.ReadinessHandler(), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "shutting down", body["checks"].(map[string]any)["shutdown"])

	code, body = getJSON(t, h.DetailedHealthHandler(), "/healthz/detailed")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "shutting down", body["status"])
	assert.Equal(t, "disabled", body["history"])
}
