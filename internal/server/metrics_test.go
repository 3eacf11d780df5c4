package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/teemow/inboxtriage/internal/instrumentation"
)

func newProvider(t *testing.T, config instrumentation.Config) *instrumentation.Provider {
	t.Helper()
	config.ServiceName = "inboxtriage-test"
	provider, err := instrumentation.NewProvider(context.Background(), config)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider
}

func prometheusProvider(t *testing.T) *instrumentation.Provider {
	return newProvider(t, instrumentation.Config{Enabled: true, MetricsExporter: instrumentation.ExporterPrometheus})
}

func TestNewMetricsServer(t *testing.T) {
	tests := []struct {
		name     string
		addr     string
		provider func(t *testing.T) *instrumentation.Provider
		wantAddr string
		wantErr  string
	}{
		{name: "prometheus", addr: ":9191", provider: prometheusProvider, wantAddr: ":9191"},
		{name: "default addr", provider: prometheusProvider, wantAddr: DefaultMetricsAddr},
		{
			name:     "nil provider",
			provider: func(*testing.T) *instrumentation.Provider { return nil },
			wantErr:  "instrumentation provider is required",
		},
		{
			name: "disabled provider",
			provider: func(t *testing.T) *instrumentation.Provider {
				return newProvider(t, instrumentation.Config{})
			},
			wantErr: "not enabled",
		},
		{
			name: "stdout exporter",
			provider: func(t *testing.T) *instrumentation.Provider {
				return newProvider(t, instrumentation.Config{Enabled: true, MetricsExporter: instrumentation.ExporterStdout})
			},
			wantErr: ErrNoPrometheus.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewMetricsServer(tt.addr, tt.provider(t))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("NewMetricsServer() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewMetricsServer() unexpected error: %v", err)
			}
			if s.Addr() != tt.wantAddr {
				t.Errorf("Addr() = %q, want %q", s.Addr(), tt.wantAddr)
			}
		})
	}
}

func TestMetricsServer_Routes(t *testing.T) {
	provider := prometheusProvider(t)
	s, err := NewMetricsServer("", provider)
	if err != nil {
		t.Fatal(err)
	}
	provider.Metrics().RecordEventCreated(context.Background(), "meeting")
	provider.Metrics().RecordConflict(context.Background())

	tests := []struct {
		method   string
		path     string
		wantCode int
		wantBody []string
	}{
		{method: http.MethodGet, path: "/healthz", wantCode: http.StatusOK, wantBody: []string{"ok"}},
		{method: http.MethodGet, path: "/metrics", wantCode: http.StatusOK, wantBody: []string{"triage_events_created", "triage_conflicts"}},
		{method: http.MethodHead, path: "/metrics", wantCode: http.StatusOK},
		{method: http.MethodPost, path: "/metrics", wantCode: http.StatusMethodNotAllowed},
		{method: http.MethodGet, path: "/api/run", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			for _, want := range tt.wantBody {
				if !strings.Contains(rec.Body.String(), want) {
					t.Errorf("body does not contain %q", want)
				}
			}
		})
	}
}

func TestMetricsServer_Lifecycle(t *testing.T) {
	s, err := NewMetricsServer("127.0.0.1:0", prometheusProvider(t))
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	var addr string
	for deadline := time.Now().Add(5 * time.Second); time.Now().Before(deadline); time.Sleep(10 * time.Millisecond) {
		if a := s.Addr(); a != "127.0.0.1:0" {
			addr = a
			break
		}
	}
	if addr == "" {
		t.Fatal("metrics server did not bind")
	}

	var resp *http.Response
	for deadline := time.Now().Add(5 * time.Second); time.Now().Before(deadline); time.Sleep(10 * time.Millisecond) {
		if resp, err = http.Get("http://" + addr + "/healthz"); err == nil {
			break
		}
	}
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := <-done; err != nil && !errors.Is(err, http.ErrServerClosed) {
		t.Errorf("Start() returned %v after shutdown", err)
	}
}

func TestMetricsServer_ShutdownWithoutStart(t *testing.T) {
	s, err := NewMetricsServer("", prometheusProvider(t))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() without Start() error = %v", err)
	}
}
