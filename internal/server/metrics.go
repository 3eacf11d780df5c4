package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/teemow/inboxtriage/internal/instrumentation"
)

// DefaultMetricsAddr is the default address of the metrics listener.
const DefaultMetricsAddr = ":9090"

const metricsWriteTimeout = 10 * time.Second

// ErrNoPrometheus is returned when the provider does not export to
// Prometheus, so there is nothing to scrape.
var ErrNoPrometheus = errors.New("instrumentation provider has no prometheus exporter")

// MetricsServer serves /metrics on its own port so scrapes bypass the API
// middleware and its CORS policy.
type MetricsServer struct {
	*listener
}

// NewMetricsServer creates the metrics listener on addr.
func NewMetricsServer(addr string, provider *instrumentation.Provider) (*MetricsServer, error) {
	if provider == nil {
		return nil, errors.New("instrumentation provider is required for metrics server")
	}
	if !provider.Enabled() {
		return nil, errors.New("instrumentation provider is not enabled")
	}
	scrape := provider.PrometheusHandler()
	if scrape == nil {
		return nil, ErrNoPrometheus
	}
	if addr == "" {
		addr = DefaultMetricsAddr
	}
	return &MetricsServer{newListener("metrics server", addr, metricsRouter(scrape), metricsWriteTimeout)}, nil
}

func metricsRouter(scrape http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.GetHead)
	r.Method(http.MethodGet, "/metrics", scrape)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Handler returns the routes of the metrics listener.
func (s *MetricsServer) Handler() http.Handler {
	return s.srv.Handler
}
