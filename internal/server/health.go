package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusDisabled     = "disabled"
	healthStatusUnreachable  = "unreachable"

	// dependencyCheckTimeout bounds each dependency ping of a probe.
	dependencyCheckTimeout = 2 * time.Second
)

// Pinger is a dependency the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker serves the liveness and readiness probes. Readiness pings
// the optional history database and dedupe Redis when they are enabled.
type HealthChecker struct {
	ready         atomic.Bool
	serverContext *ServerContext
	startTime     time.Time

	mu     sync.RWMutex
	checks map[string]Pinger
}

// NewHealthChecker creates a HealthChecker. sc may be nil in tests.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		startTime:     time.Now(),
		checks:        make(map[string]Pinger),
	}
	h.ready.Store(true)

	if sc != nil {
		if p, ok := sc.opts.History.(Pinger); ok {
			h.AddCheck("history", p)
		}
		if sc.opts.Dedupe != nil {
			h.AddCheck("dedupe", sc.opts.Dedupe)
		}
	}
	return h
}

// AddCheck registers a dependency under name.
func (h *HealthChecker) AddCheck(name string, p Pinger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = p
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

func (h *HealthChecker) isServerShuttingDown() bool {
	return h.serverContext != nil && h.serverContext.IsShutdown()
}

// runChecks pings every dependency and reports per-name status.
func (h *HealthChecker) runChecks(ctx context.Context) (map[string]string, bool) {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	h.mu.RUnlock()
	sort.Strings(names)

	results := make(map[string]string, len(names))
	allOK := true
	for _, name := range names {
		h.mu.RLock()
		p := h.checks[name]
		h.mu.RUnlock()

		pingCtx, cancel := context.WithTimeout(ctx, dependencyCheckTimeout)
		err := p.Ping(pingCtx)
		cancel()
		if err != nil {
			results[name] = healthStatusUnreachable
			allOK = false
			continue
		}
		results[name] = healthStatusOK
	}
	return results, allOK
}

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse is the body of /healthz/detailed.
type DetailedHealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	History string `json:"history"`
	Dedupe  string `json:"dedupe"`
	LastRun string `json:"last_run,omitempty"`
}

// handler is satisfied by *http.ServeMux and chi.Router.
type handler interface {
	Handle(pattern string, h http.Handler)
}

func writeHealth(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// LivenessHandler answers /healthz. It only says the process is up.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler answers /readyz. The server is ready when it is marked
// ready, is not shutting down and every enabled dependency answers a ping.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks, allOK := h.runChecks(r.Context())

		checks["ready"] = healthStatusOK
		if !h.ready.Load() {
			checks["ready"] = healthStatusNotReady
			allOK = false
		}
		checks["shutdown"] = healthStatusOK
		if h.isServerShuttingDown() {
			checks["shutdown"] = healthStatusShuttingDown
			allOK = false
		}

		if !allOK {
			writeHealth(w, http.StatusServiceUnavailable, HealthResponse{Status: healthStatusNotReady, Checks: checks})
			return
		}
		writeHealth(w, http.StatusOK, HealthResponse{Status: healthStatusOK, Checks: checks})
	})
}

// DetailedHealthHandler answers /healthz/detailed with uptime, dependency
// state and the time of the last run.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks, _ := h.runChecks(r.Context())
		response := DetailedHealthResponse{
			Status:  healthStatusOK,
			Uptime:  time.Since(h.startTime).Truncate(time.Second).String(),
			History: healthStatusDisabled,
			Dedupe:  healthStatusDisabled,
		}
		if s, ok := checks["history"]; ok {
			response.History = s
		}
		if s, ok := checks["dedupe"]; ok {
			response.Dedupe = s
		}
		if sc := h.serverContext; sc != nil {
			if last := sc.LastRun(); !last.IsZero() {
				response.LastRun = last.UTC().Format(time.RFC3339)
			}
		}

		status := http.StatusOK
		switch {
		case !h.ready.Load():
			response.Status = healthStatusNotReady
			status = http.StatusServiceUnavailable
		case h.isServerShuttingDown():
			response.Status = healthStatusShuttingDown
			status = http.StatusServiceUnavailable
		}
		writeHealth(w, status, response)
	})
}

// RegisterHealthEndpoints registers /healthz, /readyz and /healthz/detailed.
func (h *HealthChecker) RegisterHealthEndpoints(mux handler) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}
