package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/teemow/inboxtriage/internal/config"
	"github.com/teemow/inboxtriage/internal/instrumentation"
	"github.com/teemow/inboxtriage/internal/logging"
	"github.com/teemow/inboxtriage/internal/model"
	"github.com/teemow/inboxtriage/internal/store"
	"github.com/teemow/inboxtriage/internal/triage"
)

const (
	// DefaultAPIAddr is the default address for the HTTP API.
	DefaultAPIAddr = ":5000"

	// maxRequestBody bounds JSON request bodies.
	maxRequestBody = 1 << 20
)

// APIOptions configure the HTTP API router.
type APIOptions struct {
	Health  *HealthChecker
	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
	// AllowedOrigins for CORS. Defaults to any origin.
	AllowedOrigins []string
}

type api struct {
	svc     Service
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// NewAPIRouter returns the HTTP API routes.
func NewAPIRouter(svc Service, opts APIOptions) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = &instrumentation.Metrics{}
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	a := &api{svc: svc, metrics: opts.Metrics, logger: opts.Logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(a.observe)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if opts.Health != nil {
		opts.Health.RegisterHealthEndpoints(r)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", a.health)
		r.Post("/run", a.run)
		r.Post("/confirm-calendar", a.confirmCalendar)
		r.Post("/skip-calendar", a.skipCalendar)
		r.Get("/runs", a.listRuns)
		r.Get("/runs/{id}", a.getRun)
	})
	return r
}

// observe records request metrics labelled by route pattern.
func (a *api) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		a.metrics.RecordHTTPRequest(r.Context(), r.Method, route, status, time.Since(start))
		a.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)))
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"success": false, "error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	return dec.Decode(v)
}

func (a *api) health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    healthStatusOK,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// RunRequest overrides the configured profile for one run. Email is
// accepted for compatibility; drafts are always saved in the
// authenticated account.
type RunRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	NumEmails int    `json:"num_emails"`
	EmailType string `json:"email_type"`
	Tone      string `json:"tone"`
	Account   string `json:"account"`
	DryRun    bool   `json:"dry_run"`
}

// RunResponse is returned by POST /api/run.
type RunResponse struct {
	Success bool                    `json:"success"`
	Total   int                     `json:"total"`
	RunID   string                  `json:"run_id"`
	Results []model.ProcessedResult `json:"results"`
	Digest  string                  `json:"digest"`
}

func (req RunRequest) validate() error {
	if req.NumEmails < 0 {
		return errors.New("num_emails must not be negative")
	}
	switch req.EmailType {
	case "", config.EmailTypeUnread, config.EmailTypeLatest:
	default:
		return errors.New("email_type must be unread or latest")
	}
	switch req.Tone {
	case "", config.ToneProfessional, config.ToneCasual, config.ToneFormal:
	default:
		return errors.New("tone must be professional, casual or formal")
	}
	return nil
}

func (a *api) run(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	// An empty body runs with the configured profile.
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	digest, err := a.svc.Run(r.Context(), Profile{
		Account:   req.Account,
		Name:      req.Name,
		Tone:      req.Tone,
		EmailType: req.EmailType,
		MaxEmails: req.NumEmails,
		DryRun:    req.DryRun,
		Trigger:   instrumentation.TriggerAPI,
	})
	if err != nil {
		a.logger.Error("triage run failed", logging.Err(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var text bytes.Buffer
	_ = triage.RenderText(&text, digest)
	respondJSON(w, http.StatusOK, RunResponse{
		Success: true,
		Total:   digest.Total,
		RunID:   digest.RunID,
		Results: digest.Results,
		Digest:  text.String(),
	})
}

// confirmRequest is a triage.ConfirmRequest with an optional account.
type confirmRequest struct {
	triage.ConfirmRequest
	Account string `json:"account"`
}

func (a *api) confirmCalendar(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := a.svc.ConfirmCalendar(r.Context(), req.Account, req.ConfirmRequest)
	var verr *triage.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, verr.Message)
		return
	case err != nil:
		a.logger.Error("calendar confirmation failed", logging.Err(err))
		respondError(w, http.StatusInternalServerError, "Failed to create calendar event")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"event_id":   res.EventID,
		"event_link": res.EventLink,
		"title":      res.Title,
		"start":      res.Start.Format(time.RFC3339),
	})
}

func (a *api) skipCalendar(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Calendar event skipped.",
	})
}

func (a *api) listRuns(w http.ResponseWriter, r *http.Request) {
	history := a.svc.History()
	if history == nil {
		respondError(w, http.StatusServiceUnavailable, "Run history is disabled")
		return
	}

	limit := store.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := history.ListRuns(r.Context(), limit)
	if err != nil {
		a.logger.Error("listing runs failed", logging.Err(err))
		respondError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "runs": runs})
}

func (a *api) getRun(w http.ResponseWriter, r *http.Request) {
	history := a.svc.History()
	if history == nil {
		respondError(w, http.StatusServiceUnavailable, "Run history is disabled")
		return
	}

	digest, err := history.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrRunNotFound) {
		respondError(w, http.StatusNotFound, "Run not found")
		return
	}
	if err != nil {
		a.logger.Error("getting run failed", logging.Err(err))
		respondError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "digest": digest})
}

// APIServer serves the HTTP API and, with the streamable-http transport,
// the MCP endpoint.
type APIServer struct {
	*listener
}

// NewAPIServer creates an API server on addr.
func NewAPIServer(addr string, handler http.Handler) *APIServer {
	if addr == "" {
		addr = DefaultAPIAddr
	}
	return &APIServer{newListener("API server", addr, handler, 0)}
}
