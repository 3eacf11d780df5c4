package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxtriage/internal/instrumentation"
	"github.com/teemow/inboxtriage/internal/logging"
	"github.com/teemow/inboxtriage/internal/server"
	"github.com/teemow/inboxtriage/internal/tools/triage_tools"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

// serveConfig holds the serve command settings.
type serveConfig struct {
	Transport        string
	HTTPAddr         string
	DisableAPI       bool
	DisableStreaming bool
	Yolo             bool
	AllowedOrigins   []string
	Metrics          MetricsConfig
}

func newServeCmd() *cobra.Command {
	var (
		sc             serveConfig
		allowedOrigins string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the MCP server",
		Long: `Start the HTTP API for the web client and the Model Context Protocol (MCP)
server for AI assistants.

Supports multiple MCP transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Served at /mcp next to the HTTP API

Safety Mode:
  By default, MCP tools are read-only: triage_run is forced into a dry run and
  calendar confirmation is not offered. Use --yolo to let tools create
  calendar entries and save drafts. Drafts are never sent.

Endpoints:
  /api/...                       HTTP API
  /healthz, /readyz              Health probes
  /metrics                       Prometheus metrics (dedicated port)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if allowedOrigins == "" {
				allowedOrigins = os.Getenv("API_ALLOWED_ORIGINS")
			}
			sc.AllowedOrigins = parseCommaSeparatedList(allowedOrigins)
			loadMetricsEnvVars(cmd, &sc.Metrics)
			return runServe(cmd.Context(), sc)
		},
	}

	cmd.Flags().StringVar(&sc.Transport, "transport", "stdio", "MCP transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&sc.HTTPAddr, "http-addr", server.DefaultAPIAddr, "HTTP server address for the API and streamable-http transport")
	cmd.Flags().BoolVar(&sc.DisableAPI, "disable-api", false, "Do not serve the HTTP API (stdio transport only)")
	cmd.Flags().BoolVar(&sc.DisableStreaming, "disable-streaming", false, "Disable streaming for HTTP transport (for compatibility with certain clients)")
	cmd.Flags().BoolVar(&sc.Yolo, "yolo", false, "Let MCP tools create calendar entries and save drafts. Default is read-only mode.")
	cmd.Flags().StringVar(&allowedOrigins, "allowed-origins", "", "Comma-separated CORS origins for the HTTP API (default: any). Can also use API_ALLOWED_ORIGINS env var.")

	// Metrics server flags
	cmd.Flags().BoolVar(&sc.Metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&sc.Metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func (c serveConfig) validate() error {
	switch c.Transport {
	case "stdio":
	case "streamable-http":
		if c.DisableAPI {
			return errors.New("--disable-api requires the stdio transport")
		}
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", c.Transport)
	}
	return nil
}

func runServe(parent context.Context, cfg serveConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Logs go to stderr so they never mix with stdio MCP traffic.
	rt, err := newRuntime(ctx, runtimeOptions{LogOutput: os.Stderr, Instrument: true})
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.logger

	var metrics *instrumentation.Metrics
	if rt.provider != nil && rt.provider.Enabled() {
		metrics = rt.provider.Metrics()
	}

	if cfg.Metrics.Enabled && rt.provider != nil && rt.provider.Enabled() {
		metricsServer, err := server.NewMetricsServer(cfg.Metrics.Addr, rt.provider)
		switch {
		case errors.Is(err, server.ErrNoPrometheus):
			logger.Info("metrics server disabled, exporter is not prometheus")
		case err != nil:
			return fmt.Errorf("failed to create metrics server: %w", err)
		default:
			go func() {
				if err := metricsServer.Start(); err != nil {
					logger.Error("metrics server stopped", logging.Err(err))
				}
			}()
			defer shutdownWithTimeout(logger, "metrics server", metricsServer.Shutdown)
		}
	}

	// Create MCP server
	mcpSrv := mcpserver.NewMCPServer("inboxtriage", version,
		mcpserver.WithToolCapabilities(true),
	)

	// readOnly is the inverse of yolo
	readOnly := !cfg.Yolo
	if readOnly {
		logger.Info("MCP tools are read-only (use --yolo to enable calendar and draft writes)")
	} else {
		logger.Info("MCP tools may create calendar entries and save drafts (--yolo)")
	}
	if err := triage_tools.RegisterTriageTools(mcpSrv, rt.sc, readOnly); err != nil {
		return fmt.Errorf("failed to register triage tools: %w", err)
	}

	healthChecker := server.NewHealthChecker(rt.sc)
	handler := server.NewAPIRouter(rt.sc, server.APIOptions{
		Health:         healthChecker,
		Metrics:        metrics,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	errCh := make(chan error, 2)

	if cfg.Transport == "streamable-http" {
		mux := http.NewServeMux()
		mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(mcpSrv,
			mcpserver.WithEndpointPath("/mcp"),
			mcpserver.WithDisableStreaming(cfg.DisableStreaming),
		))
		mux.Handle("/", handler)
		handler = mux
	}

	var apiServer *server.APIServer
	if !cfg.DisableAPI {
		apiServer = server.NewAPIServer(cfg.HTTPAddr, handler)
		go func() {
			if err := apiServer.Start(); err != nil {
				errCh <- fmt.Errorf("HTTP server stopped with error: %w", err)
			}
		}()
		logger.Info("HTTP server listening",
			"addr", cfg.HTTPAddr,
			"mcp", cfg.Transport == "streamable-http")
	}

	if cfg.Transport == "stdio" {
		go func() {
			if err := mcpserver.ServeStdio(mcpSrv); err != nil {
				errCh <- fmt.Errorf("server stopped with error: %w", err)
				return
			}
			// The client closed stdin.
			cancel()
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err = <-errCh:
	}

	healthChecker.SetReady(false)
	if apiServer != nil {
		shutdownWithTimeout(logger, "HTTP server", apiServer.Shutdown)
	}
	return err
}

func shutdownWithTimeout(logger *slog.Logger, name string, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Warn("shutdown failed", "component", name, logging.Err(err))
	}
}

// loadMetricsEnvVars applies METRICS_ENABLED and METRICS_ADDR when the
// matching flag was not set explicitly.
func loadMetricsEnvVars(cmd *cobra.Command, config *MetricsConfig) {
	if !cmd.Flags().Changed("metrics-enabled") {
		if v := os.Getenv("METRICS_ENABLED"); v != "" {
			config.Enabled = v == "true"
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			config.Addr = addr
		}
	}
}

// parseCommaSeparatedList parses a comma-separated string into a slice,
// trimming whitespace from each element and filtering out empty strings.
// Returns nil if the input is empty or contains only whitespace/commas.
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
