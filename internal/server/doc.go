// Package server provides the shared runtime and the HTTP surfaces of
// inboxtriage.
//
// # Key Components
//
// ServerContext owns the Google API clients (created lazily and cached
// per account), the language model and the optional history and dedupe
// stores. It assembles a triage controller for each run and serializes
// runs so only one cycle touches a mailbox at a time. The CLI and the
// MCP server both use it.
//
// NewAPIRouter exposes the runtime over HTTP:
//   - POST /api/run runs one triage cycle with per-request overrides
//   - POST /api/confirm-calendar creates a user-confirmed event or reminder
//   - GET /api/runs and /api/runs/{id} read the run history
//
// HealthChecker serves the /healthz, /readyz and /healthz/detailed probes.
// Readiness fails while the history database or the dedupe Redis is
// unreachable. MetricsServer exposes Prometheus metrics on a dedicated port.
package server
