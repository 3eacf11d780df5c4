// Package instrumentation wires OpenTelemetry metrics and traces and the
// audit log.
//
// NewProvider installs the global meter and tracer providers. With the
// prometheus exporter the provider owns a registry that also carries the
// Go runtime and process collectors; PrometheusHandler serves it on the
// metrics port. otlp and stdout push every DefaultMetricInterval.
//
// Metric families:
//
//	triage_runs_total, triage_run_duration_seconds   by trigger and status
//	triage_emails_processed_total                    by outcome (clean, degraded)
//	triage_drafts_saved_total
//	triage_events_created_total
//	triage_conflicts_total
//	llm_requests_total, llm_request_duration_seconds by provider and model
//	google_api_operations_total, google_api_operation_duration_seconds
//	mcp_tool_invocations_total, mcp_tool_invocation_duration_seconds
//	http_requests_total, http_request_duration_seconds
//
// All recorders are safe on a nil *Metrics, which is what callers hold
// when instrumentation is disabled.
//
// The audit log records every draft, event and read-marking done for the
// user. Counterparties are reduced to their domain unless
// AUDIT_LOGGING_INCLUDE_PII is set.
package instrumentation
