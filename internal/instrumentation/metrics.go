package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrTool      = "tool"
	attrAccount   = "account"
	attrProvider  = "provider"
	attrModel     = "model"
	attrTrigger   = "trigger"
	attrAction    = "action"
	attrOutcome   = "outcome"
)

// timed is a request counter paired with a latency histogram sharing the
// same attributes.
type timed struct {
	total    metric.Int64Counter
	duration metric.Float64Histogram
}

func (t timed) record(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	if t.total == nil || t.duration == nil {
		return
	}
	opt := metric.WithAttributes(attrs...)
	t.total.Add(ctx, 1, opt)
	t.duration.Record(ctx, d.Seconds(), opt)
}

func add(ctx context.Context, c metric.Int64Counter, attrs ...attribute.KeyValue) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// Metrics records the service metrics. The zero value and a nil *Metrics
// record nothing.
type Metrics struct {
	http      timed
	googleAPI timed
	llm       timed
	runs      timed
	tools     timed

	emailsProcessed metric.Int64Counter
	draftsSaved     metric.Int64Counter
	eventsCreated   metric.Int64Counter
	conflicts       metric.Int64Counter

	// detailedLabels adds the account label to tool metrics.
	detailedLabels bool
}

// instruments creates counters and histograms, remembering the first error.
type instruments struct {
	meter metric.Meter
	err   error
}

func (in *instruments) counter(name, desc, unit string) metric.Int64Counter {
	c, err := in.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil {
		in.err = errors.Join(in.err, fmt.Errorf("failed to create %s counter: %w", name, err))
	}
	return c
}

func (in *instruments) timed(prefix, what, unit string, bounds ...float64) timed {
	total := in.counter(prefix+"s_total", "Total number of "+what+"s", unit)
	h, err := in.meter.Float64Histogram(prefix+"_duration_seconds",
		metric.WithDescription(what+" duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(bounds...),
	)
	if err != nil {
		in.err = errors.Join(in.err, fmt.Errorf("failed to create %s histogram: %w", prefix, err))
	}
	return timed{total: total, duration: h}
}

// NewMetrics creates every instrument on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	in := &instruments{meter: meter}
	m := &Metrics{
		http:      in.timed("http_request", "HTTP request", "{request}", 0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 120),
		googleAPI: in.timed("google_api_operation", "Google API operation", "{operation}", 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
		llm:       in.timed("llm_request", "LLM completion request", "{request}", 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60),
		runs:      in.timed("triage_run", "triage run", "{run}", 1, 5, 10, 30, 60, 120, 300, 600),
		tools:     in.timed("mcp_tool_invocation", "MCP tool invocation", "{invocation}", 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 120),

		emailsProcessed: in.counter("triage_emails_processed_total", "Total number of emails processed by triage runs", "{email}"),
		draftsSaved:     in.counter("triage_drafts_saved_total", "Total number of reply drafts saved", "{draft}"),
		eventsCreated:   in.counter("triage_events_created_total", "Total number of calendar events and reminders created", "{event}"),
		conflicts:       in.counter("triage_conflicts_total", "Total number of meetings created over busy time", "{conflict}"),

		detailedLabels: detailedLabels,
	}
	if in.err != nil {
		return nil, in.err
	}
	return m, nil
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.http.record(ctx, duration,
		attribute.String(attrMethod, method),
		attribute.String(attrPath, route),
		attribute.String(attrStatus, strconv.Itoa(statusCode)))
}

// RecordGoogleAPIOperation records one Gmail or Calendar call. operation
// is one of the Operation constants.
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.googleAPI.record(ctx, duration,
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status))
}

func (m *Metrics) RecordLLMRequest(ctx context.Context, provider, model, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.llm.record(ctx, duration,
		attribute.String(attrProvider, provider),
		attribute.String(attrModel, model),
		attribute.String(attrStatus, status))
}

// RecordTriageRun records a finished run. trigger is one of the Trigger
// constants.
func (m *Metrics) RecordTriageRun(ctx context.Context, trigger, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runs.record(ctx, duration,
		attribute.String(attrTrigger, trigger),
		attribute.String(attrStatus, status))
}

// RecordEmailProcessed counts one recorded email as OutcomeClean or
// OutcomeDegraded.
func (m *Metrics) RecordEmailProcessed(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	add(ctx, m.emailsProcessed, attribute.String(attrOutcome, outcome))
}

func (m *Metrics) RecordDraftSaved(ctx context.Context) {
	if m == nil {
		return
	}
	add(ctx, m.draftsSaved)
}

// RecordEventCreated counts a created "meeting" or "reminder".
func (m *Metrics) RecordEventCreated(ctx context.Context, action string) {
	if m == nil {
		return
	}
	add(ctx, m.eventsCreated, attribute.String(attrAction, action))
}

// RecordConflict counts a meeting created over busy time.
func (m *Metrics) RecordConflict(ctx context.Context) {
	if m == nil {
		return
	}
	add(ctx, m.conflicts)
}

// RecordToolInvocationWithAccount records an MCP tool call. The account
// label is only attached with detailed labels on.
func (m *Metrics) RecordToolInvocationWithAccount(ctx context.Context, toolName, status, account string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && account != "" {
		attrs = append(attrs, attribute.String(attrAccount, account))
	}
	m.tools.record(ctx, duration, attrs...)
}
