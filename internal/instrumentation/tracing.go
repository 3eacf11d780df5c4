package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every span started here.
const TracerName = "github.com/teemow/inboxtriage"

// Span attribute keys.
const (
	SpanAttrTool      = "mcp.tool"
	SpanAttrService   = "google.service"
	SpanAttrOperation = "google.operation"
	SpanAttrAccount   = "triage.account"
	SpanAttrRunID     = "triage.run_id"
	// SpanAttrEmailIndex is 1-based within the run.
	SpanAttrEmailIndex     = "triage.email_index"
	SpanAttrCalendarAction = "triage.calendar_action"
	SpanAttrProvider       = "llm.provider"
	SpanAttrModel          = "llm.model"
)

// Span trees look like
//
//	triage.run
//	└── triage.email
//	    ├── llm.<provider>.complete
//	    └── google.<service>.<operation>
//
// with tool.<name> as the parent of triage.run when a run starts from MCP.

func startSpan(ctx context.Context, name string, kind trace.SpanKind, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(kind),
	)
}

// StartToolSpan starts the server span of an MCP tool call.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{attribute.String(SpanAttrTool, toolName)}, attrs...)
	return startSpan(ctx, "tool."+toolName, trace.SpanKindServer, attrs...)
}

// StartGoogleAPISpan starts a client span for one Gmail or Calendar call.
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
	}, attrs...)
	return startSpan(ctx, "google."+service+"."+operation, trace.SpanKindClient, attrs...)
}

// StartLLMSpan starts a client span for a completion request.
func StartLLMSpan(ctx context.Context, provider, model string) (context.Context, trace.Span) {
	return startSpan(ctx, "llm."+provider+".complete", trace.SpanKindClient,
		attribute.String(SpanAttrProvider, provider),
		attribute.String(SpanAttrModel, model),
	)
}

// StartRunSpan starts the root span of a triage run.
func StartRunSpan(ctx context.Context, runID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{attribute.String(SpanAttrRunID, runID)}, attrs...)
	return startSpan(ctx, "triage.run", trace.SpanKindInternal, attrs...)
}

// StartEmailSpan starts the span of one email's pass through the run.
func StartEmailSpan(ctx context.Context, index int) (context.Context, trace.Span) {
	return startSpan(ctx, "triage.email", trace.SpanKindInternal, attribute.Int(SpanAttrEmailIndex, index))
}

// SetSpanError records err on the span. A nil err is ignored.
func SetSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace ID of the span in ctx, or "".
func GetTraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}
