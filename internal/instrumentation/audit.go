package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Side-effect kinds recorded by the audit log.
const (
	SideEffectDraftSaved   = "draft_saved"
	SideEffectEventCreated = "event_created"
	SideEffectMarkedRead   = "marked_read"
)

// Audit messages.
const (
	auditToolExecuted = "tool_executed"
	auditToolFailed   = "tool_failed"
	auditSideEffect   = "side_effect"
)

// ToolInvocation is one MCP tool call as it appears in the audit log.
type ToolInvocation struct {
	Tool string
	// Account is omitted from the log when it is the default account.
	Account string
	// ServiceName and Operation are set for tools that map onto a single
	// Google API call.
	ServiceName string
	Operation   string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation starts timing a call of tool.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{Tool: tool, StartTime: time.Now()}
}

func (ti *ToolInvocation) WithAccount(account string) *ToolInvocation {
	ti.Account = account
	return ti
}

func (ti *ToolInvocation) WithService(serviceName, operation string) *ToolInvocation {
	ti.ServiceName, ti.Operation = serviceName, operation
	return ti
}

// WithSpanContext copies the trace and span IDs of the active span, if any.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		ti.TraceID = sc.TraceID().String()
		ti.SpanID = sc.SpanID().String()
	}
	return ti
}

// Complete stops the clock.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation { return ti.Complete(true, nil) }

func (ti *ToolInvocation) CompleteWithError(err error) *ToolInvocation {
	return ti.Complete(false, err)
}

// Status is the metric label for the outcome.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the audit attributes. Empty fields are left out.
func (ti *ToolInvocation) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}
	account := ti.Account
	if account == "default" {
		account = ""
	}
	attrs = appendNonEmpty(attrs,
		"account", account,
		"service", ti.ServiceName,
		"operation", ti.Operation,
		"trace_id", ti.TraceID,
		"span_id", ti.SpanID,
		"error", ti.Error,
	)
	return attrs
}

// SideEffect is an external write made for the user during a run: a saved
// draft, a created event or a message marked read.
//
// Counterparty is the sender the write relates to. Unless the logger was
// configured with IncludePII only its domain is logged.
type SideEffect struct {
	Kind         string
	RunID        string
	EmailID      string
	ResourceID   string
	Counterparty string
	TraceID      string
}

func (se SideEffect) logAttrs(includePII bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("kind", se.Kind),
		slog.String("run_id", se.RunID),
		slog.String("email_id", se.EmailID),
	}
	attrs = appendNonEmpty(attrs, "resource_id", se.ResourceID)
	switch {
	case se.Counterparty == "":
	case includePII:
		attrs = append(attrs, slog.String("counterparty", se.Counterparty))
	default:
		attrs = append(attrs, slog.String("counterparty_domain", ExtractUserDomain(se.Counterparty)))
	}
	return appendNonEmpty(attrs, "trace_id", se.TraceID)
}

// appendNonEmpty appends string attributes from key/value pairs, skipping
// empty values.
func appendNonEmpty(attrs []slog.Attr, kv ...string) []slog.Attr {
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			attrs = append(attrs, slog.String(kv[i], kv[i+1]))
		}
	}
	return attrs
}

// AuditLogger writes the audit trail. A nil *AuditLogger discards entries.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger returns an enabled logger that anonymizes counterparties.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger, includePII: config.IncludePII, enabled: config.Enabled}
}

func (al *AuditLogger) SetEnabled(enabled bool) {
	al.enabled = enabled
}

func (al *AuditLogger) active() bool {
	return al != nil && al.enabled
}

// LogToolInvocation logs a finished call, at warn level when it failed.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if !al.active() {
		return
	}
	level, msg := slog.LevelInfo, auditToolExecuted
	if !ti.Success {
		level, msg = slog.LevelWarn, auditToolFailed
	}
	al.logger.LogAttrs(context.Background(), level, msg, ti.LogAttrs()...)
}

// LogSideEffect logs an external write, taking the trace ID from ctx when
// the entry has none.
func (al *AuditLogger) LogSideEffect(ctx context.Context, se SideEffect) {
	if !al.active() {
		return
	}
	if se.TraceID == "" {
		se.TraceID = GetTraceID(ctx)
	}
	al.logger.LogAttrs(ctx, slog.LevelInfo, auditSideEffect, se.logAttrs(al.includePII)...)
}
