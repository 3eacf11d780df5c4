package instrumentation

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"
)

// Label values shared by the metrics, spans and audit entries.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusUnknown = "unknown"

	// A degraded email had at least one failed step but still produced a result.
	OutcomeClean    = "clean"
	OutcomeDegraded = "degraded"

	TriggerCLI       = "cli"
	TriggerAPI       = "api"
	TriggerMCP       = "mcp"
	TriggerScheduled = "scheduled"

	ServiceGmail    = "gmail"
	ServiceCalendar = "calendar"
)

// Exporters.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// DefaultMetricInterval is the push interval of the otlp and stdout
// metric exporters.
const DefaultMetricInterval = 10 * time.Second

var (
	metricsExporters = []string{ExporterPrometheus, ExporterOTLP, ExporterStdout}
	tracingExporters = []string{ExporterOTLP, ExporterStdout, ExporterNone}
)

// Config configures metrics, tracing and audit logging.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// ServiceInstanceID falls back to the hostname.
	ServiceInstanceID string
	K8sNamespace      string
	K8sPodName        string

	Enabled bool

	// MetricsExporter is one of prometheus, otlp or stdout.
	MetricsExporter string
	// TracingExporter is one of otlp, stdout or none.
	TracingExporter string

	// OTLPEndpoint is host:port without a scheme.
	OTLPEndpoint string
	// OTLPInsecure disables TLS towards the collector. Spans carry run and
	// message IDs, so keep it off outside development.
	OTLPInsecure bool

	TraceSamplingRate float64

	// DetailedLabels attaches the account label to tool metrics.
	DetailedLabels bool

	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig configures the audit trail of drafts, events and
// label changes made for the user.
type AuditLoggingConfig struct {
	Enabled bool
	// IncludePII keeps full addresses. Otherwise only the domain is logged.
	IncludePII bool
}

// DefaultConfig reads the instrumentation settings from the environment.
//
//	OTEL_SERVICE_NAME            service name (inboxtriage)
//	INSTRUMENTATION_ENABLED      metrics and tracing on/off (true)
//	METRICS_EXPORTER             prometheus | otlp | stdout (prometheus)
//	TRACING_EXPORTER             otlp | stdout | none (none)
//	OTEL_EXPORTER_OTLP_ENDPOINT  collector host:port
//	OTEL_TRACES_SAMPLER_ARG      sampling ratio (0.1)
//	AUDIT_LOGGING_ENABLED        audit trail on/off (true)
//	AUDIT_LOGGING_INCLUDE_PII    log full addresses (false)
//	METRICS_DETAILED_LABELS      account label on tool metrics (false)
func DefaultConfig() Config {
	return Config{
		ServiceName:       getEnvOrDefault("OTEL_SERVICE_NAME", "inboxtriage"),
		ServiceVersion:    "unknown",
		ServiceInstanceID: getEnvOrDefault("OTEL_SERVICE_INSTANCE_ID", ""),
		K8sNamespace:      getEnvOrDefault("K8S_NAMESPACE", getEnvOrDefault("POD_NAMESPACE", "")),
		K8sPodName:        getEnvOrDefault("K8S_POD_NAME", getEnvOrDefault("HOSTNAME", "")),
		Enabled:           getEnvBoolOrDefault("INSTRUMENTATION_ENABLED", true),
		MetricsExporter:   getEnvOrDefault("METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:   getEnvOrDefault("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:      getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:      getEnvBoolOrDefault("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate: getEnvFloatOrDefault("OTEL_TRACES_SAMPLER_ARG", 0.1),
		DetailedLabels:    getEnvBoolOrDefault("METRICS_DETAILED_LABELS", false),
		AuditLogging: AuditLoggingConfig{
			Enabled:    getEnvBoolOrDefault("AUDIT_LOGGING_ENABLED", true),
			IncludePII: getEnvBoolOrDefault("AUDIT_LOGGING_INCLUDE_PII", false),
		},
	}
}

// Validate checks the sampling rate and exporter names. Empty exporters
// are allowed and get their defaults in NewProvider.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}
	if c.MetricsExporter != "" && !slices.Contains(metricsExporters, c.MetricsExporter) {
		return fmt.Errorf("invalid metrics exporter %q, must be one of: %v", c.MetricsExporter, metricsExporters)
	}
	if c.TracingExporter != "" && !slices.Contains(tracingExporters, c.TracingExporter) {
		return fmt.Errorf("invalid tracing exporter %q, must be one of: %v", c.TracingExporter, tracingExporters)
	}
	if c.OTLPEndpoint == "" {
		for kind, exporter := range map[string]string{"tracing": c.TracingExporter, "metrics": c.MetricsExporter} {
			if exporter == ExporterOTLP {
				return fmt.Errorf("OTLP endpoint is required when using OTLP %s exporter", kind)
			}
		}
	}
	return nil
}

// envOrDefault parses key with parse. Unset or unparseable values yield def.
func envOrDefault[T any](key string, def T, parse func(string) (T, error)) T {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func getEnvOrDefault(key, def string) string {
	return envOrDefault(key, def, func(s string) (string, error) { return s, nil })
}

func getEnvBoolOrDefault(key string, def bool) bool {
	return envOrDefault(key, def, strconv.ParseBool)
}

func getEnvFloatOrDefault(key string, def float64) float64 {
	return envOrDefault(key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}
