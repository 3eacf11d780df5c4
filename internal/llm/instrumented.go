package llm

import (
	"context"
	"time"

	"github.com/teemow/inboxtriage/internal/instrumentation"
)

// InstrumentedProvider records a span and request metrics around every
// completion of the wrapped provider.
type InstrumentedProvider struct {
	next    Provider
	metrics *instrumentation.Metrics
}

// Instrument wraps p. metrics may be nil, in which case only spans are
// recorded.
func Instrument(p Provider, metrics *instrumentation.Metrics) *InstrumentedProvider {
	return &InstrumentedProvider{next: p, metrics: metrics}
}

// Name implements Provider.
func (p *InstrumentedProvider) Name() string { return p.next.Name() }

// Model implements Model.
func (p *InstrumentedProvider) Model() string { return modelOf(p.next) }

// Complete implements Provider.
func (p *InstrumentedProvider) Complete(ctx context.Context, req Request) (string, error) {
	model := modelOf(p.next)
	ctx, span := instrumentation.StartLLMSpan(ctx, p.next.Name(), model)
	defer span.End()

	start := time.Now()
	out, err := p.next.Complete(ctx, req)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	if p.metrics != nil {
		p.metrics.RecordLLMRequest(ctx, p.next.Name(), model, status, time.Since(start))
	}
	return out, err
}

func modelOf(p Provider) string {
	if m, ok := p.(Model); ok {
		return m.Model()
	}
	return "unknown"
}
