package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/teemow/inboxtriage/internal/config"
	"github.com/teemow/inboxtriage/internal/instrumentation"
)

// Options tune how NewProvider builds backends.
type Options struct {
	HTTPClient *http.Client
	Metrics    *instrumentation.Metrics
	Logger     *slog.Logger
}

// NewProvider builds the configured provider, instrumented, with the
// fallback provider chained behind it when one is set.
func NewProvider(ctx context.Context, cfg *config.Config, opts Options) (Provider, error) {
	primary, err := newBackend(ctx, cfg, cfg.LLMProvider, opts)
	if err != nil {
		return nil, err
	}
	var p Provider = Instrument(primary, opts.Metrics)

	if cfg.LLMFallbackProvider == "" || cfg.LLMFallbackProvider == cfg.LLMProvider {
		return p, nil
	}
	secondary, err := newBackend(ctx, cfg, cfg.LLMFallbackProvider, opts)
	if err != nil {
		return nil, fmt.Errorf("fallback provider: %w", err)
	}
	return NewFallbackProvider(p, Instrument(secondary, opts.Metrics), opts.Logger), nil
}

func newBackend(ctx context.Context, cfg *config.Config, name string, opts Options) (Provider, error) {
	switch name {
	case config.ProviderGroq:
		if cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("%w: groq api key", config.ErrMissingCredentials)
		}
		return NewGroqProvider(cfg.GroqBaseURL, cfg.GroqAPIKey, cfg.LLMModel, opts.HTTPClient), nil
	case config.ProviderOllama:
		return NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaModel, opts.HTTPClient), nil
	case config.ProviderBedrock:
		return NewBedrockProvider(ctx, cfg.AWSRegion, cfg.BedrockModelID)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", name)
	}
}
