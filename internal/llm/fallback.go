package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/teemow/inboxtriage/internal/logging"
)

// FallbackProvider tries the primary provider and, on any error other than
// cancellation, the secondary.
type FallbackProvider struct {
	primary   Provider
	secondary Provider
	logger    *slog.Logger
}

// NewFallbackProvider chains secondary behind primary.
func NewFallbackProvider(primary, secondary Provider, logger *slog.Logger) *FallbackProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackProvider{primary: primary, secondary: secondary, logger: logger}
}

// Name implements Provider.
func (f *FallbackProvider) Name() string {
	return f.primary.Name() + "+" + f.secondary.Name()
}

// Complete implements Provider.
func (f *FallbackProvider) Complete(ctx context.Context, req Request) (string, error) {
	out, err := f.primary.Complete(ctx, req)
	if err == nil {
		return out, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "", err
	}

	f.logger.Warn("primary LLM provider failed, falling back",
		logging.Provider(f.primary.Name()),
		slog.String("fallback", f.secondary.Name()),
		logging.Err(err))

	out, fbErr := f.secondary.Complete(ctx, req)
	if fbErr != nil {
		return "", fmt.Errorf("%s failed: %w; %s failed: %w", f.primary.Name(), err, f.secondary.Name(), fbErr)
	}
	return out, nil
}
