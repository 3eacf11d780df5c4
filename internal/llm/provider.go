// Package llm provides chat-completion backends for classification and
// reply drafting.
//
// Every backend implements Provider. NewProvider picks one from the
// configuration and optionally chains a fallback behind it.
package llm

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrEmptyResponse is returned when a provider answers with no text.
var ErrEmptyResponse = errors.New("empty response from model")

// Request is a single-turn chat completion.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	// JSON asks the backend to constrain output to a JSON object when it
	// supports that.
	JSON bool
}

// Provider is a chat-completion backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Model is implemented by providers that know which model they call.
type Model interface {
	Model() string
}

const defaultHTTPTimeout = 90 * time.Second

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}
