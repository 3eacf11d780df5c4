package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// TokenProvider supplies OAuth token sources for Google APIs.
type TokenProvider interface {
	// TokenSourceForAccount returns a refreshing token source for account.
	TokenSourceForAccount(ctx context.Context, account string) (oauth2.TokenSource, error)

	// HasTokenForAccount checks if a token exists for the specified account.
	HasTokenForAccount(account string) bool
}

// FileTokenProvider provides tokens stored on disk by the login flow.
type FileTokenProvider struct {
	conf *oauth2.Config
}

// NewFileTokenProvider creates a file-based token provider that refreshes
// tokens with conf.
func NewFileTokenProvider(conf *oauth2.Config) *FileTokenProvider {
	return &FileTokenProvider{conf: conf}
}

// TokenSourceForAccount loads the account's token file.
func (p *FileTokenProvider) TokenSourceForAccount(ctx context.Context, account string) (oauth2.TokenSource, error) {
	if p.conf == nil {
		return nil, fmt.Errorf("oauth config cannot be nil")
	}
	return GetTokenSourceForAccount(ctx, p.conf, account)
}

// HasTokenForAccount checks if a token file exists for the specified account.
func (p *FileTokenProvider) HasTokenForAccount(account string) bool {
	return HasTokenForAccount(account)
}

// StaticTokenProvider serves a fixed token source for every account.
// It is used when a caller already holds a token, e.g. in tests.
type StaticTokenProvider struct {
	Source oauth2.TokenSource
}

// TokenSourceForAccount returns the fixed source.
func (p StaticTokenProvider) TokenSourceForAccount(context.Context, string) (oauth2.TokenSource, error) {
	if p.Source == nil {
		return nil, ErrNoToken
	}
	return p.Source, nil
}

// HasTokenForAccount reports whether a source is set.
func (p StaticTokenProvider) HasTokenForAccount(string) bool {
	return p.Source != nil
}
