package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/teemow/inboxtriage/internal/config"
	"github.com/teemow/inboxtriage/internal/credential"
	"github.com/teemow/inboxtriage/internal/dedupe"
	"github.com/teemow/inboxtriage/internal/google"
	"github.com/teemow/inboxtriage/internal/instrumentation"
	"github.com/teemow/inboxtriage/internal/llm"
	"github.com/teemow/inboxtriage/internal/logging"
	"github.com/teemow/inboxtriage/internal/server"
	"github.com/teemow/inboxtriage/internal/store"
)

// runtimeOptions control how much of the runtime is started.
type runtimeOptions struct {
	// LogOutput receives log lines; stderr when nil.
	LogOutput io.Writer
	// Account overrides the configured Google account.
	Account string
	// Instrument starts the OpenTelemetry provider.
	Instrument bool
}

// runtime is everything a command needs to talk to Gmail, Calendar and
// the language model.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	provider *instrumentation.Provider
	audit    *instrumentation.AuditLogger
	sc       *server.ServerContext
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	return loadConfigTo(os.Stderr)
}

func loadConfigTo(w io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, w)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// newRuntime loads configuration, resolves credentials and wires the
// server context. Missing credentials abort here, before any email is read.
func newRuntime(ctx context.Context, opts runtimeOptions) (*runtime, error) {
	w := opts.LogOutput
	if w == nil {
		w = os.Stderr
	}
	cfg, logger, err := loadConfigTo(w)
	if err != nil {
		return nil, err
	}
	if opts.Account != "" {
		cfg.GoogleAccount = opts.Account
	}

	var secrets config.SecretGetter
	if creds, err := credential.Open(); err != nil {
		logger.Debug("keyring unavailable", logging.Err(err))
	} else {
		secrets = creds
	}
	if err := cfg.RequireCredentials(secrets); err != nil {
		return nil, err
	}

	oauthConf, err := google.OAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrMissingCredentials, err)
	}
	tokens := google.NewFileTokenProvider(oauthConf)
	if err := requireToken(tokens, cfg.GoogleAccount); err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, logger: logger}

	var metrics *instrumentation.Metrics
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if opts.Instrument {
		rt.provider, err = instrumentation.NewProvider(ctx, instrConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
		}
		if rt.provider.Enabled() {
			metrics = rt.provider.Metrics()
		}
	}
	if instrConfig.AuditLogging.Enabled {
		rt.audit = instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)
	}

	provider, err := llm.NewProvider(ctx, cfg, llm.Options{Metrics: metrics, Logger: logger})
	if err != nil {
		rt.shutdownProvider()
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}

	var history store.Store
	if cfg.HistoryDB != "" {
		s, err := store.NewSQLiteStore(cfg.HistoryDB)
		if err != nil {
			logger.Warn("run history disabled", logging.Err(err))
		} else {
			history = s
		}
	}

	var seen *dedupe.Store
	if cfg.RedisURL != "" {
		seen, err = dedupe.NewFromURL(ctx, cfg.RedisURL, cfg.GoogleAccount, cfg.DedupeTTL)
		if err != nil {
			logger.Warn("dedupe disabled", logging.Err(err))
			seen = nil
		}
	}

	opt := server.Options{
		Config:        cfg,
		TokenProvider: tokens,
		LLM:           provider,
		Dedupe:        seen,
		Metrics:       metrics,
		Audit:         rt.audit,
		Logger:        logger,
	}
	if history != nil {
		opt.History = history
	}
	rt.sc, err = server.NewServerContext(ctx, opt)
	if err != nil {
		rt.shutdownProvider()
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	return rt, nil
}

func (rt *runtime) shutdownProvider() {
	if rt.provider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.provider.Shutdown(ctx); err != nil {
		rt.logger.Warn("instrumentation shutdown failed", logging.Err(err))
	}
}

// Close releases the stores and flushes telemetry.
func (rt *runtime) Close() {
	if rt.sc != nil {
		if err := rt.sc.Shutdown(); err != nil {
			rt.logger.Warn("shutdown failed", logging.Err(err))
		}
	}
	rt.shutdownProvider()
}

// requireToken fails with config.ErrMissingCredentials when the account
// has not completed the OAuth login.
func requireToken(tokens google.TokenProvider, account string) error {
	if account == "" {
		account = google.DefaultAccount
	}
	if !tokens.HasTokenForAccount(account) {
		return fmt.Errorf("%w: %s", config.ErrMissingCredentials, google.GetAuthenticationErrorMessage(account))
	}
	return nil
}

// missingCredentials reports whether err should be shown as a setup hint.
func missingCredentials(err error) bool {
	return errors.Is(err, config.ErrMissingCredentials)
}
