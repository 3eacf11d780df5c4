package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/teemow/inboxtriage/internal/calendar"
	"github.com/teemow/inboxtriage/internal/classifier"
	"github.com/teemow/inboxtriage/internal/config"
	"github.com/teemow/inboxtriage/internal/dedupe"
	"github.com/teemow/inboxtriage/internal/gmail"
	"github.com/teemow/inboxtriage/internal/google"
	"github.com/teemow/inboxtriage/internal/instrumentation"
	"github.com/teemow/inboxtriage/internal/llm"
	"github.com/teemow/inboxtriage/internal/model"
	"github.com/teemow/inboxtriage/internal/store"
	"github.com/teemow/inboxtriage/internal/triage"
)

// Profile holds the per-run settings a caller may override.
type Profile struct {
	Account   string
	Name      string
	Tone      string
	EmailType string
	MaxEmails int
	DryRun    bool
	Trigger   string
}

// Service is what the HTTP API and the MCP tools need from the runtime.
type Service interface {
	DefaultProfile() Profile
	Run(ctx context.Context, p Profile) (*model.Digest, error)
	ConfirmCalendar(ctx context.Context, account string, req triage.ConfirmRequest) (*triage.ConfirmResult, error)
	UpcomingEvents(ctx context.Context, account string, days int, max int64) ([]calendar.EventSummary, error)
	History() store.Store
}

// Options wire a ServerContext. Config, TokenProvider and LLM are required.
type Options struct {
	Config        *config.Config
	TokenProvider google.TokenProvider
	LLM           llm.Provider

	// History and Dedupe are optional.
	History store.Store
	Dedupe  *dedupe.Store

	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
	Logger  *slog.Logger
}

// ServerContext holds the shared runtime: Google clients per account,
// the language model, and the history and dedupe stores. Runs are
// serialized.
type ServerContext struct {
	ctx             context.Context
	cancel          context.CancelFunc
	opts            Options
	gmailClients    map[string]*gmail.Client    // Maps account name to Gmail client
	calendarClients map[string]*calendar.Client // Maps account name to Calendar client
	mu              sync.RWMutex
	runMu           sync.Mutex
	lastRun         time.Time
	shutdown        bool
}

var _ Service = (*ServerContext)(nil)

// ErrShuttingDown is returned by Run once Shutdown has been called.
var ErrShuttingDown = errors.New("server is shutting down")

// NewServerContext creates a new server context. Clients are created
// lazily on first use.
func NewServerContext(ctx context.Context, opts Options) (*ServerContext, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if opts.TokenProvider == nil {
		return nil, fmt.Errorf("token provider cannot be nil")
	}
	if opts.LLM == nil {
		return nil, fmt.Errorf("llm provider cannot be nil")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:             shutdownCtx,
		cancel:          cancel,
		opts:            opts,
		gmailClients:    make(map[string]*gmail.Client),
		calendarClients: make(map[string]*calendar.Client),
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the runtime configuration.
func (sc *ServerContext) Config() *config.Config {
	return sc.opts.Config
}

// Metrics returns the metrics recorder, or nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.opts.Metrics
}

// AuditLogger returns the audit logger, or nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.opts.Audit
}

// History returns the run history store, or nil when history is disabled.
func (sc *ServerContext) History() store.Store {
	return sc.opts.History
}

func (sc *ServerContext) account(account string) string {
	if account != "" {
		return account
	}
	if sc.opts.Config.GoogleAccount != "" {
		return sc.opts.Config.GoogleAccount
	}
	return google.DefaultAccount
}

// GmailClientForAccount returns the Gmail client for a specific account,
// creating and caching it on first use.
func (sc *ServerContext) GmailClientForAccount(account string) (*gmail.Client, error) {
	account = sc.account(account)

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if client, ok := sc.gmailClients[account]; ok {
		return client, nil
	}
	if !sc.opts.TokenProvider.HasTokenForAccount(account) {
		return nil, fmt.Errorf("%w: %s", config.ErrMissingCredentials, google.GetAuthenticationErrorMessage(account))
	}

	client, err := gmail.NewClientForAccountWithProvider(sc.ctx, account, sc.opts.TokenProvider, sc.opts.Logger)
	if err != nil {
		return nil, err
	}
	sc.gmailClients[account] = client
	return client, nil
}

// SetGmailClientForAccount sets the Gmail client for a specific account
func (sc *ServerContext) SetGmailClientForAccount(account string, client *gmail.Client) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.gmailClients[sc.account(account)] = client
}

// CalendarClientForAccount returns the Calendar client for a specific
// account, creating and caching it on first use.
func (sc *ServerContext) CalendarClientForAccount(account string) (*calendar.Client, error) {
	account = sc.account(account)

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if client, ok := sc.calendarClients[account]; ok {
		return client, nil
	}
	if !sc.opts.TokenProvider.HasTokenForAccount(account) {
		return nil, fmt.Errorf("%w: %s", config.ErrMissingCredentials, google.GetAuthenticationErrorMessage(account))
	}

	client, err := calendar.NewClientForAccountWithProvider(sc.ctx, account, sc.opts.TokenProvider)
	if err != nil {
		return nil, err
	}
	sc.calendarClients[account] = client
	return client, nil
}

// SetCalendarClientForAccount sets the Calendar client for a specific account
func (sc *ServerContext) SetCalendarClientForAccount(account string, client *calendar.Client) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.calendarClients[sc.account(account)] = client
}

// DefaultProfile is the profile described by the configuration.
func (sc *ServerContext) DefaultProfile() Profile {
	cfg := sc.opts.Config
	return Profile{
		Account:   sc.account(""),
		Name:      cfg.Name,
		Tone:      cfg.Tone,
		EmailType: cfg.EmailType,
		MaxEmails: cfg.MaxEmails,
		Trigger:   instrumentation.TriggerCLI,
	}
}

// merge fills unset fields of p from the default profile.
func (sc *ServerContext) merge(p Profile) Profile {
	d := sc.DefaultProfile()
	if p.Account == "" {
		p.Account = d.Account
	}
	if strings.TrimSpace(p.Name) == "" {
		p.Name = d.Name
	}
	if p.Tone == "" {
		p.Tone = d.Tone
	}
	if p.EmailType == "" {
		p.EmailType = d.EmailType
	}
	if p.MaxEmails <= 0 {
		p.MaxEmails = d.MaxEmails
	}
	if p.Trigger == "" {
		p.Trigger = d.Trigger
	}
	return p
}

// Controller assembles a triage controller for a profile.
func (sc *ServerContext) Controller(p Profile) (*triage.Controller, error) {
	p = sc.merge(p)
	cfg := sc.opts.Config

	gmailClient, err := sc.GmailClientForAccount(p.Account)
	if err != nil {
		return nil, err
	}
	calendarClient, err := sc.CalendarClientForAccount(p.Account)
	if err != nil {
		return nil, err
	}

	logger := sc.opts.Logger.With("account", p.Account)
	analyzer := classifier.New(sc.opts.LLM, classifier.Options{
		Name:            p.Name,
		Tone:            p.Tone,
		DefaultDuration: cfg.DefaultMeetingDuration,
		Temperature:     cfg.LLMTemperature,
		MaxTokens:       cfg.LLMMaxTokens,
		Location:        cfg.Location(),
		Logger:          logger,
	})

	deps := triage.Dependencies{
		Fetcher:  &gmail.Fetcher{Client: gmailClient, Type: p.EmailType},
		Analyzer: analyzer,
		Calendar: calendarClient,
		Drafts:   gmailClient,
		Marker:   gmailClient,
		Metrics:  sc.opts.Metrics,
		Audit:    sc.opts.Audit,
		Logger:   logger,
	}
	if sc.opts.Dedupe != nil {
		deps.Fetcher = dedupe.NewFilterFetcher(deps.Fetcher, sc.opts.Dedupe, logger)
		deps.Rememberer = sc.opts.Dedupe
	}
	if sc.opts.History != nil {
		deps.Recorder = sc.opts.History
	}

	return triage.NewController(deps, triage.Options{
		MaxEmails:       p.MaxEmails,
		DefaultDuration: cfg.DefaultMeetingDuration,
		Location:        cfg.Location(),
		DryRun:          p.DryRun,
		MarkAsRead:      cfg.MarkAsRead,
		Trigger:         p.Trigger,
	}), nil
}

// Run executes one triage cycle. Concurrent calls wait for each other.
func (sc *ServerContext) Run(ctx context.Context, p Profile) (*model.Digest, error) {
	if sc.IsShutdown() {
		return nil, ErrShuttingDown
	}
	controller, err := sc.Controller(p)
	if err != nil {
		return nil, err
	}

	sc.runMu.Lock()
	defer sc.runMu.Unlock()
	// Shutdown may have closed the stores while this run waited.
	if sc.IsShutdown() {
		return nil, ErrShuttingDown
	}

	digest, err := controller.Run(ctx)
	sc.mu.Lock()
	sc.lastRun = time.Now()
	sc.mu.Unlock()
	return digest, err
}

// LastRun returns when the last run finished, or the zero time.
func (sc *ServerContext) LastRun() time.Time {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.lastRun
}

// ConfirmCalendar creates a user-confirmed event or reminder. The request
// is validated before any client is created.
func (sc *ServerContext) ConfirmCalendar(ctx context.Context, account string, req triage.ConfirmRequest) (*triage.ConfirmResult, error) {
	loc := sc.opts.Config.Location()
	if _, _, err := req.Validate(loc); err != nil {
		return nil, err
	}

	calendarClient, err := sc.CalendarClientForAccount(account)
	if err != nil {
		return nil, err
	}
	controller := triage.NewController(triage.Dependencies{
		Calendar: calendarClient,
		Metrics:  sc.opts.Metrics,
		Audit:    sc.opts.Audit,
		Logger:   sc.opts.Logger,
	}, triage.Options{
		DefaultDuration: sc.opts.Config.DefaultMeetingDuration,
		Location:        loc,
		Trigger:         instrumentation.TriggerAPI,
	})
	return controller.ConfirmCalendar(ctx, req)
}

// UpcomingEvents lists events in the next days for account.
func (sc *ServerContext) UpcomingEvents(ctx context.Context, account string, days int, max int64) ([]calendar.EventSummary, error) {
	calendarClient, err := sc.CalendarClientForAccount(account)
	if err != nil {
		return nil, err
	}
	return calendarClient.UpcomingEvents(ctx, days, max)
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context and closes the stores.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	if sc.shutdown {
		sc.mu.Unlock()
		return nil
	}
	sc.shutdown = true
	sc.cancel()
	sc.mu.Unlock()

	// Wait for an in-flight run to record its history.
	sc.runMu.Lock()
	defer sc.runMu.Unlock()

	var errs []error
	if sc.opts.History != nil {
		if err := sc.opts.History.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing history: %w", err))
		}
	}
	if sc.opts.Dedupe != nil {
		if err := sc.opts.Dedupe.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing dedupe store: %w", err))
		}
	}
	return errors.Join(errs...)
}
