// Package dedupe remembers which messages have already been triaged so
// that later runs skip them.
//
// Seen message IDs are kept in Redis, one key per message with its own
// expiry. The store is optional: when no Redis URL is configured the
// CLI runs without it.
package dedupe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/teemow/inboxtriage/internal/logging"
	"github.com/teemow/inboxtriage/internal/model"
	"github.com/teemow/inboxtriage/internal/triage"
)

// DefaultTTL is how long a processed message is remembered.
const DefaultTTL = 7 * 24 * time.Hour

const keyPrefix = "inboxtriage:seen:"

// Store records processed message IDs.
type Store struct {
	client  *redis.Client
	ttl     time.Duration
	account string
}

// New creates a Store on an existing client. Keys are scoped by account.
func New(client *redis.Client, account string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl, account: account}
}

// NewFromURL connects to Redis at redisURL and verifies the connection.
func NewFromURL(ctx context.Context, redisURL, account string, ttl time.Duration) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return New(client, account, ttl), nil
}

// Ping checks the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(messageID string) string {
	return keyPrefix + s.account + ":" + messageID
}

// Remember marks message IDs as processed.
func (s *Store) Remember(ctx context.Context, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range messageIDs {
			p.Set(ctx, s.key(id), time.Now().UTC().Format(time.RFC3339), s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("remembering %d messages: %w", len(messageIDs), err)
	}
	return nil
}

// Seen reports which of the given message IDs were already processed.
func (s *Store) Seen(ctx context.Context, messageIDs ...string) (map[string]bool, error) {
	seen := make(map[string]bool, len(messageIDs))
	if len(messageIDs) == 0 {
		return seen, nil
	}

	cmds := make([]*redis.IntCmd, len(messageIDs))
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range messageIDs {
			cmds[i] = p.Exists(ctx, s.key(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("checking %d messages: %w", len(messageIDs), err)
	}
	for i, cmd := range cmds {
		if cmd.Val() > 0 {
			seen[messageIDs[i]] = true
		}
	}
	return seen, nil
}

// Forget removes message IDs so they are triaged again.
func (s *Store) Forget(ctx context.Context, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	keys := make([]string, len(messageIDs))
	for i, id := range messageIDs {
		keys[i] = s.key(id)
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("forgetting messages: %w", err)
	}
	return nil
}

// FilterFetcher drops already-processed messages from another fetcher's
// output, preserving order.
type FilterFetcher struct {
	next   triage.Fetcher
	seen   *Store
	logger *slog.Logger
}

var _ triage.Fetcher = (*FilterFetcher)(nil)

// NewFilterFetcher wraps next.
func NewFilterFetcher(next triage.Fetcher, seen *Store, logger *slog.Logger) *FilterFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &FilterFetcher{next: next, seen: seen, logger: logger}
}

// FetchEmails fetches from the wrapped fetcher and removes seen messages.
// If Redis is unavailable the unfiltered list is returned.
func (f *FilterFetcher) FetchEmails(ctx context.Context, max int) ([]model.Email, error) {
	emails, err := f.next.FetchEmails(ctx, max)
	if err != nil || len(emails) == 0 {
		return emails, err
	}

	ids := make([]string, len(emails))
	for i, e := range emails {
		ids[i] = e.ID
	}
	seen, err := f.seen.Seen(ctx, ids...)
	if err != nil {
		f.logger.Warn("dedupe lookup failed, processing all fetched emails", logging.Err(err))
		return emails, nil
	}

	kept := make([]model.Email, 0, len(emails))
	for _, e := range emails {
		if !seen[e.ID] {
			kept = append(kept, e)
		}
	}
	if skipped := len(emails) - len(kept); skipped > 0 {
		f.logger.Info("skipping already processed emails", slog.Int("skipped", skipped))
	}
	return kept, nil
}
