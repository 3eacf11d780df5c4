package gmail

import (
	"context"
	"fmt"
	"log/slog"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/inboxtriage/internal/google"
)

const userID = "me"

// Client wraps the Gmail Users service
type Client struct {
	svc     *gmail.UsersService
	account string // The account this client is associated with
	logger  *slog.Logger
}

// Account returns the account name this client is associated with
func (c *Client) Account() string {
	return c.account
}

// NewClient creates a Gmail client from explicit client options. It is the
// building block for the provider-based constructor and for tests that point
// the client at a local server.
func NewClient(ctx context.Context, account string, logger *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		svc:     svc.Users,
		account: account,
		logger:  logger,
	}, nil
}

// NewClientForAccountWithProvider creates a Gmail client authenticated with
// the token the provider holds for account.
func NewClientForAccountWithProvider(ctx context.Context, account string, provider google.TokenProvider, logger *slog.Logger) (*Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("token provider cannot be nil")
	}
	ts, err := provider.TokenSourceForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get Google OAuth token for account %s: %w", account, err)
	}
	return NewClient(ctx, account, logger, option.WithHTTPClient(google.NewHTTPClient(ctx, ts)))
}

// MarkAsRead removes the UNREAD label from a message.
func (c *Client) MarkAsRead(ctx context.Context, messageID string) error {
	if messageID == "" {
		return fmt.Errorf("messageID is required")
	}
	_, err := c.svc.Messages.Modify(userID, messageID, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to mark message %s as read: %w", messageID, err)
	}
	return nil
}
