package gmail

import (
	"context"
	"fmt"

	"github.com/teemow/inboxtriage/internal/model"
)

// Selection modes for Fetcher.
const (
	TypeUnread = "unread"
	TypeLatest = "latest"
)

// maxPageSize is the largest page the messages.list endpoint returns.
const maxPageSize = 500

// Fetcher retrieves inbox messages in the order Gmail lists them (newest first).
type Fetcher struct {
	Client *Client
	// Type is TypeUnread (INBOX and UNREAD) or TypeLatest (INBOX only).
	Type string
}

// FetchEmails lists up to max inbox messages and fetches each in full.
// A message that cannot be retrieved is logged and skipped.
func (f *Fetcher) FetchEmails(ctx context.Context, max int) ([]model.Email, error) {
	if max <= 0 {
		return nil, nil
	}
	if max > maxPageSize {
		max = maxPageSize
	}

	labels := []string{"INBOX", "UNREAD"}
	if f.Type == TypeLatest {
		labels = []string{"INBOX"}
	}

	c := f.Client
	res, err := c.svc.Messages.List(userID).
		LabelIds(labels...).
		MaxResults(int64(max)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	emails := make([]model.Email, 0, len(res.Messages))
	for _, ref := range res.Messages {
		msg, err := c.svc.Messages.Get(userID, ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			if ctx.Err() != nil {
				return emails, ctx.Err()
			}
			c.logger.Warn("skipping message that could not be retrieved",
				"message_id", ref.Id, "error", err.Error())
			continue
		}
		emails = append(emails, ParseMessage(msg))
	}
	return emails, nil
}
