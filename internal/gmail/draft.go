package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// DraftInput describes a reply draft.
type DraftInput struct {
	To       string
	Subject  string
	Body     string
	ThreadID string
}

// ReplySubject prefixes subject with "Re: " unless it already has it.
func ReplySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(subject)), "re:") {
		return subject
	}
	return "Re: " + subject
}

// encodeRFC2047 encodes a string for use in email headers according to RFC 2047
// This is necessary for non-ASCII characters (like German umlauts) in subjects
func encodeRFC2047(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}

// buildRawMessage renders an RFC 2822 plain-text message and encodes it in
// base64url as the Gmail API expects.
func buildRawMessage(in DraftInput) string {
	var b strings.Builder

	b.WriteString("To: ")
	b.WriteString(in.To)
	b.WriteString("\r\n")

	b.WriteString("Subject: ")
	b.WriteString(encodeRFC2047(in.Subject))
	b.WriteString("\r\n")

	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("\r\n")
	b.WriteString(in.Body)

	return base64.URLEncoding.EncodeToString([]byte(b.String()))
}

// SaveDraft stores a draft in the given thread and returns its ID. The draft
// is never sent.
func (c *Client) SaveDraft(ctx context.Context, in DraftInput) (string, error) {
	if in.To == "" {
		return "", fmt.Errorf("recipient is required")
	}
	if strings.TrimSpace(in.Body) == "" {
		return "", fmt.Errorf("body is required")
	}

	draft := &gmail.Draft{
		Message: &gmail.Message{
			Raw:      buildRawMessage(in),
			ThreadId: in.ThreadID,
		},
	}
	created, err := c.svc.Drafts.Create(userID, draft).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to save draft: %w", err)
	}
	return created.Id, nil
}
