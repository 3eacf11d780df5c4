package gmail

import (
	"encoding/base64"
	"net/mail"
	"regexp"
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxtriage/internal/model"
)

// Header fallbacks for messages missing From or Subject.
const (
	UnknownSender = "Unknown"
	NoSubject     = "(No Subject)"
)

// replyMarkers start quoted history or client signatures. Everything from the
// first line beginning with one of them is dropped.
var replyMarkers = []string{
	"On ",
	"-----Original Message-----",
	"From:",
	"________________________________",
	"Sent from my iPhone",
	"Sent from my Galaxy",
	"Get Outlook for",
}

var (
	blankRuns     = regexp.MustCompile(`\n{3,}`)
	angleBrackets = regexp.MustCompile(`<(.+?)>`)
)

// ParseMessage normalizes a message fetched with format=full.
func ParseMessage(msg *gmail.Message) model.Email {
	e := model.Email{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
		Sender:   UnknownSender,
		Subject:  NoSubject,
	}

	var from string
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch strings.ToLower(h.Name) {
			case "from":
				from = h.Value
				e.Sender = h.Value
			case "subject":
				e.Subject = h.Value
			case "date":
				e.Date = h.Value
			}
		}
	}
	e.SenderEmail = ExtractSenderEmail(from)

	if t, err := mail.ParseDate(e.Date); err == nil {
		e.ReceivedAt = t
	} else if msg.InternalDate > 0 {
		e.ReceivedAt = time.UnixMilli(msg.InternalDate)
	}

	e.Body = CleanBody(ExtractBody(msg.Payload))
	if e.Body == "" {
		e.Body = msg.Snippet
	}
	return e
}

// ExtractBody returns the first text/plain content of a payload, descending
// into nested multipart containers. Single-part payloads return their body.
func ExtractBody(part *gmail.MessagePart) string {
	if part == nil {
		return ""
	}
	if len(part.Parts) == 0 {
		if part.Body == nil {
			return ""
		}
		return strings.TrimSpace(decodeBody(part.Body.Data))
	}

	for _, sub := range part.Parts {
		switch {
		case sub.MimeType == "text/plain":
			if sub.Body != nil && sub.Body.Data != "" {
				if body := strings.TrimSpace(decodeBody(sub.Body.Data)); body != "" {
					return body
				}
			}
		case strings.HasPrefix(sub.MimeType, "multipart"):
			if body := ExtractBody(sub); body != "" {
				return body
			}
		}
	}
	return ""
}

// decodeBody decodes Gmail's base64url body data, accepting padded and
// unpadded input.
func decodeBody(data string) string {
	if data == "" {
		return ""
	}
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding, base64.StdEncoding} {
		if decoded, err := enc.DecodeString(data); err == nil {
			return strings.ToValidUTF8(string(decoded), "�")
		}
	}
	return ""
}

// CleanBody collapses runs of blank lines and cuts quoted reply chains and
// mobile signatures.
func CleanBody(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = blankRuns.ReplaceAllString(body, "\n\n")
	for _, marker := range replyMarkers {
		if idx := strings.Index(body, "\n"+marker); idx != -1 {
			body = body[:idx]
		}
	}
	return strings.TrimSpace(body)
}

// ExtractSenderEmail returns the address inside angle brackets of a From
// header, or the trimmed header when there are none.
func ExtractSenderEmail(from string) string {
	if m := angleBrackets.FindStringSubmatch(from); m != nil {
		return m[1]
	}
	return strings.TrimSpace(from)
}
