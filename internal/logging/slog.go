package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"
)

// Attribute keys shared by every package.
const (
	KeyRunID        = "run_id"
	KeyEmailID      = "email_id"
	KeyState        = "state"
	KeyProvider     = "provider"
	KeySenderHash   = "sender_hash"
	KeySenderDomain = "sender_domain"
	KeyError        = "error"
)

// Output formats accepted by NewLogger.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ParseLevel maps debug, info, warn or error to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}

// NewLogger builds the process logger writing to w. Debug loggers also
// report the source line.
func NewLogger(level, format string, w io.Writer) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl, AddSource: lvl <= slog.LevelDebug}

	var h slog.Handler
	switch strings.ToLower(format) {
	case FormatJSON:
		h = slog.NewJSONHandler(w, opts)
	case FormatText, "":
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format %q, must be one of: text, json", format)
	}
	return slog.New(h), nil
}

// WithRun tags every line of the returned logger with the run ID.
func WithRun(logger *slog.Logger, runID string) *slog.Logger {
	return logger.With(slog.String(KeyRunID, runID))
}

func EmailID(id string) slog.Attr { return slog.String(KeyEmailID, id) }

// State names the pipeline state an email was in, e.g. DRAFTING.
func State(state string) slog.Attr { return slog.String(KeyState, state) }

func Provider(name string) slog.Attr { return slog.String(KeyProvider, name) }

// Err is omitted from the output when err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// address extracts the bare, lower-cased address from a From header value
// such as "Jane Doe <jane@example.com>".
func address(from string) string {
	from = strings.TrimSpace(from)
	if a, err := mail.ParseAddress(from); err == nil {
		from = a.Address
	}
	return strings.ToLower(from)
}

// AnonymizeEmail hashes an address so lines about one sender can be
// correlated without logging who it is.
func AnonymizeEmail(from string) string {
	addr := address(from)
	if addr == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(addr))
	return "sender:" + hex.EncodeToString(sum[:8])
}

func SenderHash(from string) slog.Attr {
	return slog.String(KeySenderHash, AnonymizeEmail(from))
}

// ExtractDomain returns the domain of an address, or "" when there is none.
func ExtractDomain(from string) string {
	local, domain, ok := strings.Cut(address(from), "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return ""
	}
	return domain
}

func Domain(from string) slog.Attr {
	return slog.String(KeySenderDomain, ExtractDomain(from))
}
