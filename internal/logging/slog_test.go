package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
		want    []string
		notWant []string
	}{
		{name: "text info", level: "info", format: "text", want: []string{"msg=hello"}, notWant: []string{"source="}},
		{name: "json debug adds source", level: "debug", format: "JSON", want: []string{`"msg":"hello"`, `"source"`}},
		{name: "empty format is text", level: " warn ", format: "", want: []string{"level=WARN"}},
		{name: "bad level", level: "loud", format: "text", wantErr: true},
		{name: "bad format", level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := NewLogger(tt.level, tt.format, &buf)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			logger.Warn("hello")
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output %q does not contain %q", buf.String(), want)
				}
			}
			for _, notWant := range tt.notWant {
				if strings.Contains(buf.String(), notWant) {
					t.Errorf("output %q contains %q", buf.String(), notWant)
				}
			}
		})
	}
}

func TestNewLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger("warn", "text", &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
}

func TestRunLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := WithRun(slog.New(slog.NewTextHandler(&buf, nil)), "run-42")

	logger.Warn("classification failed",
		EmailID("m1"),
		State("CLASSIFYING"),
		Provider("groq"),
		Err(errors.New("timeout")),
		SenderHash("Jane <jane@example.com>"),
		Domain("Jane <jane@example.com>"))
	logger.Info("done", Err(nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	for _, want := range []string{
		"run_id=run-42", "email_id=m1", "state=CLASSIFYING", "provider=groq",
		"error=timeout", "sender_hash=sender:", "sender_domain=example.com",
	} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("first line missing %q: %q", want, lines[0])
		}
	}
	if strings.Contains(lines[0], "jane@") {
		t.Errorf("address leaked: %q", lines[0])
	}
	if strings.Contains(lines[1], "error") {
		t.Errorf("Err(nil) should be omitted: %q", lines[1])
	}
}

func TestAnonymizeEmail(t *testing.T) {
	got := AnonymizeEmail("jane@example.com")
	if len(got) != len("sender:")+16 || !strings.HasPrefix(got, "sender:") {
		t.Fatalf("AnonymizeEmail = %q, want sender: plus 16 hex chars", got)
	}

	tests := []struct {
		name string
		from string
		same bool
	}{
		{name: "case", from: "Jane@Example.COM", same: true},
		{name: "display name", from: `"Doe, Jane" <jane@example.com>`, same: true},
		{name: "other sender", from: "john@example.com", same: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if (AnonymizeEmail(tt.from) == got) != tt.same {
				t.Errorf("AnonymizeEmail(%q) = %q, same as jane@example.com: %v", tt.from, AnonymizeEmail(tt.from), !tt.same)
			}
		})
	}

	if AnonymizeEmail("") != "" {
		t.Error("empty sender should anonymize to empty string")
	}
}

func TestExtractDomain(t *testing.T) {
	tests := map[string]string{
		"jane@example.com":                 "example.com",
		"Jane Doe <jane@Mail.Example.com>": "mail.example.com",
		"invalid":                          "",
		"":                                 "",
		"@":                                "",
		"user@":                            "",
		"@example.com":                     "",
	}
	for from, want := range tests {
		if got := ExtractDomain(from); got != want {
			t.Errorf("ExtractDomain(%q) = %q, want %q", from, got, want)
		}
	}
}
