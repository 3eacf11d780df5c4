// Package classifier turns emails into structured judgments and drafts
// reply bodies with a language model.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teemow/inboxtriage/internal/llm"
	"github.com/teemow/inboxtriage/internal/logging"
	"github.com/teemow/inboxtriage/internal/model"
	"github.com/teemow/inboxtriage/internal/prompt"
)

// debugPreviewChars is how much of an unparseable reply is logged.
const debugPreviewChars = 300

// Options configure a Classifier.
type Options struct {
	// Name signs drafted replies.
	Name string
	// Tone is professional, casual or formal.
	Tone            string
	DefaultDuration int
	Temperature     float64
	MaxTokens       int
	// Location is used for "today" in the classification prompt.
	Location *time.Location
	Logger   *slog.Logger
}

// Classifier is backed by an llm.Provider.
type Classifier struct {
	provider llm.Provider
	prompts  *prompt.Renderer
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Classifier.
func New(provider llm.Provider, opts Options) *Classifier {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Classifier{
		provider: provider,
		prompts:  prompt.NewRenderer(),
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Classify asks the model for a judgment of email. Whenever the call or the
// parse fails, the fallback classification is returned with the error.
func (c *Classifier) Classify(ctx context.Context, email model.Email) (model.Classification, error) {
	system, user, err := c.prompts.ClassifyPrompts(email, c.now().In(c.opts.Location), c.opts.DefaultDuration)
	if err != nil {
		return model.FallbackClassification(), err
	}

	reply, err := c.provider.Complete(ctx, llm.Request{
		System:      system,
		Prompt:      user,
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
		JSON:        true,
	})
	if err != nil {
		return model.FallbackClassification(), fmt.Errorf("classification request failed: %w", err)
	}

	result, err := Parse(reply)
	if err != nil {
		c.logger.Debug("unparseable classification reply",
			logging.EmailID(email.ID),
			slog.String("reply", prompt.Truncate(reply, debugPreviewChars)),
			logging.Err(err))
		return result, err
	}
	return result, nil
}

// DraftReply generates a reply body for email. It never returns an empty
// body without an error.
func (c *Classifier) DraftReply(ctx context.Context, email model.Email, judgment model.Classification, outcome model.CalendarOutcome) (string, error) {
	system, user, err := c.prompts.DraftPrompts(prompt.DraftInput{
		Name:           c.opts.Name,
		Tone:           c.opts.Tone,
		Email:          email,
		Classification: judgment,
		Outcome:        outcome,
	})
	if err != nil {
		return "", err
	}

	body, err := c.provider.Complete(ctx, llm.Request{
		System:      system,
		Prompt:      user,
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("draft request failed: %w", err)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return "", llm.ErrEmptyResponse
	}
	return body, nil
}

// IsUnparseable reports whether err came from a malformed model reply
// rather than a failed request.
func IsUnparseable(err error) bool {
	return errors.Is(err, ErrUnparseable)
}
