package triage

import (
	"context"
	"time"

	"github.com/teemow/inboxtriage/internal/calendar"
	"github.com/teemow/inboxtriage/internal/gmail"
	"github.com/teemow/inboxtriage/internal/model"
)

// Fetcher returns emails to triage in the order they should be processed.
type Fetcher interface {
	FetchEmails(ctx context.Context, max int) ([]model.Email, error)
}

// Analyzer classifies emails and drafts replies. Classify returns the
// fallback classification together with a non-nil error when the model
// reply is unusable.
type Analyzer interface {
	Classify(ctx context.Context, email model.Email) (model.Classification, error)
	DraftReply(ctx context.Context, email model.Email, judgment model.Classification, outcome model.CalendarOutcome) (string, error)
}

// CalendarGateway creates calendar entries and reports busy time.
type CalendarGateway interface {
	CreateEvent(ctx context.Context, input calendar.EventInput) (*calendar.EventSummary, error)
	CreateReminder(ctx context.Context, title string, at time.Time, description, tz string) (*calendar.EventSummary, error)
	CheckConflicts(ctx context.Context, start, end time.Time) ([]model.TimeRange, error)
}

// DraftSaver stores reply drafts. It never sends them.
type DraftSaver interface {
	SaveDraft(ctx context.Context, in gmail.DraftInput) (string, error)
}

// ReadMarker clears the unread flag on a processed email.
type ReadMarker interface {
	MarkAsRead(ctx context.Context, messageID string) error
}

// Rememberer is told about every recorded email so later runs can skip it.
type Rememberer interface {
	Remember(ctx context.Context, messageIDs ...string) error
}

// RunRecorder persists finished digests.
type RunRecorder interface {
	SaveRun(ctx context.Context, digest *model.Digest) error
}
