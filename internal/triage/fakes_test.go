package triage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/teemow/inboxtriage/internal/calendar"
	"github.com/teemow/inboxtriage/internal/classifier"
	"github.com/teemow/inboxtriage/internal/gmail"
	"github.com/teemow/inboxtriage/internal/model"
)

type fakeFetcher struct {
	emails []model.Email
	err    error
	max    int
}

func (f *fakeFetcher) FetchEmails(_ context.Context, max int) ([]model.Email, error) {
	f.max = max
	return f.emails, f.err
}

type analysis struct {
	judgment model.Classification
	err      error
	draft    string
	draftErr error
}

type fakeAnalyzer struct {
	byID     map[string]analysis
	drafted  []string
	outcomes []model.CalendarOutcome
}

func (f *fakeAnalyzer) Classify(_ context.Context, email model.Email) (model.Classification, error) {
	a, ok := f.byID[email.ID]
	if !ok {
		return model.Classification{CalendarAction: model.CalendarNone, Urgency: model.UrgencyLow}, nil
	}
	if a.err != nil {
		return model.FallbackClassification(), a.err
	}
	return a.judgment, nil
}

func (f *fakeAnalyzer) DraftReply(_ context.Context, email model.Email, _ model.Classification, outcome model.CalendarOutcome) (string, error) {
	f.drafted = append(f.drafted, email.ID)
	f.outcomes = append(f.outcomes, outcome)
	a := f.byID[email.ID]
	return a.draft, a.draftErr
}

type reminderCall struct {
	Title       string
	At          time.Time
	Description string
	TZ          string
}

type fakeCalendar struct {
	mu        sync.Mutex
	busy      []model.TimeRange
	busyErr   error
	createErr error
	events    []calendar.EventInput
	reminders []reminderCall
	checks    int
}

func (f *fakeCalendar) CreateEvent(_ context.Context, in calendar.EventInput) (*calendar.EventSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.events = append(f.events, in)
	id := fmt.Sprintf("evt-%d", len(f.events)+len(f.reminders))
	return &calendar.EventSummary{ID: id, Summary: in.Summary, Start: in.Start, End: in.End, HTMLLink: "https://calendar.example/" + id}, nil
}

func (f *fakeCalendar) CreateReminder(_ context.Context, title string, at time.Time, description, tz string) (*calendar.EventSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.reminders = append(f.reminders, reminderCall{Title: title, At: at, Description: description, TZ: tz})
	id := fmt.Sprintf("evt-%d", len(f.events)+len(f.reminders))
	return &calendar.EventSummary{ID: id, Summary: calendar.ReminderTitlePrefix + title, Start: at, End: at.Add(calendar.ReminderBlock)}, nil
}

func (f *fakeCalendar) CheckConflicts(_ context.Context, _, _ time.Time) ([]model.TimeRange, error) {
	f.checks++
	return f.busy, f.busyErr
}

func (f *fakeCalendar) calls() int {
	return len(f.events) + len(f.reminders) + f.checks
}

type fakeDrafts struct {
	saved []gmail.DraftInput
	err   error
}

func (f *fakeDrafts) SaveDraft(_ context.Context, in gmail.DraftInput) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saved = append(f.saved, in)
	return fmt.Sprintf("draft-%d", len(f.saved)), nil
}

type fakeMarker struct {
	read []string
}

func (f *fakeMarker) MarkAsRead(_ context.Context, id string) error {
	f.read = append(f.read, id)
	return nil
}

type fakeRememberer struct {
	ids []string
}

func (f *fakeRememberer) Remember(_ context.Context, ids ...string) error {
	f.ids = append(f.ids, ids...)
	return nil
}

type fakeRecorder struct {
	digests []*model.Digest
}

func (f *fakeRecorder) SaveRun(_ context.Context, d *model.Digest) error {
	f.digests = append(f.digests, d)
	return nil
}

var (
	errTransport   = errors.New("transport closed")
	errUnparseable = fmt.Errorf("%w: model reply is not valid JSON", classifier.ErrUnparseable)
)

func email(id, subject string) model.Email {
	return model.Email{
		ID:          id,
		ThreadID:    "t-" + id,
		Sender:      "Jane Doe <jane@example.com>",
		SenderEmail: "jane@example.com",
		Subject:     subject,
		Body:        "body of " + id,
	}
}
