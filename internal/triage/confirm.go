package triage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/teemow/inboxtriage/internal/calendar"
	"github.com/teemow/inboxtriage/internal/instrumentation"
	"github.com/teemow/inboxtriage/internal/model"
)

// ValidationError rejects user input before any external call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ConfirmRequest is a user-confirmed calendar entry.
type ConfirmRequest struct {
	Action          string `json:"action"`
	Title           string `json:"title"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
	Description     string `json:"description"`
	AttendeeEmail   string `json:"attendee_email"`
	EmailID         string `json:"email_id"`
}

// ConfirmResult describes the created entry.
type ConfirmResult struct {
	EventID   string    `json:"event_id"`
	EventLink string    `json:"event_link"`
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
}

// Validate checks the request and returns the parsed action and start.
// Every failure is a *ValidationError.
func (req ConfirmRequest) Validate(loc *time.Location) (model.CalendarAction, time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if isPlaceholder(req.Date) {
		return "", time.Time{}, &ValidationError{Field: "date", Message: "Please enter a valid date (YYYY-MM-DD) before confirming."}
	}
	if isPlaceholder(req.Time) {
		return "", time.Time{}, &ValidationError{Field: "time", Message: "Please enter a valid time (HH:MM) before confirming."}
	}
	if _, err := time.Parse(dateLayout, strings.TrimSpace(req.Date)); err != nil {
		return "", time.Time{}, &ValidationError{Field: "date", Message: fmt.Sprintf("Invalid date format '%s'. Please use YYYY-MM-DD (e.g. 2026-03-15).", req.Date)}
	}
	if _, err := time.Parse(timeLayout, strings.TrimSpace(req.Time)); err != nil {
		return "", time.Time{}, &ValidationError{Field: "time", Message: fmt.Sprintf("Invalid time format '%s'. Please use HH:MM (e.g. 14:30).", req.Time)}
	}

	action := model.ParseCalendarAction(req.Action)
	if action == model.CalendarNone {
		return "", time.Time{}, &ValidationError{Field: "action", Message: "Invalid action type"}
	}
	if req.DurationMinutes < 0 {
		return "", time.Time{}, &ValidationError{Field: "duration_minutes", Message: "Duration must not be negative."}
	}

	start, _ := parseDateTime(req.Date, req.Time, loc)
	return action, start, nil
}

// ConfirmCalendar creates the entry a user confirmed. Input is validated
// before the gateway is called.
func (c *Controller) ConfirmCalendar(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
	action, start, err := req.Validate(c.opts.Location)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Untitled"
	}
	tz := c.opts.Location.String()

	var event *calendar.EventSummary
	err = c.observeGoogle(ctx, instrumentation.ServiceCalendar, instrumentation.OperationCreate, func(ctx context.Context) error {
		var err error
		switch action {
		case model.CalendarMeeting:
			var attendees []string
			if req.AttendeeEmail != "" {
				attendees = []string{req.AttendeeEmail}
			}
			event, err = c.deps.Calendar.CreateEvent(ctx, calendar.EventInput{
				Summary:     title,
				Description: req.Description,
				Start:       start,
				End:         start.Add(Duration(req.DurationMinutes, c.opts.DefaultDuration)),
				TimeZone:    tz,
				Attendees:   attendees,
			})
		case model.CalendarReminder:
			event, err = c.deps.Calendar.CreateReminder(ctx, title, start, req.Description, tz)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("failed to create calendar event: no event returned")
	}

	c.deps.Metrics.RecordEventCreated(ctx, strings.ToLower(string(action)))
	c.deps.Audit.LogSideEffect(ctx, instrumentation.SideEffect{
		Kind:         instrumentation.SideEffectEventCreated,
		EmailID:      req.EmailID,
		ResourceID:   event.ID,
		Counterparty: req.AttendeeEmail,
	})

	return &ConfirmResult{
		EventID:   event.ID,
		EventLink: event.HTMLLink,
		Title:     title,
		Start:     start,
	}, nil
}
