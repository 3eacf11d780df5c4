package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// Reminder methods supported by the Calendar API.
const (
	ReminderEmail = "email"
	ReminderPopup = "popup"
)

// Reminder is a single reminder override on an event.
type Reminder struct {
	Method  string
	Minutes int64
}

// EventInput represents the input for creating a calendar event
type EventInput struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
	Attendees   []string

	// Reminders overrides the calendar's default reminders. Nil keeps the
	// meeting defaults (email 30 minutes and popup 10 minutes before).
	Reminders []Reminder
}

// EventSummary represents a simplified calendar event
type EventSummary struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	HTMLLink    string    `json:"html_link,omitempty"`
	Status      string    `json:"status,omitempty"`
	Attendees   []string  `json:"attendees,omitempty"`
}

// FreeBusyInfo represents availability information for a calendar
type FreeBusyInfo struct {
	Calendar string
	Busy     []TimeRange
	Errors   []string
}

// TimeRange represents a time range
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// toEventSummary converts a Google Calendar event to an EventSummary
func toEventSummary(event *calendar.Event) EventSummary {
	if event == nil {
		return EventSummary{}
	}
	summary := EventSummary{
		ID:          event.Id,
		Summary:     event.Summary,
		Description: event.Description,
		HTMLLink:    event.HtmlLink,
		Status:      event.Status,
		Start:       parseEventTime(event.Start),
		End:         parseEventTime(event.End),
	}
	for _, att := range event.Attendees {
		summary.Attendees = append(summary.Attendees, att.Email)
	}
	return summary
}

// parseEventTime handles both timed and all-day event boundaries.
func parseEventTime(dt *calendar.EventDateTime) time.Time {
	if dt == nil {
		return time.Time{}
	}
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t
		}
	}
	if dt.Date != "" {
		if t, err := time.Parse("2006-01-02", dt.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}
