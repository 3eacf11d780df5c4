package model

import "strings"

// Urgency is the classifier's estimate of how pressing an email is.
type Urgency string

const (
	UrgencyLow    Urgency = "LOW"
	UrgencyMedium Urgency = "MEDIUM"
	UrgencyHigh   Urgency = "HIGH"
)

// ParseUrgency maps free-form model output onto an Urgency. Unknown
// values become UrgencyLow.
func ParseUrgency(s string) Urgency {
	switch Urgency(strings.ToUpper(strings.TrimSpace(s))) {
	case UrgencyHigh:
		return UrgencyHigh
	case UrgencyMedium:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// CalendarAction says whether an email implies a calendar entry.
type CalendarAction string

const (
	CalendarNone     CalendarAction = "NONE"
	CalendarMeeting  CalendarAction = "MEETING"
	CalendarReminder CalendarAction = "REMINDER"
)

// ParseCalendarAction maps free-form model output onto a CalendarAction.
// Anything other than meeting or reminder is CalendarNone.
func ParseCalendarAction(s string) CalendarAction {
	switch CalendarAction(strings.ToUpper(strings.TrimSpace(s))) {
	case CalendarMeeting:
		return CalendarMeeting
	case CalendarReminder:
		return CalendarReminder
	default:
		return CalendarNone
	}
}

// Label is the capitalized form used in digests, e.g. "Meeting".
func (a CalendarAction) Label() string {
	switch a {
	case CalendarMeeting:
		return "Meeting"
	case CalendarReminder:
		return "Reminder"
	default:
		return "None"
	}
}

// MaxDurationMinutes is the longest meeting accepted from a
// classification. Longer durations fall back to the configured default.
const MaxDurationMinutes = 24 * 60

// CalendarDetails are the event fields extracted from an email. Date is
// YYYY-MM-DD and Time is HH:MM; either may be empty or a placeholder.
type CalendarDetails struct {
	Title           string `json:"title"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
	Description     string `json:"description"`
	AttendeeEmail   string `json:"attendee_email"`
}

// Classification is the structured judgment produced for one email.
type Classification struct {
	Summary         string          `json:"summary"`
	SenderIntent    string          `json:"sender_intent"`
	KeyPoints       []string        `json:"key_points"`
	ActionRequired  bool            `json:"action_required"`
	Urgency         Urgency         `json:"urgency"`
	ReplyNeeded     bool            `json:"reply_needed"`
	ReplyReason     string          `json:"reply_reason"`
	CalendarAction  CalendarAction  `json:"calendar_action"`
	CalendarDetails CalendarDetails `json:"calendar_details"`
}

// FallbackReplyReason marks a classification that could not be parsed.
const FallbackReplyReason = "Parse error"

// FallbackClassification is the safe judgment used when the model output
// is unusable: no summary, no reply, no calendar action.
func FallbackClassification() Classification {
	return Classification{
		KeyPoints:      []string{},
		Urgency:        UrgencyLow,
		ReplyReason:    FallbackReplyReason,
		CalendarAction: CalendarNone,
	}
}
