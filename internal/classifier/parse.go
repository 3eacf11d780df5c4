package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/teemow/inboxtriage/internal/model"
)

// ErrUnparseable is returned when the model reply is not a usable JSON object.
var ErrUnparseable = errors.New("unparseable classification")

// flexInt accepts a JSON number or a numeric string of at most
// model.MaxDurationMinutes. Anything else reads as zero so the duration
// falls back to the configured default.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !(v >= 0 && v <= model.MaxDurationMinutes) {
		*f = 0
		return nil
	}
	*f = flexInt(v)
	return nil
}

type rawDetails struct {
	Title           string  `json:"title"`
	Date            string  `json:"date"`
	Time            string  `json:"time"`
	DurationMinutes flexInt `json:"duration_minutes"`
	Description     string  `json:"description"`
	AttendeeEmail   string  `json:"attendee_email"`
}

type rawClassification struct {
	Summary         string      `json:"summary"`
	SenderIntent    string      `json:"sender_intent"`
	KeyPoints       []string    `json:"key_points"`
	ActionRequired  bool        `json:"action_required"`
	Urgency         string      `json:"urgency"`
	ReplyNeeded     bool        `json:"reply_needed"`
	ReplyReason     string      `json:"reply_reason"`
	CalendarAction  string      `json:"calendar_action"`
	CalendarDetails *rawDetails `json:"calendar_details"`
}

// StripFences removes a surrounding Markdown code fence, with or without a
// "json" language tag.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(s), "json") {
		s = s[len("json"):]
	}
	return strings.TrimSpace(s)
}

// Parse turns a model reply into a Classification. On failure it returns
// the fallback classification and an error wrapping ErrUnparseable.
func Parse(reply string) (model.Classification, error) {
	text := StripFences(reply)
	if !strings.HasPrefix(text, "{") {
		start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return model.FallbackClassification(), fmt.Errorf("%w: no JSON object in reply", ErrUnparseable)
		}
		text = text[start : end+1]
	}

	var raw rawClassification
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return model.FallbackClassification(), fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	c := model.Classification{
		Summary:        strings.TrimSpace(raw.Summary),
		SenderIntent:   strings.TrimSpace(raw.SenderIntent),
		KeyPoints:      raw.KeyPoints,
		ActionRequired: raw.ActionRequired,
		Urgency:        model.ParseUrgency(raw.Urgency),
		ReplyNeeded:    raw.ReplyNeeded,
		ReplyReason:    strings.TrimSpace(raw.ReplyReason),
		CalendarAction: model.ParseCalendarAction(raw.CalendarAction),
	}
	if c.KeyPoints == nil {
		c.KeyPoints = []string{}
	}
	if d := raw.CalendarDetails; d != nil {
		c.CalendarDetails = model.CalendarDetails{
			Title:           strings.TrimSpace(d.Title),
			Date:            strings.TrimSpace(d.Date),
			Time:            strings.TrimSpace(d.Time),
			DurationMinutes: int(d.DurationMinutes),
			Description:     strings.TrimSpace(d.Description),
			AttendeeEmail:   strings.TrimSpace(d.AttendeeEmail),
		}
	}
	return c, nil
}
