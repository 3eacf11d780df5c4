package triage

import (
	"strings"
	"time"

	"github.com/teemow/inboxtriage/internal/model"
)

// DefaultStartHour is the local hour used when an email gives no usable
// date or time.
const DefaultStartHour = 10

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// ResolveStart combines an extracted date (YYYY-MM-DD) and time (HH:MM) in
// loc. When either is missing, unparseable or a "[...]" placeholder it
// returns tomorrow at 10:00 in loc and defaulted=true.
func ResolveStart(date, clock string, now time.Time, loc *time.Location) (start time.Time, defaulted bool) {
	if loc == nil {
		loc = time.Local
	}
	if t, ok := parseDateTime(date, clock, loc); ok {
		return t, false
	}
	return TomorrowAt(now, DefaultStartHour, loc), true
}

// TomorrowAt returns hour:00 on the day after now, in loc.
func TomorrowAt(now time.Time, hour int, loc *time.Location) time.Time {
	n := now.In(loc)
	return time.Date(n.Year(), n.Month(), n.Day()+1, hour, 0, 0, 0, loc)
}

func isPlaceholder(s string) bool {
	return strings.TrimSpace(s) == "" || strings.Contains(s, "[")
}

func parseDateTime(date, clock string, loc *time.Location) (time.Time, bool) {
	if isPlaceholder(date) || isPlaceholder(clock) {
		return time.Time{}, false
	}
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, false
	}
	c, err := time.Parse(timeLayout, strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, loc), true
}

// Duration returns minutes as a duration, or fallback minutes when
// minutes is not positive or exceeds model.MaxDurationMinutes.
func Duration(minutes, fallback int) time.Duration {
	if minutes <= 0 || minutes > model.MaxDurationMinutes {
		minutes = fallback
	}
	return time.Duration(minutes) * time.Minute
}
