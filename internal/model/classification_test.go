package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCalendarAction(t *testing.T) {
	tests := []struct {
		in   string
		want CalendarAction
	}{
		{"meeting", CalendarMeeting},
		{" Reminder ", CalendarReminder},
		{"NONE", CalendarNone},
		{"call", CalendarNone},
		{"", CalendarNone},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCalendarAction(tt.in))
		})
	}
}

func TestParseUrgency(t *testing.T) {
	assert.Equal(t, UrgencyHigh, ParseUrgency("high"))
	assert.Equal(t, UrgencyMedium, ParseUrgency("Medium"))
	assert.Equal(t, UrgencyLow, ParseUrgency("urgent!!"))
}

func TestFallbackClassification(t *testing.T) {
	c := FallbackClassification()
	assert.Empty(t, c.Summary)
	assert.False(t, c.ReplyNeeded)
	assert.Equal(t, CalendarNone, c.CalendarAction)
	assert.Equal(t, "Parse error", c.ReplyReason)
	assert.Equal(t, "Meeting", CalendarMeeting.Label())
}
