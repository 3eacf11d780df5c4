package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxtriage/internal/model"
)

func TestClassifyPrompts(t *testing.T) {
	r := NewRenderer()
	email := model.Email{
		Sender:  "Jane Doe <jane@example.com>",
		Subject: "Sync on Friday?",
		Date:    "Mon, 19 Oct 2026 09:00:00 +0000",
		Body:    strings.Repeat("a", MaxBodyChars+500),
	}

	system, user, err := r.ClassifyPrompts(email, time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC), 45)
	require.NoError(t, err)

	assert.Contains(t, system, "valid JSON only")
	assert.Contains(t, user, "TODAY'S DATE: 2026-10-19")
	assert.Contains(t, user, "FROM: Jane Doe <jane@example.com>")
	assert.Contains(t, user, "SUBJECT: Sync on Friday?")
	assert.Contains(t, user, `"duration_minutes": 45`)
	assert.Contains(t, user, strings.Repeat("a", MaxBodyChars))
	assert.NotContains(t, user, strings.Repeat("a", MaxBodyChars+1))
}

func TestDraftPrompts(t *testing.T) {
	r := NewRenderer()
	base := DraftInput{
		Name:  "Alex",
		Tone:  "casual",
		Email: model.Email{Sender: "jane@example.com", Subject: "Lunch"},
		Classification: model.Classification{
			Summary:        "Jane proposes lunch.",
			KeyPoints:      []string{"Thursday", "noon"},
			ActionRequired: true,
			Urgency:        model.UrgencyMedium,
			ReplyNeeded:    true,
			CalendarAction: model.CalendarMeeting,
		},
	}

	t.Run("without event", func(t *testing.T) {
		system, user, err := r.DraftPrompts(base)
		require.NoError(t, err)
		assert.Contains(t, system, "on behalf of Alex")
		assert.Contains(t, system, "Tone: friendly, warm, and conversational.")
		assert.Contains(t, user, "KEY_POINTS: Thursday, noon")
		assert.Contains(t, user, "ACTION_REQUIRED: YES")
		assert.Contains(t, user, "REPLY_NEEDED: YES")
		assert.Contains(t, user, "Sign off as: Alex")
		assert.NotContains(t, user, "Note:")
	})

	t.Run("with event", func(t *testing.T) {
		in := base
		in.Outcome = model.CalendarOutcome{EventID: "evt1"}
		_, user, err := r.DraftPrompts(in)
		require.NoError(t, err)
		assert.Contains(t, user, MeetingNote)
	})
}

func TestAnalysisText_EmptyClassification(t *testing.T) {
	out, err := NewRenderer().AnalysisText(model.FallbackClassification())
	require.NoError(t, err)
	assert.Contains(t, out, "REPLY_NEEDED: NO")
	assert.Contains(t, out, "CALENDAR_ACTION: NONE")
	assert.Contains(t, out, "REPLY_REASON: Parse error")
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, err := NewRenderer().Render("nope", nil)
	assert.Error(t, err)
}

func TestRender_Cached(t *testing.T) {
	r := NewRenderer()
	_, err := r.Render(DraftSystem, map[string]interface{}{"name": "A", "tone": "x"})
	require.NoError(t, err)
	_, ok := r.cache.Load(DraftSystem)
	assert.True(t, ok)
}

func TestToneDescription(t *testing.T) {
	tests := []struct {
		tone string
		want string
	}{
		{"professional", "professional, clear, and concise"},
		{"casual", "friendly, warm, and conversational"},
		{"FORMAL", "formal, polished, and respectful"},
		{"pirate", "professional, clear, and concise"},
	}
	for _, tt := range tests {
		t.Run(tt.tone, func(t *testing.T) {
			assert.Equal(t, tt.want, ToneDescription(tt.tone))
		})
	}
}

func TestCalendarNote(t *testing.T) {
	assert.Equal(t, MeetingNote, CalendarNote(model.CalendarMeeting, true))
	assert.Equal(t, ReminderNote, CalendarNote(model.CalendarReminder, true))
	assert.Empty(t, CalendarNote(model.CalendarMeeting, false))
	assert.Empty(t, CalendarNote(model.CalendarNone, true))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héllo", Truncate("héllo", 10))
	assert.Equal(t, "hé", Truncate("héllo", 2))
}
