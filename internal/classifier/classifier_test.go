package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxtriage/internal/llm"
	"github.com/teemow/inboxtriage/internal/model"
)

const validReply = `{
  "summary": "Jane wants to meet on Friday.",
  "sender_intent": "Schedule a sync",
  "key_points": ["Friday", "30 minutes"],
  "action_required": true,
  "urgency": "high",
  "reply_needed": true,
  "reply_reason": "Needs confirmation",
  "calendar_action": "meeting",
  "calendar_details": {
    "title": "Sync with Jane",
    "date": "2026-10-23",
    "time": "14:30",
    "duration_minutes": "30",
    "description": "Weekly sync",
    "attendee_email": "jane@example.com"
  }
}`

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		wantErr    bool
		wantAction model.CalendarAction
		wantDur    int
	}{
		{name: "plain json", reply: validReply, wantAction: model.CalendarMeeting, wantDur: 30},
		{name: "json fence", reply: "```json\n" + validReply + "\n```", wantAction: model.CalendarMeeting, wantDur: 30},
		{name: "bare fence", reply: "```\n" + validReply + "\n```", wantAction: model.CalendarMeeting, wantDur: 30},
		{name: "prose around object", reply: "Here you go:\n" + validReply + "\nThanks", wantAction: model.CalendarMeeting, wantDur: 30},
		{name: "unknown action", reply: `{"calendar_action":"party","calendar_details":{"duration_minutes":"soon"}}`, wantAction: model.CalendarNone},
		{name: "day-long meeting", reply: `{"calendar_action":"meeting","calendar_details":{"duration_minutes":1440}}`, wantAction: model.CalendarMeeting, wantDur: 1440},
		{name: "huge duration", reply: `{"calendar_action":"meeting","calendar_details":{"duration_minutes":1e300}}`, wantAction: model.CalendarMeeting},
		{name: "duration over a day", reply: `{"calendar_action":"meeting","calendar_details":{"duration_minutes":"1441"}}`, wantAction: model.CalendarMeeting},
		{name: "NaN duration", reply: `{"calendar_action":"meeting","calendar_details":{"duration_minutes":"NaN"}}`, wantAction: model.CalendarMeeting},
		{name: "not json", reply: "I cannot help with that.", wantErr: true, wantAction: model.CalendarNone},
		{name: "broken json", reply: `{"summary": "x",`, wantErr: true, wantAction: model.CalendarNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.reply)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnparseable)
				assert.Equal(t, model.FallbackClassification(), got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAction, got.CalendarAction)
			assert.Equal(t, tt.wantDur, got.CalendarDetails.DurationMinutes)
			assert.NotNil(t, got.KeyPoints)
		})
	}
}

func TestParse_Fields(t *testing.T) {
	got, err := Parse(validReply)
	require.NoError(t, err)

	assert.Equal(t, "Jane wants to meet on Friday.", got.Summary)
	assert.Equal(t, model.UrgencyHigh, got.Urgency)
	assert.True(t, got.ReplyNeeded)
	assert.Equal(t, []string{"Friday", "30 minutes"}, got.KeyPoints)
	assert.Equal(t, model.CalendarDetails{
		Title:           "Sync with Jane",
		Date:            "2026-10-23",
		Time:            "14:30",
		DurationMinutes: 30,
		Description:     "Weekly sync",
		AttendeeEmail:   "jane@example.com",
	}, got.CalendarDetails)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences("  {\"a\":1}  "))
	assert.Equal(t, `{"a":1}`, StripFences("```JSON {\"a\":1}```"))
}

type scriptedProvider struct {
	replies []string
	errs    []error
	reqs    []llm.Request
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) Complete(_ context.Context, req llm.Request) (string, error) {
	i := len(s.reqs)
	s.reqs = append(s.reqs, req)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	reply := ""
	if i < len(s.replies) {
		reply = s.replies[i]
	}
	return reply, err
}

func newTestClassifier(p llm.Provider) *Classifier {
	c := New(p, Options{Name: "Alex", Tone: "formal", DefaultDuration: 60, Temperature: 0.2, MaxTokens: 512, Location: time.UTC})
	c.now = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }
	return c
}

func TestClassifier_Classify(t *testing.T) {
	p := &scriptedProvider{replies: []string{validReply}}
	got, err := newTestClassifier(p).Classify(context.Background(), model.Email{ID: "m1", Subject: "Sync", Body: "Can we meet Friday?"})
	require.NoError(t, err)

	assert.Equal(t, model.CalendarMeeting, got.CalendarAction)
	require.Len(t, p.reqs, 1)
	assert.True(t, p.reqs[0].JSON)
	assert.Equal(t, 512, p.reqs[0].MaxTokens)
	assert.Contains(t, p.reqs[0].Prompt, "TODAY'S DATE: 2026-10-19")
}

func TestClassifier_Classify_Fallbacks(t *testing.T) {
	tests := []struct {
		name       string
		provider   *scriptedProvider
		unparsable bool
	}{
		{name: "garbage reply", provider: &scriptedProvider{replies: []string{strings.Repeat("nonsense ", 100)}}, unparsable: true},
		{name: "transport error", provider: &scriptedProvider{errs: []error{errors.New("connection reset")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newTestClassifier(tt.provider).Classify(context.Background(), model.Email{ID: "m1"})
			require.Error(t, err)
			assert.Equal(t, tt.unparsable, IsUnparseable(err))
			assert.Equal(t, model.FallbackClassification(), got)
			assert.Empty(t, got.Summary)
			assert.False(t, got.ReplyNeeded)
			assert.Equal(t, model.CalendarNone, got.CalendarAction)
		})
	}
}

func TestClassifier_DraftReply(t *testing.T) {
	p := &scriptedProvider{replies: []string{"  Dear Jane,\n\nFriday works.\n\nAlex  "}}
	body, err := newTestClassifier(p).DraftReply(context.Background(),
		model.Email{Sender: "Jane <jane@example.com>", Subject: "Sync"},
		model.Classification{Summary: "Meet Friday", ReplyNeeded: true, CalendarAction: model.CalendarReminder},
		model.CalendarOutcome{EventID: "e1"})
	require.NoError(t, err)

	assert.Equal(t, "Dear Jane,\n\nFriday works.\n\nAlex", body)
	require.Len(t, p.reqs, 1)
	assert.False(t, p.reqs[0].JSON)
	assert.Contains(t, p.reqs[0].System, "formal, polished, and respectful")
	assert.Contains(t, p.reqs[0].Prompt, "A reminder has been set")
}

func TestClassifier_DraftReply_Errors(t *testing.T) {
	_, err := newTestClassifier(&scriptedProvider{replies: []string{"   "}}).DraftReply(context.Background(), model.Email{}, model.Classification{}, model.CalendarOutcome{})
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)

	_, err = newTestClassifier(&scriptedProvider{errs: []error{errors.New("503")}}).DraftReply(context.Background(), model.Email{}, model.Classification{}, model.CalendarOutcome{})
	assert.Error(t, err)
}
