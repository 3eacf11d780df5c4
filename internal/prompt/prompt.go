// Package prompt renders the language-model prompts used for
// classification and reply drafting from Liquid templates.
package prompt

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/osteele/liquid"

	"github.com/teemow/inboxtriage/internal/model"
)

// MaxBodyChars caps how much of an email body is sent for classification.
const MaxBodyChars = 3000

// Template names.
const (
	ClassifySystem = "classify_system"
	ClassifyUser   = "classify_user"
	DraftSystem    = "draft_system"
	DraftUser      = "draft_user"
	Analysis       = "analysis"
)

var sources = map[string]string{
	ClassifySystem: classifySystemTemplate,
	ClassifyUser:   classifyUserTemplate,
	DraftSystem:    draftSystemTemplate,
	DraftUser:      draftUserTemplate,
	Analysis:       analysisTemplate,
}

var tones = map[string]string{
	"professional": "professional, clear, and concise",
	"casual":       "friendly, warm, and conversational",
	"formal":       "formal, polished, and respectful",
}

// Calendar notes appended to the draft prompt.
const (
	MeetingNote  = "Note: A calendar invite has been created for this meeting."
	ReminderNote = "Note: A reminder has been set in the calendar."
)

// Renderer renders the named templates. Parsed templates are cached.
type Renderer struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

// NewRenderer creates a Renderer with the prompt filters registered.
func NewRenderer() *Renderer {
	engine := liquid.NewEngine()
	engine.RegisterFilter("yesno", func(v bool) string {
		if v {
			return "YES"
		}
		return "NO"
	})
	return &Renderer{engine: engine}
}

// Render renders the template registered under name.
func (r *Renderer) Render(name string, bindings map[string]interface{}) (string, error) {
	tpl, err := r.template(name)
	if err != nil {
		return "", err
	}
	out, renderErr := tpl.RenderString(bindings)
	if renderErr != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", name, renderErr)
	}
	return strings.TrimSpace(out), nil
}

func (r *Renderer) template(name string) (*liquid.Template, error) {
	if cached, ok := r.cache.Load(name); ok {
		return cached.(*liquid.Template), nil
	}
	src, ok := sources[name]
	if !ok {
		return nil, fmt.Errorf("unknown prompt template %q", name)
	}
	tpl, err := r.engine.ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s prompt: %w", name, err)
	}
	r.cache.Store(name, tpl)
	return tpl, nil
}

// ClassifyPrompts returns the system and user prompts for classifying email.
func (r *Renderer) ClassifyPrompts(email model.Email, today time.Time, defaultDuration int) (string, string, error) {
	system, err := r.Render(ClassifySystem, nil)
	if err != nil {
		return "", "", err
	}
	user, err := r.Render(ClassifyUser, map[string]interface{}{
		"today":            today.Format("2006-01-02"),
		"sender":           email.Sender,
		"subject":          email.Subject,
		"received":         email.Date,
		"body":             Truncate(email.Body, MaxBodyChars),
		"default_duration": defaultDuration,
	})
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}

// DraftInput is what the draft prompts are rendered from.
type DraftInput struct {
	Name           string
	Tone           string
	Email          model.Email
	Classification model.Classification
	Outcome        model.CalendarOutcome
}

// DraftPrompts returns the system and user prompts for drafting a reply.
func (r *Renderer) DraftPrompts(in DraftInput) (string, string, error) {
	system, err := r.Render(DraftSystem, map[string]interface{}{
		"name": in.Name,
		"tone": ToneDescription(in.Tone),
	})
	if err != nil {
		return "", "", err
	}
	analysis, err := r.AnalysisText(in.Classification)
	if err != nil {
		return "", "", err
	}
	user, err := r.Render(DraftUser, map[string]interface{}{
		"sender":        in.Email.Sender,
		"subject":       in.Email.Subject,
		"analysis":      analysis,
		"calendar_note": CalendarNote(in.Classification.CalendarAction, in.Outcome.Created()),
		"name":          in.Name,
	})
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}

// AnalysisText renders a classification as the labelled block quoted back
// to the model when drafting.
func (r *Renderer) AnalysisText(c model.Classification) (string, error) {
	keyPoints := c.KeyPoints
	if keyPoints == nil {
		keyPoints = []string{}
	}
	return r.Render(Analysis, map[string]interface{}{
		"summary":         c.Summary,
		"sender_intent":   c.SenderIntent,
		"key_points":      keyPoints,
		"action_required": c.ActionRequired,
		"urgency":         string(c.Urgency),
		"reply_needed":    c.ReplyNeeded,
		"reply_reason":    c.ReplyReason,
		"calendar_action": string(c.CalendarAction),
	})
}

// ToneDescription maps a configured tone to the phrase used in the prompt.
// Unknown tones read as professional.
func ToneDescription(tone string) string {
	if d, ok := tones[strings.ToLower(tone)]; ok {
		return d
	}
	return tones["professional"]
}

// CalendarNote returns the note telling the model a calendar entry exists,
// or "" when nothing was created.
func CalendarNote(action model.CalendarAction, created bool) string {
	if !created {
		return ""
	}
	switch action {
	case model.CalendarMeeting:
		return MeetingNote
	case model.CalendarReminder:
		return ReminderNote
	default:
		return ""
	}
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
