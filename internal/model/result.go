package model

import "time"

// CalendarOutcome describes what the calendar step did for one email.
type CalendarOutcome struct {
	EventID          string      `json:"event_id,omitempty"`
	EventLink        string      `json:"event_link,omitempty"`
	Start            time.Time   `json:"start,omitempty"`
	End              time.Time   `json:"end,omitempty"`
	Defaulted        bool        `json:"defaulted"`
	ConflictDetected bool        `json:"conflict_detected"`
	Conflicts        []TimeRange `json:"conflicts,omitempty"`
}

// Created reports whether an event or reminder was created.
func (o CalendarOutcome) Created() bool {
	return o.EventID != ""
}

// ProcessedResult is the record kept for one email of a run.
type ProcessedResult struct {
	Index            int             `json:"index"`
	EmailID          string          `json:"email_id"`
	ThreadID         string          `json:"thread_id"`
	Sender           string          `json:"sender"`
	SenderEmail      string          `json:"sender_email"`
	Subject          string          `json:"subject"`
	Summary          string          `json:"summary"`
	KeyPoints        []string        `json:"key_points"`
	Urgency          Urgency         `json:"urgency"`
	ReplyNeeded      bool            `json:"reply_needed"`
	ReplyReason      string          `json:"reply_reason"`
	DraftID          string          `json:"draft_id"`
	CalendarAction   CalendarAction  `json:"calendar_action"`
	CalendarDetails  CalendarDetails `json:"calendar_details"`
	CalendarEventID  string          `json:"calendar_event_id"`
	ConflictDetected bool            `json:"conflict_detected"`
	Errors           []string        `json:"errors,omitempty"`
}

// Digest is the summary of one triage run.
type Digest struct {
	RunID         string            `json:"run_id"`
	StartedAt     time.Time         `json:"started_at"`
	FinishedAt    time.Time         `json:"finished_at"`
	Total         int               `json:"total"`
	DraftsSaved   int               `json:"drafts_saved"`
	EventsCreated int               `json:"events_created"`
	Conflicts     int               `json:"conflicts"`
	Results       []ProcessedResult `json:"results"`
}

// RunSummary is a digest without its per-email results, as listed from
// history.
type RunSummary struct {
	RunID         string    `json:"run_id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Total         int       `json:"total"`
	DraftsSaved   int       `json:"drafts_saved"`
	EventsCreated int       `json:"events_created"`
	Conflicts     int       `json:"conflicts"`
}
