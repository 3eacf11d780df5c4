package model

import "time"

// Email is a normalized inbox message. It is never modified after the
// fetcher returns it.
type Email struct {
	ID          string    `json:"id"`
	ThreadID    string    `json:"thread_id"`
	Sender      string    `json:"sender"`
	SenderEmail string    `json:"sender_email"`
	Subject     string    `json:"subject"`
	Date        string    `json:"date"`
	ReceivedAt  time.Time `json:"received_at,omitempty"`
	Body        string    `json:"body"`
	Snippet     string    `json:"snippet,omitempty"`
}

// TimeRange is a half-open busy interval [Start, End).
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
