package triage

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/teemow/inboxtriage/internal/model"
)

// Digest status labels.
const (
	StatusDraftSaved    = "Draft Saved"
	StatusNoReplyNeeded = "No Reply Needed"
	StatusDraftFailed   = "Draft Failed"
)

// BuildDigest aggregates results in the order given.
func BuildDigest(runID string, started, finished time.Time, results []model.ProcessedResult) *model.Digest {
	d := &model.Digest{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: finished,
		Total:      len(results),
		Results:    results,
	}
	if d.Results == nil {
		d.Results = []model.ProcessedResult{}
	}
	for _, r := range results {
		if r.DraftID != "" {
			d.DraftsSaved++
		}
		if r.CalendarEventID != "" {
			d.EventsCreated++
			if r.ConflictDetected {
				d.Conflicts++
			}
		}
	}
	return d
}

// EmailStatus is the reply half of a result's status line.
func EmailStatus(r model.ProcessedResult) string {
	switch {
	case r.DraftID != "":
		return StatusDraftSaved
	case !r.ReplyNeeded:
		return StatusNoReplyNeeded
	default:
		return StatusDraftFailed
	}
}

// CalendarStatus is the calendar suffix of a result's status line, e.g.
// " | Meeting Created CONFLICT". It is empty when no entry was created.
func CalendarStatus(r model.ProcessedResult) string {
	if r.CalendarEventID == "" {
		return ""
	}
	s := " | " + r.CalendarAction.Label() + " Created"
	if r.ConflictDetected {
		s += " CONFLICT"
	}
	return s
}

// StatusLine is the full status of one result.
func StatusLine(r model.ProcessedResult) string {
	return EmailStatus(r) + CalendarStatus(r)
}

// RenderText writes the plain-text digest.
func RenderText(w io.Writer, d *model.Digest) error {
	var b strings.Builder
	b.WriteString("FINAL DIGEST\n")
	if d == nil || d.Total == 0 {
		b.WriteString("No emails were processed.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "  Emails Processed : %d\n", d.Total)
	fmt.Fprintf(&b, "  Drafts Saved     : %d\n", d.DraftsSaved)
	fmt.Fprintf(&b, "  Calendar Events  : %d\n", d.EventsCreated)
	fmt.Fprintf(&b, "  Conflicts Found  : %d\n", d.Conflicts)
	b.WriteString("\nBREAKDOWN:\n")
	for _, r := range d.Results {
		fmt.Fprintf(&b, "\n  [%d] %s\n", r.Index, StatusLine(r))
		fmt.Fprintf(&b, "      From    : %s\n", r.Sender)
		fmt.Fprintf(&b, "      Subject : %s\n", r.Subject)
		if r.ReplyReason != "" {
			fmt.Fprintf(&b, "      Reason  : %s\n", r.ReplyReason)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
