package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/teemow/inboxtriage/internal/calendar"
	"github.com/teemow/inboxtriage/internal/model"
	"github.com/teemow/inboxtriage/internal/triage"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	colorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	colorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	colorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	colorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	colorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	colorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	colorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite).
			Background(colorBlue).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder)

	labelStyle  = lipgloss.NewStyle().Foreground(colorGray)
	subtleStyle = lipgloss.NewStyle().Foreground(colorGray).Italic(true)
)

// statusStyle colors a reply status.
func statusStyle(status string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch status {
	case triage.StatusDraftSaved:
		return base.Foreground(colorGreen)
	case triage.StatusDraftFailed:
		return base.Foreground(colorRed)
	default:
		return base.Foreground(colorGray)
	}
}

func urgencyStyle(u model.Urgency) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch u {
	case model.UrgencyHigh:
		return base.Foreground(colorRed)
	case model.UrgencyMedium:
		return base.Foreground(colorYellow)
	default:
		return base.Foreground(colorGreen)
	}
}

func field(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-8s", label)) + " " + value
}

// renderSchedule prints the upcoming calendar events.
func renderSchedule(w io.Writer, events []calendar.EventSummary, days int, loc *time.Location) {
	fmt.Fprintln(w, headerStyle.Render("UPCOMING SCHEDULE"))
	if len(events) == 0 {
		fmt.Fprintln(w, subtleStyle.Render(fmt.Sprintf("  No events in the next %d days.", days)))
		fmt.Fprintln(w)
		return
	}
	for _, e := range events {
		start := e.Start.In(loc).Format("Mon Jan 2 15:04")
		fmt.Fprintf(w, "  %s  %s\n", labelStyle.Render(start), e.Summary)
	}
	fmt.Fprintln(w)
}

// renderDigest prints the styled digest with one panel per email.
func renderDigest(w io.Writer, d *model.Digest) {
	fmt.Fprintln(w, headerStyle.Render("FINAL DIGEST"))
	if d == nil || d.Total == 0 {
		fmt.Fprintln(w, subtleStyle.Render("  No emails were processed."))
		return
	}

	counts := strings.Join([]string{
		field("Emails", fmt.Sprint(d.Total)),
		field("Drafts", fmt.Sprint(d.DraftsSaved)),
		field("Events", fmt.Sprint(d.EventsCreated)),
		field("Conflict", fmt.Sprint(d.Conflicts)),
	}, "\n")
	fmt.Fprintln(w, panelStyle.Render(counts))

	for _, r := range d.Results {
		fmt.Fprintln(w, renderResult(r))
	}
}

func renderResult(r model.ProcessedResult) string {
	status := triage.EmailStatus(r)
	title := fmt.Sprintf("[%d] %s", r.Index, statusStyle(status).Render(status))
	if cal := triage.CalendarStatus(r); cal != "" {
		calStyle := lipgloss.NewStyle().Foreground(colorBlue)
		if r.ConflictDetected {
			calStyle = calStyle.Foreground(colorYellow)
		}
		title += calStyle.Render(cal)
	}

	lines := []string{
		title,
		field("From", r.Sender),
		field("Subject", r.Subject),
	}
	if r.Summary != "" {
		lines = append(lines, field("Summary", r.Summary))
	}
	if r.Urgency != "" {
		lines = append(lines, field("Urgency", urgencyStyle(r.Urgency).Render(string(r.Urgency))))
	}
	for _, kp := range r.KeyPoints {
		lines = append(lines, "  • "+kp)
	}
	if r.ReplyReason != "" {
		lines = append(lines, field("Reason", r.ReplyReason))
	}
	for _, e := range r.Errors {
		lines = append(lines, lipgloss.NewStyle().Foreground(colorRed).Render("! "+e))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

// renderRuns prints a run history table, newest first.
func renderRuns(w io.Writer, runs []model.RunSummary, loc *time.Location) {
	fmt.Fprintln(w, headerStyle.Render("RUN HISTORY"))
	if len(runs) == 0 {
		fmt.Fprintln(w, subtleStyle.Render("  No runs recorded yet."))
		return
	}
	for _, r := range runs {
		fmt.Fprintf(w, "  %s  %s  emails=%d drafts=%d events=%d conflicts=%d\n",
			labelStyle.Render(r.StartedAt.In(loc).Format("2006-01-02 15:04")),
			r.RunID, r.Total, r.DraftsSaved, r.EventsCreated, r.Conflicts)
	}
}
