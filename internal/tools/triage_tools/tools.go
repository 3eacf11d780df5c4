package triage_tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxtriage/internal/config"
	"github.com/teemow/inboxtriage/internal/instrumentation"
	"github.com/teemow/inboxtriage/internal/server"
	"github.com/teemow/inboxtriage/internal/store"
	"github.com/teemow/inboxtriage/internal/tools/batch"
	"github.com/teemow/inboxtriage/internal/tools/common"
	"github.com/teemow/inboxtriage/internal/triage"
)

const (
	defaultUpcomingDays   = 7
	defaultUpcomingEvents = 5
)

// Backend is the runtime the tools call into. *server.ServerContext
// satisfies it.
type Backend interface {
	server.Service
	common.Observer
}

const accountDescription = "Account name (default: 'default'). Used to manage multiple Google accounts."

// RegisterTriageTools registers all triage tools with the MCP server
func RegisterTriageTools(s *mcpserver.MCPServer, b Backend, readOnly bool) error {
	if s == nil {
		return errors.New("mcp server is required")
	}
	if b == nil {
		return errors.New("backend is required")
	}

	runTool := mcp.NewTool("triage_run",
		mcp.WithDescription("Fetch emails, classify them, create calendar entries, save reply drafts and return the run digest. Drafts are never sent."),
		mcp.WithString("account", mcp.Description(accountDescription)),
		mcp.WithNumber("max_emails", mcp.Description("Maximum number of emails to process (default from configuration)")),
		mcp.WithString("email_type",
			mcp.Description("Which emails to fetch: 'unread' or 'latest'"),
			mcp.Enum(config.EmailTypeUnread, config.EmailTypeLatest),
		),
		mcp.WithString("tone",
			mcp.Description("Tone for reply drafts"),
			mcp.Enum(config.ToneProfessional, config.ToneCasual, config.ToneFormal),
		),
		mcp.WithString("name", mcp.Description("Name used to sign reply drafts")),
		mcp.WithBoolean("dry_run", mcp.Description("Classify only; do not touch the calendar or save drafts")),
	)
	s.AddTool(runTool, common.InstrumentedToolHandler("triage_run", b,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleRun(ctx, request, b, readOnly)
		}))

	if !readOnly {
		confirmTool := mcp.NewTool("triage_confirm_calendar",
			mcp.WithDescription("Create a calendar entry the user confirmed. The date and time are validated before anything is created."),
			mcp.WithString("account", mcp.Description(accountDescription)),
			mcp.WithString("action",
				mcp.Required(),
				mcp.Description("Entry type: 'MEETING' or 'REMINDER'"),
			),
			mcp.WithString("title", mcp.Description("Event title")),
			mcp.WithString("date", mcp.Required(), mcp.Description("Date (YYYY-MM-DD)")),
			mcp.WithString("time", mcp.Required(), mcp.Description("Time (HH:MM, 24-hour)")),
			mcp.WithNumber("duration_minutes", mcp.Description("Meeting duration in minutes")),
			mcp.WithString("description", mcp.Description("Event description")),
			mcp.WithString("attendee_email", mcp.Description("Attendee to invite to a meeting")),
			mcp.WithString("email_id", mcp.Description("ID of the email the entry came from")),
		)
		s.AddTool(confirmTool, common.InstrumentedToolHandlerWithService("triage_confirm_calendar", "calendar", "create", b,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleConfirmCalendar(ctx, request, b)
			}))

		skipTool := mcp.NewTool("triage_skip_calendar",
			mcp.WithDescription("Decline a suggested calendar entry. Nothing is created."),
			mcp.WithString("email_id", mcp.Description("ID of the email the entry came from")),
		)
		s.AddTool(skipTool, common.InstrumentedToolHandler("triage_skip_calendar", b, handleSkipCalendar))
	}

	upcomingTool := mcp.NewTool("triage_upcoming_events",
		mcp.WithDescription("List upcoming events from the primary calendar"),
		mcp.WithString("account", mcp.Description(accountDescription)),
		mcp.WithNumber("days", mcp.Description("How many days ahead to look (default: 7)")),
		mcp.WithNumber("max_results", mcp.Description("Maximum number of events (default: 5)")),
	)
	s.AddTool(upcomingTool, common.InstrumentedToolHandlerWithService("triage_upcoming_events", "calendar", "list", b,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleUpcomingEvents(ctx, request, b)
		}))

	listRunsTool := mcp.NewTool("triage_list_runs",
		mcp.WithDescription("List recent triage runs, newest first"),
		mcp.WithNumber("limit", mcp.Description("Maximum number of runs (default: 20)")),
	)
	s.AddTool(listRunsTool, common.InstrumentedToolHandler("triage_list_runs", b,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListRuns(ctx, request, b)
		}))

	getRunTool := mcp.NewTool("triage_get_run",
		mcp.WithDescription("Get the digest of one or more past runs"),
		mcp.WithString("run_id",
			mcp.Required(),
			mcp.Description("Run ID, or a JSON array of run IDs"),
		),
	)
	s.AddTool(getRunTool, common.InstrumentedToolHandler("triage_get_run", b,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetRun(ctx, request, b)
		}))

	return nil
}

func handleRun(ctx context.Context, request mcp.CallToolRequest, b Backend, readOnly bool) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	p := server.Profile{
		Account:   common.StringArg(args, "account", ""),
		Name:      common.StringArg(args, "name", ""),
		Tone:      common.StringArg(args, "tone", ""),
		EmailType: common.StringArg(args, "email_type", ""),
		MaxEmails: common.IntArg(args, "max_emails", 0),
		DryRun:    common.BoolArg(args, "dry_run", false) || readOnly,
		Trigger:   instrumentation.TriggerMCP,
	}
	if p.MaxEmails < 0 {
		return mcp.NewToolResultError("max_emails must not be negative"), nil
	}
	switch p.EmailType {
	case "", config.EmailTypeUnread, config.EmailTypeLatest:
	default:
		return mcp.NewToolResultError(fmt.Sprintf("Invalid email_type %q: use unread or latest", p.EmailType)), nil
	}
	switch p.Tone {
	case "", config.ToneProfessional, config.ToneCasual, config.ToneFormal:
	default:
		return mcp.NewToolResultError(fmt.Sprintf("Invalid tone %q: use professional, casual or formal", p.Tone)), nil
	}

	digest, err := b.Run(ctx, p)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Triage run failed: %v", err)), nil
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "Run ID: %s\n", digest.RunID)
	if p.DryRun {
		out.WriteString("Dry run: no calendar entries or drafts were created.\n")
	}
	out.WriteString("\n")
	if err := triage.RenderText(&out, digest); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to render digest: %v", err)), nil
	}
	return mcp.NewToolResultText(out.String()), nil
}

func handleConfirmCalendar(ctx context.Context, request mcp.CallToolRequest, b Backend) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(args)

	req := triage.ConfirmRequest{
		Action:          common.StringArg(args, "action", ""),
		Title:           common.StringArg(args, "title", ""),
		Date:            common.StringArg(args, "date", ""),
		Time:            common.StringArg(args, "time", ""),
		DurationMinutes: common.IntArg(args, "duration_minutes", 0),
		Description:     common.StringArg(args, "description", ""),
		AttendeeEmail:   common.StringArg(args, "attendee_email", ""),
		EmailID:         common.StringArg(args, "email_id", ""),
	}

	res, err := b.ConfirmCalendar(ctx, account, req)
	if err != nil {
		var verr *triage.ValidationError
		if errors.As(err, &verr) {
			return mcp.NewToolResultError(verr.Message), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create calendar event: %v", err)), nil
	}

	result := fmt.Sprintf("Calendar event created successfully!\n\nTitle: %s\nStart: %s\nEvent ID: %s\n",
		res.Title, res.Start.Format(time.RFC3339), res.EventID)
	if res.EventLink != "" {
		result += fmt.Sprintf("Link: %s\n", res.EventLink)
	}
	return mcp.NewToolResultText(result), nil
}

func handleSkipCalendar(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("Calendar event skipped."), nil
}

func handleUpcomingEvents(ctx context.Context, request mcp.CallToolRequest, b Backend) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(args)

	days := common.IntArg(args, "days", defaultUpcomingDays)
	if days <= 0 {
		days = defaultUpcomingDays
	}
	maxResults := common.IntArg(args, "max_results", defaultUpcomingEvents)
	if maxResults <= 0 {
		maxResults = defaultUpcomingEvents
	}

	events, err := b.UpcomingEvents(ctx, account, days, int64(maxResults))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list upcoming events: %v", err)), nil
	}
	if len(events) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No events in the next %d days.", days)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d upcoming events:\n\n", len(events))
	for i, event := range events {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, event.Summary)
		fmt.Fprintf(&sb, "   ID: %s\n", event.ID)
		fmt.Fprintf(&sb, "   Start: %s\n", event.Start.Format(time.RFC3339))
		fmt.Fprintf(&sb, "   End: %s\n", event.End.Format(time.RFC3339))
		if event.HTMLLink != "" {
			fmt.Fprintf(&sb, "   Link: %s\n", event.HTMLLink)
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func handleListRuns(ctx context.Context, request mcp.CallToolRequest, b Backend) (*mcp.CallToolResult, error) {
	history := b.History()
	if history == nil {
		return mcp.NewToolResultError("Run history is disabled"), nil
	}

	limit := common.IntArg(request.GetArguments(), "limit", store.DefaultListLimit)
	runs, err := history.ListRuns(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list runs: %v", err)), nil
	}
	if len(runs) == 0 {
		return mcp.NewToolResultText("No runs recorded yet."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d runs:\n\n", len(runs))
	for _, run := range runs {
		fmt.Fprintf(&sb, "%s  %s  emails=%d drafts=%d events=%d conflicts=%d\n",
			run.StartedAt.Format(time.RFC3339), run.RunID,
			run.Total, run.DraftsSaved, run.EventsCreated, run.Conflicts)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func handleGetRun(ctx context.Context, request mcp.CallToolRequest, b Backend) (*mcp.CallToolResult, error) {
	history := b.History()
	if history == nil {
		return mcp.NewToolResultError("Run history is disabled"), nil
	}

	ids, err := batch.ParseIDs(request.GetArguments()["run_id"], "run_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(ids) == 1 {
		digest, err := history.GetRun(ctx, ids[0])
		if err != nil {
			if errors.Is(err, store.ErrRunNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("Run %s not found", ids[0])), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("Failed to load run: %v", err)), nil
		}
		var out bytes.Buffer
		fmt.Fprintf(&out, "Run ID: %s\nStarted: %s\n\n", digest.RunID, digest.StartedAt.Format(time.RFC3339))
		if err := triage.RenderText(&out, digest); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to render digest: %v", err)), nil
		}
		return mcp.NewToolResultText(out.String()), nil
	}

	summary := batch.Process(ctx, ids, history.GetRun)
	out, err := summary.JSON()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}
