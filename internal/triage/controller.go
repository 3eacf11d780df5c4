package triage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/inboxtriage/internal/calendar"
	"github.com/teemow/inboxtriage/internal/classifier"
	"github.com/teemow/inboxtriage/internal/gmail"
	"github.com/teemow/inboxtriage/internal/instrumentation"
	"github.com/teemow/inboxtriage/internal/logging"
	"github.com/teemow/inboxtriage/internal/model"
)

// Dependencies are the collaborators a Controller talks to. Fetcher,
// Analyzer, Calendar and Drafts are required. The rest are optional.
type Dependencies struct {
	Fetcher  Fetcher
	Analyzer Analyzer
	Calendar CalendarGateway
	Drafts   DraftSaver

	Marker     ReadMarker
	Rememberer Rememberer
	Recorder   RunRecorder

	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
	Logger  *slog.Logger
}

// Options tune a run.
type Options struct {
	MaxEmails int
	// DefaultDuration is the meeting length in minutes when the email
	// gives none.
	DefaultDuration int
	Location        *time.Location
	// DryRun classifies only. No calendar entries, drafts or label changes.
	DryRun     bool
	MarkAsRead bool
	// Trigger labels run metrics (cli, api, mcp).
	Trigger string
}

// Controller runs triage cycles.
type Controller struct {
	deps Dependencies
	opts Options
	now  func() time.Time
}

// NewController creates a Controller.
func NewController(deps Dependencies, opts Options) *Controller {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	// Calendar needs an IANA zone name, which time.Local does not carry.
	if opts.Location == nil || opts.Location == time.Local {
		opts.Location = time.UTC
	}
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = 60
	}
	if opts.Trigger == "" {
		opts.Trigger = instrumentation.TriggerCLI
	}
	if deps.Metrics == nil {
		deps.Metrics = &instrumentation.Metrics{}
	}
	return &Controller{deps: deps, opts: opts, now: time.Now}
}

// run is the state of one cycle. It owns the result accumulator.
type run struct {
	id      string
	started time.Time
	logger  *slog.Logger

	emails  []model.Email
	index   int
	results []model.ProcessedResult

	// per-email scratch, cleared on record
	ctx      context.Context
	span     trace.Span
	email    model.Email
	judgment model.Classification
	outcome  model.CalendarOutcome
	draftID  string
	errs     []string
	// retry leaves the email unread and unremembered so the next run
	// classifies it again.
	retry bool
}

func (r *run) fail(step string, err error) {
	r.errs = append(r.errs, step+": "+err.Error())
}

// Run executes one triage cycle and returns its digest. Per-email failures
// are recorded in the results. The only error returned is ctx's, in which
// case the digest covers the emails recorded before cancellation.
func (c *Controller) Run(ctx context.Context) (*model.Digest, error) {
	r := &run{
		id:      uuid.NewString(),
		started: c.now(),
	}
	r.logger = logging.WithRun(c.deps.Logger, r.id)

	ctx, span := instrumentation.StartRunSpan(ctx, r.id, attribute.String("triage.trigger", c.opts.Trigger))
	defer span.End()

	var digest *model.Digest
	state := StateFetching
	for state != StateDone {
		if err := ctx.Err(); err != nil && state == StateLoading {
			digest = c.finish(ctx, r, instrumentation.StatusError)
			instrumentation.SetSpanError(span, err)
			return digest, err
		}
		switch state {
		case StateFetching:
			state = c.fetch(ctx, r)
		case StateLoading:
			state = c.load(ctx, r)
		case StateClassifying:
			state = c.classify(r)
		case StateCalendar:
			state = c.schedule(r)
		case StateDrafting:
			state = c.draft(r)
		case StateRecording:
			state = c.record(r)
		case StateDigesting:
			digest = c.finish(ctx, r, instrumentation.StatusSuccess)
			state = StateDone
		}
	}
	instrumentation.SetSpanSuccess(span)
	return digest, nil
}

func (c *Controller) fetch(ctx context.Context, r *run) State {
	emails, err := c.deps.Fetcher.FetchEmails(ctx, c.opts.MaxEmails)
	if err != nil {
		r.logger.Error("failed to fetch emails", logging.Err(err))
		emails = nil
	}
	r.emails = emails
	r.results = make([]model.ProcessedResult, 0, len(emails))
	r.logger.Info("fetched emails", slog.Int("count", len(emails)))
	if len(emails) == 0 {
		return StateDigesting
	}
	return StateLoading
}

func (c *Controller) load(ctx context.Context, r *run) State {
	if r.index >= len(r.emails) {
		return StateDigesting
	}
	r.email = r.emails[r.index]
	r.ctx, r.span = instrumentation.StartEmailSpan(ctx, r.index+1)
	r.logger.Info("processing email",
		logging.EmailID(r.email.ID),
		slog.Int("index", r.index+1),
		slog.Int("total", len(r.emails)),
		logging.Domain(r.email.SenderEmail))
	return StateClassifying
}

func (c *Controller) classify(r *run) State {
	judgment, err := c.deps.Analyzer.Classify(r.ctx, r.email)
	if err != nil {
		r.logger.Warn("classification failed, using fallback",
			logging.EmailID(r.email.ID), logging.State(StateClassifying.String()), logging.Err(err))
		r.fail("classify", err)
		r.retry = !classifier.IsUnparseable(err)
		judgment = model.FallbackClassification()
	}
	r.judgment = judgment

	switch {
	case c.opts.DryRun:
		return StateRecording
	case judgment.CalendarAction != model.CalendarNone:
		return StateCalendar
	case judgment.ReplyNeeded:
		return StateDrafting
	default:
		return StateRecording
	}
}

// eventFields derives the title and description of a calendar entry,
// defaulting to the email's subject and origin.
func eventFields(email model.Email, d model.CalendarDetails) (title, description string) {
	title = strings.TrimSpace(d.Title)
	if title == "" {
		title = email.Subject
	}
	if title == "" {
		title = gmail.NoSubject
	}
	description = strings.TrimSpace(d.Description)
	if description == "" {
		description = fmt.Sprintf("From: %s\nSubject: %s", email.Sender, email.Subject)
	}
	return title, description
}

func (c *Controller) schedule(r *run) State {
	ctx := r.ctx
	action := r.judgment.CalendarAction
	details := r.judgment.CalendarDetails

	start, defaulted := ResolveStart(details.Date, details.Time, c.now(), c.opts.Location)
	if defaulted {
		r.logger.Info("no usable date or time in email, defaulting to tomorrow 10:00",
			logging.EmailID(r.email.ID))
	}
	title, description := eventFields(r.email, details)
	tz := c.opts.Location.String()

	r.outcome.Start = start
	r.outcome.Defaulted = defaulted

	var (
		event *calendar.EventSummary
		err   error
	)
	switch action {
	case model.CalendarMeeting:
		end := start.Add(Duration(details.DurationMinutes, c.opts.DefaultDuration))
		r.outcome.End = end
		c.checkConflicts(ctx, r, start, end)

		var attendees []string
		if details.AttendeeEmail != "" {
			attendees = []string{details.AttendeeEmail}
		}
		event, err = c.createEvent(ctx, calendar.EventInput{
			Summary:     title,
			Description: description,
			Start:       start,
			End:         end,
			TimeZone:    tz,
			Attendees:   attendees,
		})
	case model.CalendarReminder:
		r.outcome.End = start.Add(calendar.ReminderBlock)
		event, err = c.createReminder(ctx, title, start, description, tz)
	}

	if err != nil {
		r.logger.Warn("failed to create calendar entry",
			logging.EmailID(r.email.ID), logging.State(StateCalendar.String()), logging.Err(err))
		r.fail("calendar", err)
	} else if event != nil && event.ID != "" {
		r.outcome.EventID = event.ID
		r.outcome.EventLink = event.HTMLLink
		c.deps.Metrics.RecordEventCreated(ctx, strings.ToLower(string(action)))
		if r.outcome.ConflictDetected {
			c.deps.Metrics.RecordConflict(ctx)
		}
		c.deps.Audit.LogSideEffect(ctx, instrumentation.SideEffect{
			Kind:         instrumentation.SideEffectEventCreated,
			RunID:        r.id,
			EmailID:      r.email.ID,
			ResourceID:   event.ID,
			Counterparty: details.AttendeeEmail,
		})
	}

	if r.judgment.ReplyNeeded {
		return StateDrafting
	}
	return StateRecording
}

func (c *Controller) checkConflicts(ctx context.Context, r *run, start, end time.Time) {
	var busy []model.TimeRange
	err := c.observeGoogle(ctx, instrumentation.ServiceCalendar, instrumentation.OperationFreeBusy, func(ctx context.Context) error {
		var err error
		busy, err = c.deps.Calendar.CheckConflicts(ctx, start, end)
		return err
	})
	if err != nil {
		r.logger.Warn("conflict check failed", logging.EmailID(r.email.ID), logging.Err(err))
		r.fail("conflict check", err)
		return
	}
	if len(busy) > 0 {
		r.outcome.ConflictDetected = true
		r.outcome.Conflicts = busy
		r.logger.Warn("meeting overlaps existing events",
			logging.EmailID(r.email.ID), slog.Int("conflicts", len(busy)))
	}
}

func (c *Controller) createEvent(ctx context.Context, in calendar.EventInput) (*calendar.EventSummary, error) {
	var event *calendar.EventSummary
	err := c.observeGoogle(ctx, instrumentation.ServiceCalendar, instrumentation.OperationCreate, func(ctx context.Context) error {
		var err error
		event, err = c.deps.Calendar.CreateEvent(ctx, in)
		return err
	})
	return event, err
}

func (c *Controller) createReminder(ctx context.Context, title string, at time.Time, description, tz string) (*calendar.EventSummary, error) {
	var event *calendar.EventSummary
	err := c.observeGoogle(ctx, instrumentation.ServiceCalendar, instrumentation.OperationCreate, func(ctx context.Context) error {
		var err error
		event, err = c.deps.Calendar.CreateReminder(ctx, title, at, description, tz)
		return err
	})
	return event, err
}

func (c *Controller) draft(r *run) State {
	ctx := r.ctx
	body, err := c.deps.Analyzer.DraftReply(ctx, r.email, r.judgment, r.outcome)
	if err != nil {
		r.logger.Warn("failed to draft reply",
			logging.EmailID(r.email.ID), logging.State(StateDrafting.String()), logging.Err(err))
		r.fail("draft", err)
		return StateRecording
	}
	if strings.TrimSpace(body) == "" {
		return StateRecording
	}

	var draftID string
	err = c.observeGoogle(ctx, instrumentation.ServiceGmail, instrumentation.OperationDraft, func(ctx context.Context) error {
		var err error
		draftID, err = c.deps.Drafts.SaveDraft(ctx, gmail.DraftInput{
			To:       r.email.SenderEmail,
			Subject:  gmail.ReplySubject(r.email.Subject),
			Body:     body,
			ThreadID: r.email.ThreadID,
		})
		return err
	})
	if err != nil {
		r.logger.Warn("failed to save draft", logging.EmailID(r.email.ID), logging.Err(err))
		r.fail("save draft", err)
		return StateRecording
	}

	r.draftID = draftID
	r.logger.Info("draft saved, review and send manually",
		logging.EmailID(r.email.ID), logging.SenderHash(r.email.SenderEmail))
	c.deps.Metrics.RecordDraftSaved(ctx)
	c.deps.Audit.LogSideEffect(ctx, instrumentation.SideEffect{
		Kind:         instrumentation.SideEffectDraftSaved,
		RunID:        r.id,
		EmailID:      r.email.ID,
		ResourceID:   draftID,
		Counterparty: r.email.SenderEmail,
	})
	return StateRecording
}

func (c *Controller) record(r *run) State {
	ctx := r.ctx
	settle := !c.opts.DryRun && !r.retry
	if r.retry {
		r.logger.Info("classification unavailable, leaving email for the next run", logging.EmailID(r.email.ID))
	}

	if c.opts.MarkAsRead && settle && c.deps.Marker != nil {
		err := c.observeGoogle(ctx, instrumentation.ServiceGmail, instrumentation.OperationModify, func(ctx context.Context) error {
			return c.deps.Marker.MarkAsRead(ctx, r.email.ID)
		})
		if err != nil {
			r.logger.Warn("failed to mark email as read", logging.EmailID(r.email.ID), logging.Err(err))
			r.fail("mark as read", err)
		} else {
			c.deps.Audit.LogSideEffect(ctx, instrumentation.SideEffect{
				Kind:    instrumentation.SideEffectMarkedRead,
				RunID:   r.id,
				EmailID: r.email.ID,
			})
		}
	}

	result := newResult(r.index+1, r.email, r.judgment, r.outcome, r.draftID, r.errs)
	r.results = append(r.results, result)

	if c.deps.Rememberer != nil && settle {
		if err := c.deps.Rememberer.Remember(ctx, r.email.ID); err != nil {
			r.logger.Warn("failed to remember processed email", logging.EmailID(r.email.ID), logging.Err(err))
		}
	}

	outcome := instrumentation.OutcomeClean
	if len(result.Errors) > 0 {
		outcome = instrumentation.OutcomeDegraded
	}
	c.deps.Metrics.RecordEmailProcessed(ctx, outcome)
	r.span.SetAttributes(attribute.String(instrumentation.SpanAttrCalendarAction, string(result.CalendarAction)))
	r.span.End()

	r.ctx = nil
	r.span = nil
	r.email = model.Email{}
	r.judgment = model.Classification{}
	r.outcome = model.CalendarOutcome{}
	r.draftID = ""
	r.errs = nil
	r.retry = false
	r.index++

	if r.index < len(r.emails) {
		return StateLoading
	}
	return StateDigesting
}

func newResult(index int, email model.Email, j model.Classification, o model.CalendarOutcome, draftID string, errs []string) model.ProcessedResult {
	var errsCopy []string
	if len(errs) > 0 {
		errsCopy = append([]string(nil), errs...)
	}
	return model.ProcessedResult{
		Index:            index,
		EmailID:          email.ID,
		ThreadID:         email.ThreadID,
		Sender:           email.Sender,
		SenderEmail:      email.SenderEmail,
		Subject:          email.Subject,
		Summary:          j.Summary,
		KeyPoints:        append([]string(nil), j.KeyPoints...),
		Urgency:          j.Urgency,
		ReplyNeeded:      j.ReplyNeeded,
		ReplyReason:      j.ReplyReason,
		DraftID:          draftID,
		CalendarAction:   j.CalendarAction,
		CalendarDetails:  j.CalendarDetails,
		CalendarEventID:  o.EventID,
		ConflictDetected: o.ConflictDetected,
		Errors:           errsCopy,
	}
}

func (c *Controller) finish(ctx context.Context, r *run, status string) *model.Digest {
	digest := BuildDigest(r.id, r.started, c.now(), r.results)
	c.deps.Metrics.RecordTriageRun(ctx, c.opts.Trigger, status, digest.FinishedAt.Sub(digest.StartedAt))
	r.logger.Info("run finished",
		slog.Int("total", digest.Total),
		slog.Int("drafts_saved", digest.DraftsSaved),
		slog.Int("events_created", digest.EventsCreated),
		slog.Int("conflicts", digest.Conflicts))

	if c.deps.Recorder != nil {
		// History is written even if the caller's context is done.
		if err := c.deps.Recorder.SaveRun(context.WithoutCancel(ctx), digest); err != nil {
			r.logger.Warn("failed to save run history", logging.Err(err))
		}
	}
	return digest
}

// observeGoogle runs fn inside a Google API span and records its outcome.
func (c *Controller) observeGoogle(ctx context.Context, service, operation string, fn func(context.Context) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, service, operation)
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	}
	c.deps.Metrics.RecordGoogleAPIOperation(ctx, service, operation, status, time.Since(start))
	return err
}
