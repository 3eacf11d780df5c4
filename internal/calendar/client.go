package calendar

import (
	"context"
	"fmt"
	"sort"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/inboxtriage/internal/google"
	"github.com/teemow/inboxtriage/internal/model"
)

const (
	// PrimaryCalendar is the calendar all triage events go to.
	PrimaryCalendar = "primary"

	// ReminderBlock is the length of a reminder event.
	ReminderBlock = 15 * time.Minute

	// ReminderTitlePrefix marks reminder events in the calendar.
	ReminderTitlePrefix = "Reminder: "
)

// MeetingReminders are applied to meetings unless overridden.
var MeetingReminders = []Reminder{
	{Method: ReminderEmail, Minutes: 30},
	{Method: ReminderPopup, Minutes: 10},
}

// zeroOffsetReminders fire at the reminder's start time.
var zeroOffsetReminders = []Reminder{
	{Method: ReminderEmail, Minutes: 0},
	{Method: ReminderPopup, Minutes: 0},
}

// Client wraps the Google Calendar service
type Client struct {
	svc     *calendar.Service
	account string // The account this client is associated with
}

// Account returns the account name this client is associated with
func (c *Client) Account() string {
	return c.account
}

// NewClient creates a Calendar client from explicit client options.
func NewClient(ctx context.Context, account string, opts ...option.ClientOption) (*Client, error) {
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return &Client{svc: svc, account: account}, nil
}

// NewClientForAccountWithProvider creates a new Calendar client with OAuth2 authentication for a specific account
// The OAuth token is retrieved from the provided token provider
func NewClientForAccountWithProvider(ctx context.Context, account string, provider google.TokenProvider) (*Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("token provider cannot be nil")
	}
	ts, err := provider.TokenSourceForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get Google OAuth token for account %s: %w", account, err)
	}
	return NewClient(ctx, account, option.WithHTTPClient(google.NewHTTPClient(ctx, ts)))
}

// CreateEvent creates an event on the primary calendar. Attendees are
// notified only when there are any.
func (c *Client) CreateEvent(ctx context.Context, input EventInput) (*EventSummary, error) {
	if input.Summary == "" {
		return nil, fmt.Errorf("summary is required")
	}
	if !input.End.After(input.Start) {
		return nil, fmt.Errorf("end time must be after start time")
	}
	if input.TimeZone == "" {
		input.TimeZone = "UTC"
	}

	event := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Start: &calendar.EventDateTime{
			DateTime: input.Start.Format(time.RFC3339),
			TimeZone: input.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: input.End.Format(time.RFC3339),
			TimeZone: input.TimeZone,
		},
	}

	reminders := input.Reminders
	if reminders == nil {
		reminders = MeetingReminders
	}
	event.Reminders = &calendar.EventReminders{
		UseDefault:      false,
		ForceSendFields: []string{"UseDefault"},
	}
	for _, r := range reminders {
		event.Reminders.Overrides = append(event.Reminders.Overrides, &calendar.EventReminder{
			Method:  r.Method,
			Minutes: r.Minutes,
			// Minutes 0 is a meaningful override and must reach the API.
			ForceSendFields: []string{"Minutes"},
		})
	}

	sendUpdates := "none"
	for _, email := range input.Attendees {
		if email == "" {
			continue
		}
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
	}
	if len(event.Attendees) > 0 {
		sendUpdates = "all"
	}

	created, err := c.svc.Events.Insert(PrimaryCalendar, event).
		SendUpdates(sendUpdates).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	summary := toEventSummary(created)
	return &summary, nil
}

// CreateReminder creates a 15 minute reminder block starting at at, with
// reminders firing at the start time.
func (c *Client) CreateReminder(ctx context.Context, title string, at time.Time, description, tz string) (*EventSummary, error) {
	return c.CreateEvent(ctx, EventInput{
		Summary:     ReminderTitlePrefix + title,
		Description: description,
		Start:       at,
		End:         at.Add(ReminderBlock),
		TimeZone:    tz,
		Reminders:   zeroOffsetReminders,
	})
}

// QueryFreeBusy checks availability for calendars in a time range
func (c *Client) QueryFreeBusy(ctx context.Context, timeMin, timeMax time.Time, calendarIDs []string) ([]FreeBusyInfo, error) {
	items := make([]*calendar.FreeBusyRequestItem, len(calendarIDs))
	for i, id := range calendarIDs {
		items[i] = &calendar.FreeBusyRequestItem{Id: id}
	}

	query := &calendar.FreeBusyRequest{
		TimeMin: timeMin.Format(time.RFC3339),
		TimeMax: timeMax.Format(time.RFC3339),
		Items:   items,
	}

	result, err := c.svc.Freebusy.Query(query).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to query freebusy: %w", err)
	}

	infos := make([]FreeBusyInfo, 0, len(result.Calendars))
	for calID, cal := range result.Calendars {
		info := FreeBusyInfo{Calendar: calID}
		for _, busy := range cal.Busy {
			start, _ := time.Parse(time.RFC3339, busy.Start)
			end, _ := time.Parse(time.RFC3339, busy.End)
			info.Busy = append(info.Busy, TimeRange{Start: start, End: end})
		}
		for _, e := range cal.Errors {
			info.Errors = append(info.Errors, e.Reason)
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Calendar < infos[j].Calendar })

	return infos, nil
}

// CheckConflicts returns the busy intervals of the primary calendar that
// overlap [start, end).
func (c *Client) CheckConflicts(ctx context.Context, start, end time.Time) ([]model.TimeRange, error) {
	infos, err := c.QueryFreeBusy(ctx, start, end, []string{PrimaryCalendar})
	if err != nil {
		return nil, err
	}

	var busy []model.TimeRange
	for _, info := range infos {
		if len(info.Errors) > 0 {
			return nil, fmt.Errorf("freebusy for %s: %v", info.Calendar, info.Errors)
		}
		for _, b := range info.Busy {
			busy = append(busy, model.TimeRange{Start: b.Start, End: b.End})
		}
	}
	return busy, nil
}

// ListEvents lists single events on the primary calendar within a time
// range, ordered by start time.
func (c *Client) ListEvents(ctx context.Context, timeMin, timeMax time.Time, maxResults int64) ([]EventSummary, error) {
	call := c.svc.Events.List(PrimaryCalendar).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")
	if maxResults > 0 {
		call = call.MaxResults(maxResults)
	}

	events, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	summaries := make([]EventSummary, 0, len(events.Items))
	for _, event := range events.Items {
		summaries = append(summaries, toEventSummary(event))
	}
	return summaries, nil
}

// UpcomingEvents lists at most max events from now until days ahead.
func (c *Client) UpcomingEvents(ctx context.Context, days int, max int64) ([]EventSummary, error) {
	now := time.Now()
	return c.ListEvents(ctx, now, now.AddDate(0, 0, days), max)
}
