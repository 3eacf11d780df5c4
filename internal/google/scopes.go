package google

import (
	calendar "google.golang.org/api/calendar/v3"
	gmail "google.golang.org/api/gmail/v1"
)

// DefaultOAuthScopes are the scopes requested during login.
//
// The scopes provide access to:
//   - Gmail: read messages, create drafts, remove the UNREAD label
//   - Google Calendar: create events, query freebusy, list upcoming events
//
// Neither gmail.send nor full mailbox access is requested.
var DefaultOAuthScopes = []string{
	gmail.GmailReadonlyScope,
	gmail.GmailComposeScope,
	gmail.GmailModifyScope,
	calendar.CalendarScope,
	calendar.CalendarEventsScope,
}
