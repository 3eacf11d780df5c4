// Package calendar wraps the Google Calendar API for the triage run:
// meeting events with attendees, 15 minute reminder blocks, freebusy
// conflict checks and the upcoming-events overview. All calls target the
// primary calendar of the account.
package calendar
