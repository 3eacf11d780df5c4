// Package triage_tools exposes the email triage assistant as MCP tools.
//
// An agent can start a run, confirm or skip a suggested calendar entry,
// look at the upcoming schedule and browse the run history. In read-only
// mode triage_run is forced into a dry run so nothing is written to the
// mailbox or the calendar.
package triage_tools
