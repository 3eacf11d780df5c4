// Package triage drives the per-email workflow: fetch, classify, schedule,
// draft, record and digest.
//
// A run is an explicit state machine. Each email passes through
//
//	LOADING -> CLASSIFYING -> [CALENDAR] -> [DRAFTING] -> RECORDING
//
// one at a time, and the run ends in DIGESTING once the fetched list is
// exhausted. Collaborator failures for a single email degrade that email's
// fields to empty values and are recorded in its Errors; they never end
// the run.
package triage
