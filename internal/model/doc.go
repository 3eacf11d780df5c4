// Package model holds the domain types shared by the triage pipeline:
// fetched emails, classifier judgments, calendar outcomes and the
// per-email results that make up a run digest.
//
// The package has no dependencies on the Google, LLM or storage layers
// so every other internal package can import it.
package model
