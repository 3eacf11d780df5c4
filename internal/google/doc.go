// Package google provides OAuth2 configuration and per-account token storage
// for the Gmail and Calendar APIs.
//
// Tokens are stored as JSON files in the user cache directory, one file per
// account. The TokenProvider interface lets the Gmail and Calendar clients
// obtain refreshing token sources without knowing where tokens live.
package google
