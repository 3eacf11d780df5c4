// Package batch provides helpers for MCP tools that accept one ID or a
// list of IDs: parameter parsing, per-item processing with partial
// failures, and a uniform JSON result shape.
package batch
