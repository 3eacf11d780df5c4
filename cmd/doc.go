// Package cmd implements the command-line interface for inboxtriage.
//
// This package provides the following commands:
//   - run: Process one batch of emails and print the digest (default)
//   - auth: Authorize a Google account or store an LLM API key
//   - confirm: Create a calendar entry by hand
//   - history: List past runs or show one run's digest
//   - serve: Start the HTTP API and the MCP server
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// The run command is the default command when no subcommand is specified.
package cmd
