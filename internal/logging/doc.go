// Package logging builds the process logger and holds the attribute
// helpers every package logs with, so keys stay the same across the
// controller, the HTTP API and the MCP tools.
//
// A run logger carries the run ID on every line:
//
//	logger := logging.WithRun(base, digest.RunID)
//	logger.Warn("classification failed",
//	    logging.EmailID(email.ID),
//	    logging.State("CLASSIFYING"),
//	    logging.Err(err))
//
// Sender addresses are never logged as-is. Use SenderHash to correlate
// lines about the same sender or Domain when only the organisation matters.
package logging
