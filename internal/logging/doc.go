// Package logging assembles structured slog loggers and formatting helpers used
// across convrt components.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so workflow code can tag log
// lines with run IDs, workflow names, and steps. TeeLogger duplicates records
// into additional handlers; the pipeline uses it to mirror run logs onto the
// event bus. NewNop provides a discarding logger for tests.
package logging
