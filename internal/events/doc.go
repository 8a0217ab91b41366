// Package events buffers pipeline events in memory and lets observers follow
// them by sequence number.
//
// Workflows publish stage transitions, results, and failures (including the
// failing command, its exit code, and captured standard error). A slog handler
// mirrors log records onto the same bus so the local bridge can stream both
// over a single websocket.
package events
