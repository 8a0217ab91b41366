// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe through the process orchestrator, so probes share the
// same cancellation, logging, and error mapping as every other tool call.
// Helper methods on Result expose stream counts, container family checks, and
// duration parsing for output verification.
package ffprobe
