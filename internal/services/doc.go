// Package services defines the failure taxonomy and context helpers shared by
// every pipeline component.
//
// Key responsibilities:
//   - A closed set of failure kinds (network, filesystem, process spawn,
//     process execution, format validation, model load, inference) carried by
//     the structured Error type, each matching a sentinel marker for errors.Is.
//   - Hint text that turns a kind into actionable guidance at the outer
//     boundary, so callers never parse error strings.
//   - Context helpers that stamp run IDs, workflow names, and step names for
//     logging.
package services
