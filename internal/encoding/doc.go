// Package encoding runs AV1 archival encodes through the Drapto library.
//
// Drapto's Reporter callbacks are folded into a single Progress type, and
// failures are reported with the shared error taxonomy so the pipeline can
// treat an encode like any other step.
package encoding
