// Package history persists one record per pipeline run in a SQLite database
// under the data directory.
//
// Records are created when a workflow starts and completed when it finishes,
// carrying the outcome, the failure kind, and for transcription runs the
// transcript and detected language. The store tolerates concurrent writers
// through WAL mode and a bounded retry on SQLITE_BUSY.
package history
