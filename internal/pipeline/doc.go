// Package pipeline sequences the acquisition, transcription, trim, and
// archival encode workflows.
//
// Each workflow runs its steps strictly in order and stops at the first
// failure without retrying. Every run receives a uuid run ID; intermediate
// and final artifacts are named after it so concurrent runs never share a
// file. Runs are recorded in the history store and published on the event
// bus when those collaborators are configured. Errors keep their
// services.Kind until Report converts them for display.
package pipeline
