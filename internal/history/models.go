package history

import "time"

// Status tracks the lifecycle of a run.
type Status string

const (
	StatusRunning     Status = "running"
	StatusSucceeded   Status = "succeeded"
	StatusFailed      Status = "failed"
	StatusCanceled    Status = "canceled"
	StatusInterrupted Status = "interrupted"
)

// Terminal reports whether no further transition is expected.
func (s Status) Terminal() bool {
	return s != StatusRunning
}

// Run is one persisted pipeline execution.
type Run struct {
	ID               string    `json:"id"`
	Workflow         string    `json:"workflow"`
	Input            string    `json:"input"`
	Output           string    `json:"output,omitempty"`
	Status           Status    `json:"status"`
	ErrorKind        string    `json:"errorKind,omitempty"`
	ErrorMessage     string    `json:"errorMessage,omitempty"`
	DetectedLanguage string    `json:"detectedLanguage,omitempty"`
	Transcript       string    `json:"transcript,omitempty"`
	StartedAt        time.Time `json:"startedAt"`
	FinishedAt       time.Time `json:"finishedAt,omitzero"`
}

// Duration returns the elapsed run time, zero while the run is active.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Completion carries the fields recorded when a run finishes.
type Completion struct {
	Status           Status
	Output           string
	ErrorKind        string
	ErrorMessage     string
	DetectedLanguage string
	Transcript       string
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Workflow string
	Status   Status
	Limit    int
}
