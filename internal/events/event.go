package events

import "time"

// Type classifies an event.
type Type string

const (
	TypeStage  Type = "stage"
	TypeLog    Type = "log"
	TypeResult Type = "result"
	TypeError  Type = "error"
)

// Event is one observable occurrence within a run.
type Event struct {
	Seq        uint64            `json:"seq"`
	Timestamp  time.Time         `json:"ts"`
	RunID      string            `json:"runId,omitempty"`
	Workflow   string            `json:"workflow,omitempty"`
	Type       Type              `json:"type"`
	Stage      string            `json:"stage,omitempty"`
	Level      string            `json:"level,omitempty"`
	Message    string            `json:"message,omitempty"`
	Command    string            `json:"command,omitempty"`
	Args       []string          `json:"args,omitempty"`
	ExitCode   int               `json:"exitCode,omitempty"`
	Stderr     string            `json:"stderr,omitempty"`
	OutputPath string            `json:"outputPath,omitempty"`
	ErrorKind  string            `json:"errorKind,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
}
