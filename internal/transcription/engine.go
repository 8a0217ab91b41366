package transcription

import (
	"context"
	"time"
)

// Segment is one span of recognized text, in emission order.
type Segment struct {
	Index int           `json:"index"`
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Text  string        `json:"text"`
}

// Params configures a single inference run.
type Params struct {
	// Language is an ISO 639-1 code; empty requests detection.
	Language  string
	Translate bool
}

// Loader opens acoustic models from disk.
type Loader interface {
	Load(path string) (Model, error)
}

// Model is a loaded acoustic model.
type Model interface {
	NewState() (State, error)
	Close() error
}

// State holds per-call inference state. It is never shared between calls.
type State interface {
	Configure(Params) error
	// Process runs inference over mono 16 kHz samples. Implementations
	// should abort promptly once ctx is done.
	Process(ctx context.Context, samples []float32) error
	// NextSegment returns io.EOF after the last segment.
	NextSegment() (Segment, error)
	DetectedLanguage() (string, error)
	Close() error
}
