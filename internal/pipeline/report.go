package pipeline

import (
	"strings"

	"convrt/internal/services"
)

// Outcome is the display form of a workflow result.
type Outcome struct {
	Text             string `json:"text,omitempty"`
	DetectedLanguage string `json:"detectedLanguage,omitempty"`
	Output           string `json:"output,omitempty"`
	// SRT carries SubRip cues when the caller asked for them.
	SRT              string `json:"srt,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorKind        string `json:"errorKind,omitempty"`
	Hint             string `json:"hint,omitempty"`
}

// Report converts err into an Outcome. A nil error yields an empty outcome.
func Report(err error) Outcome {
	if err == nil {
		return Outcome{}
	}
	out := Outcome{Error: strings.TrimSpace(err.Error())}
	if kind, ok := services.KindOf(err); ok {
		out.ErrorKind = kind.String()
		out.Hint = services.Hint(kind)
	}
	return out
}

// ReportTranscript converts a transcription result into an Outcome. On
// failure no partial transcript is reported.
func ReportTranscript(t Transcript, err error) Outcome {
	if err != nil {
		return Report(err)
	}
	return Outcome{Text: t.Text, DetectedLanguage: t.DetectedLanguage}
}

// ReportPath converts a path-producing workflow result into an Outcome.
func ReportPath(path string, err error) Outcome {
	if err != nil {
		return Report(err)
	}
	return Outcome{Output: path}
}
