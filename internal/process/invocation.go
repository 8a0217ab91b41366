package process

import (
	"fmt"
	"slices"
	"time"
)

// Tool is the logical name of an external executable.
type Tool string

const (
	ToolYtDlp   Tool = "yt-dlp"
	ToolFFmpeg  Tool = "ffmpeg"
	ToolFFprobe Tool = "ffprobe"
)

// Known reports whether t is one of the supported tools.
func (t Tool) Known() bool {
	switch t {
	case ToolYtDlp, ToolFFmpeg, ToolFFprobe:
		return true
	default:
		return false
	}
}

// Invocation describes one child process. It is immutable once built; the
// accessor methods return copies.
type Invocation struct {
	tool       Tool
	args       []string
	outputPath string
	timeout    time.Duration
}

// NewInvocation validates the tool name and snapshots args.
func NewInvocation(tool Tool, args []string, outputPath string) (Invocation, error) {
	if !tool.Known() {
		return Invocation{}, fmt.Errorf("unknown tool %q", tool)
	}
	return Invocation{tool: tool, args: slices.Clone(args), outputPath: outputPath}, nil
}

// Tool returns the logical executable name.
func (i Invocation) Tool() Tool { return i.tool }

// Args returns a copy of the argument vector.
func (i Invocation) Args() []string { return slices.Clone(i.args) }

// OutputPath is the artifact the invocation is expected to produce, if any.
func (i Invocation) OutputPath() string { return i.outputPath }

// Timeout is the wall-clock bound applied by the orchestrator; zero means none.
func (i Invocation) Timeout() time.Duration { return i.timeout }

// WithTimeout returns a copy of the invocation bounded by d.
func (i Invocation) WithTimeout(d time.Duration) Invocation {
	i.args = slices.Clone(i.args)
	i.timeout = d
	return i
}

// Result is produced exactly once per invocation.
type Result struct {
	Succeeded  bool
	Stdout     []byte
	Stderr     []byte
	OutputPath string
	ExitCode   int
	Duration   time.Duration
	TimedOut   bool
	Command    string
	Args       []string
}
