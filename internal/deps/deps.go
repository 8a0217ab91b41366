package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"convrt/internal/config"
	"convrt/internal/transcription"
)

// Requirement defines an external dependency convrt relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command,omitempty"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional,omitempty"`
	Available   bool   `json:"available"`
	Version     string `json:"version,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// Requirements lists the sidecar executables named in the [tools] section.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "yt-dlp", Command: cfg.Tools.YtDlp, Description: "Fetches remote videos for acquire"},
		{Name: "FFmpeg", Command: cfg.Tools.FFmpeg, Description: "Extracts audio and transcodes clips"},
		{Name: "FFprobe", Command: cfg.Tools.FFprobe, Description: "Verifies trimmed clips", Optional: !cfg.Pipeline.VerifyOutputs},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Command = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Check reports every runtime dependency: the sidecar tools with their
// versions, the AV1 encoder used by encode, and the compiled-in engine.
func Check(ctx context.Context, cfg *config.Config) []Status {
	results := CheckBinaries(Requirements(cfg))
	for i := range results {
		if !results[i].Available {
			continue
		}
		results[i].Version = ToolVersion(ctx, results[i].Command, versionFlag(results[i].Name))
	}

	ffmpeg := results[1]
	results = append(results, CheckAV1Encoder(ctx, ffmpeg))
	results = append(results, engineStatus())
	return results
}

// Missing returns the required dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			out = append(out, status)
		}
	}
	return out
}

func engineStatus() Status {
	status := Status{
		Name:        "whisper.cpp",
		Description: "Speech recognition engine (build tag whisper)",
		Available:   transcription.EngineAvailable(),
	}
	if !status.Available {
		status.Detail = "binary built without the whisper tag"
	}
	return status
}

func versionFlag(name string) string {
	if name == "yt-dlp" {
		return "--version"
	}
	return "-version"
}
