package deps

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

const probeTimeout = 5 * time.Second

// av1EncoderName is the FFmpeg encoder the archival encode path depends on.
const av1EncoderName = "libsvtav1"

// ToolVersion runs command with flag and returns the first output line. It
// returns an empty string when the tool cannot report a version.
func ToolVersion(ctx context.Context, command, flag string) string {
	out, err := probe(ctx, command, flag)
	if err != nil {
		return ""
	}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	if scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimPrefix(line, "ffmpeg version ")
		line = strings.TrimPrefix(line, "ffprobe version ")
		if fields := strings.Fields(line); len(fields) > 0 {
			return fields[0]
		}
	}
	return ""
}

// CheckAV1Encoder reports whether the FFmpeg build exposes the SVT-AV1
// encoder that encode relies on.
func CheckAV1Encoder(ctx context.Context, ffmpeg Status) Status {
	result := Status{
		Name:        "SVT-AV1",
		Command:     ffmpeg.Command,
		Description: "AV1 encoder used by encode",
		Optional:    true,
	}
	if !ffmpeg.Available {
		result.Detail = "ffmpeg unavailable"
		return result
	}
	out, err := probe(ctx, ffmpeg.Command, "-hide_banner", "-encoders")
	if err != nil {
		result.Detail = "ffmpeg -encoders failed: " + err.Error()
		return result
	}
	if !bytes.Contains(out, []byte(av1EncoderName)) {
		result.Detail = "ffmpeg was built without " + av1EncoderName
		return result
	}
	result.Available = true
	return result
}

func probe(ctx context.Context, command string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return exec.CommandContext(ctx, command, args...).Output()
}
