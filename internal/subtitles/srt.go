package subtitles

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"convrt/internal/services"
	"convrt/internal/transcription"
)

// FormatSRT renders segments as SubRip cues numbered from 1 in emission
// order. Segments with no text are skipped and do not consume a number.
// An end before its start is clamped to the start. No segments yield "".
func FormatSRT(segments []transcription.Segment) string {
	var sb strings.Builder
	index := 0
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		index++
		if index > 1 {
			sb.WriteByte('\n')
		}
		end := max(seg.End, seg.Start)
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n", index, timestamp(seg.Start), timestamp(end), text)
	}
	return sb.String()
}

// WriteSRT writes the cues for segments to path, creating its directory.
func WriteSRT(path string, segments []transcription.Segment) error {
	const op = "subtitles.write"
	path = strings.TrimSpace(path)
	if path == "" {
		return services.New(services.KindValidation, op, "subtitle path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return services.Wrap(services.ErrFilesystem, op, "create subtitle directory", err)
	}
	if err := os.WriteFile(path, []byte(FormatSRT(segments)), 0o644); err != nil {
		return services.Wrap(services.ErrFilesystem, op, "write "+path, err)
	}
	return nil
}

// timestamp renders d as HH:MM:SS,mmm. Hours are not capped at 99.
func timestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := int64(d.Round(time.Millisecond) / time.Millisecond)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", ms/3_600_000, ms/60_000%60, ms/1000%60, ms%1000)
}
