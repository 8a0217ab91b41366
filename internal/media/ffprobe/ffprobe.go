package ffprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"convrt/internal/language"
	"convrt/internal/process"
	"convrt/internal/services"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int               `json:"index"`
	CodecName  string            `json:"codec_name"`
	CodecType  string            `json:"codec_type"`
	Duration   string            `json:"duration"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	SampleRate string            `json:"sample_rate"`
	Channels   int               `json:"channels"`
	SampleFmt  string            `json:"sample_fmt"`
	Tags       map[string]string `json:"tags"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// Inspect runs ffprobe through runner and decodes the JSON response.
func Inspect(ctx context.Context, runner process.Runner, path string) (Result, error) {
	inv, err := process.Probe(path)
	if err != nil {
		return Result{}, err
	}
	out, err := runner.Run(ctx, inv)
	if err != nil {
		return Result{}, err
	}

	var result Result
	if err := json.Unmarshal(out.Stdout, &result); err != nil {
		return Result{}, services.Wrap(services.ErrFormatValidation, "ffprobe.inspect", "parse ffprobe output", err)
	}
	return result, nil
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	return r.countStreams("video")
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	return r.countStreams("audio")
}

func (r Result) countStreams(codecType string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, codecType) {
			count++
		}
	}
	return count
}

// FirstVideo returns the first video stream, if any.
func (r Result) FirstVideo() (Stream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			return stream, true
		}
	}
	return Stream{}, false
}

// AudioLanguage returns the tagged language of the first audio stream that has one.
func (r Result) AudioLanguage() string {
	for _, stream := range r.Streams {
		if !strings.EqualFold(stream.CodecType, "audio") {
			continue
		}
		if lang := language.ExtractFromTags(stream.Tags); lang != "" && lang != "und" {
			return lang
		}
	}
	return ""
}

// HasFormat reports whether the container's format list includes name.
// ffprobe reports families such as "mov,mp4,m4a,3gp,3g2,mj2".
func (r Result) HasFormat(name string) bool {
	for _, candidate := range strings.Split(r.Format.FormatName, ",") {
		if strings.EqualFold(strings.TrimSpace(candidate), name) {
			return true
		}
	}
	return false
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

// BitRate returns the container bitrate in bits per second, or 0 when unavailable.
func (r Result) BitRate() int64 {
	rate := parseFloat(r.Format.BitRate)
	if math.IsNaN(rate) || rate < 0 {
		return 0
	}
	return int64(rate)
}

// Summary renders a one-line description for logs and CLI output.
func (r Result) Summary() string {
	parts := []string{r.Format.FormatName}
	if video, ok := r.FirstVideo(); ok {
		parts = append(parts, fmt.Sprintf("%s %dx%d", video.CodecName, video.Width, video.Height))
	}
	if d := r.DurationSeconds(); d > 0 {
		parts = append(parts, fmt.Sprintf("%.3fs", d))
	}
	return strings.Join(parts, " ")
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
