package process

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// FetchVideo downloads the best video+audio available at rawURL, merged into
// an mp4 container at outputPath.
func FetchVideo(rawURL, outputPath string) (Invocation, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Invocation{}, validationError("fetch", "url is required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return Invocation{}, validationError("fetch", fmt.Sprintf("url must be an http(s) address: %q", rawURL))
	}
	if strings.TrimSpace(outputPath) == "" {
		return Invocation{}, validationError("fetch", "output path is required")
	}
	args := []string{
		"-f", "bv*+ba/b",
		"--merge-output-format", "mp4",
		"--no-playlist",
		"--newline",
		"-o", outputPath,
		"--", rawURL,
	}
	return NewInvocation(ToolYtDlp, args, outputPath)
}

// ExtractAudio converts the first audio stream of inputPath into a mono
// 16 kHz 32-bit float WAV file.
func ExtractAudio(inputPath, outputPath string) (Invocation, error) {
	if strings.TrimSpace(inputPath) == "" {
		return Invocation{}, validationError("extract", "input path is required")
	}
	if strings.TrimSpace(outputPath) == "" {
		return Invocation{}, validationError("extract", "output path is required")
	}
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_f32le",
		"-f", "wav",
		outputPath,
	}
	return NewInvocation(ToolFFmpeg, args, outputPath)
}

// Probe asks ffprobe for container and stream metadata as JSON on stdout.
func Probe(path string) (Invocation, error) {
	if strings.TrimSpace(path) == "" {
		return Invocation{}, validationError("probe", "path is required")
	}
	args := []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path}
	return NewInvocation(ToolFFprobe, args, "")
}

// Format is an output container for trimmed clips.
type Format string

const (
	FormatMP4  Format = "mp4"
	FormatWebM Format = "webm"
	FormatGIF  Format = "gif"
	FormatMOV  Format = "mov"
	FormatMKV  Format = "mkv"
)

// ParseFormat accepts a container name, case-insensitively. Empty means mp4.
func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case "":
		return FormatMP4, nil
	case FormatMP4, FormatWebM, FormatGIF, FormatMOV, FormatMKV:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q", value)
	}
}

// Extension returns the file extension including the leading dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Crop is a centered aspect-ratio crop preset.
type Crop string

const (
	CropNone     Crop = "none"
	CropVertical Crop = "9:16"
	CropSquare   Crop = "1:1"
)

// ParseCrop accepts "none", "9:16" (also "vertical", "tiktok"), or "1:1" ("square").
func ParseCrop(value string) (Crop, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none":
		return CropNone, nil
	case "9:16", "vertical", "tiktok":
		return CropVertical, nil
	case "1:1", "square":
		return CropSquare, nil
	default:
		return "", fmt.Errorf("unsupported crop %q", value)
	}
}

func (c Crop) filter() string {
	switch c {
	case CropVertical:
		return "crop=ih*9/16:ih"
	case CropSquare:
		return "crop=ih:ih"
	default:
		return ""
	}
}

// Quality selects encoder effort and bitrate.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// ParseQuality accepts low, medium, or high. Empty means medium.
func ParseQuality(value string) (Quality, error) {
	switch q := Quality(strings.ToLower(strings.TrimSpace(value))); q {
	case "":
		return QualityMedium, nil
	case QualityLow, QualityMedium, QualityHigh:
		return q, nil
	default:
		return "", fmt.Errorf("unsupported quality %q", value)
	}
}

func (q Quality) crf() string {
	switch q {
	case QualityLow:
		return "28"
	case QualityHigh:
		return "18"
	default:
		return "23"
	}
}

func (q Quality) x264Preset() string {
	if q == QualityHigh {
		return "slow"
	}
	return "fast"
}

func (q Quality) vp9Bitrate() string {
	if q == QualityHigh {
		return "1M"
	}
	return "500k"
}

const gifPaletteFilter = "fps=10,scale=320:-1:flags=lanczos,split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse"

// TrimSpec describes a clip cut from InputPath.
type TrimSpec struct {
	InputPath  string
	OutputPath string
	Start      time.Duration
	Duration   time.Duration
	Format     Format
	Crop       Crop
	Quality    Quality
}

// Transcode cuts [Start, Start+Duration) from the input and re-encodes it for
// the requested container, crop, and quality.
func Transcode(spec TrimSpec) (Invocation, error) {
	if strings.TrimSpace(spec.InputPath) == "" {
		return Invocation{}, validationError("transcode", "input path is required")
	}
	if strings.TrimSpace(spec.OutputPath) == "" {
		return Invocation{}, validationError("transcode", "output path is required")
	}
	if spec.Start < 0 {
		return Invocation{}, validationError("transcode", "start must not be negative")
	}
	if spec.Duration <= 0 {
		return Invocation{}, validationError("transcode", "duration must be positive")
	}
	format, err := ParseFormat(string(spec.Format))
	if err != nil {
		return Invocation{}, validationError("transcode", err.Error())
	}
	crop, err := ParseCrop(string(spec.Crop))
	if err != nil {
		return Invocation{}, validationError("transcode", err.Error())
	}
	quality, err := ParseQuality(string(spec.Quality))
	if err != nil {
		return Invocation{}, validationError("transcode", err.Error())
	}
	if ext := strings.ToLower(filepath.Ext(spec.OutputPath)); ext != format.Extension() {
		return Invocation{}, validationError("transcode", fmt.Sprintf("output path %q does not match format %s", spec.OutputPath, format))
	}

	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-ss", formatSeconds(spec.Start),
		"-t", formatSeconds(spec.Duration),
		"-i", spec.InputPath,
	}

	filters := make([]string, 0, 2)
	if f := crop.filter(); f != "" {
		filters = append(filters, f)
	}
	if format == FormatGIF {
		filters = append(filters, gifPaletteFilter)
	}
	if len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}

	switch format {
	case FormatWebM:
		args = append(args, "-c:v", "libvpx-vp9", "-b:v", quality.vp9Bitrate(), "-c:a", "libopus")
	case FormatGIF:
		args = append(args, "-an", "-loop", "0")
	default:
		args = append(args,
			"-c:v", "libx264",
			"-preset", quality.x264Preset(),
			"-crf", quality.crf(),
			"-pix_fmt", "yuv420p",
			"-c:a", "aac",
		)
		if format == FormatMP4 || format == FormatMOV {
			args = append(args, "-movflags", "+faststart")
		}
	}
	args = append(args, spec.OutputPath)
	return NewInvocation(ToolFFmpeg, args, spec.OutputPath)
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
