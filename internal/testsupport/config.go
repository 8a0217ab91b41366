package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"convrt/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.WorkDir = filepath.Join(base, "data", "work")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Models.BaseURL = "http://127.0.0.1:1"
	cfgVal.Models.UserAgent = "convrt-test"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithModelBaseURL points the model cache at a test server.
func WithModelBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Models.BaseURL = url
	}
}

// WithTools sets the sidecar executables to explicit paths. Empty values keep
// the defaults.
func WithTools(ytdlp, ffmpeg, ffprobe string) ConfigOption {
	return func(b *configBuilder) {
		if ytdlp != "" {
			b.cfg.Tools.YtDlp = ytdlp
		}
		if ffmpeg != "" {
			b.cfg.Tools.FFmpeg = ffmpeg
		}
		if ffprobe != "" {
			b.cfg.Tools.FFprobe = ffprobe
		}
	}
}

// WithStubbedBinaries writes stub executables for the provided names into a
// bin directory and points the matching tool entries at them. If names is
// empty, yt-dlp, ffmpeg, and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"yt-dlp", "ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			path := WriteScript(b.t, binDir, name, "exit 0\n")
			switch name {
			case "yt-dlp":
				b.cfg.Tools.YtDlp = path
			case "ffmpeg":
				b.cfg.Tools.FFmpeg = path
			case "ffprobe":
				b.cfg.Tools.FFprobe = path
			}
		}
	}
}

// WithPipeline mutates the pipeline section.
func WithPipeline(fn func(*config.Pipeline)) ConfigOption {
	return func(b *configBuilder) {
		fn(&b.cfg.Pipeline)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

// BinDir returns the directory used for stub executables, creating it.
func BinDir(t testing.TB, cfg *config.Config) string {
	t.Helper()
	dir := filepath.Join(BaseDir(cfg), "bin")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	return dir
}
