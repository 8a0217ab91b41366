package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
	// APIToken, when set, is required as a bearer token on bridge requests.
	APIToken  string `toml:"api_token"`
}

// Tools names the sidecar executables invoked as child processes.
type Tools struct {
	YtDlp   string `toml:"ytdlp"`
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Models contains acoustic model cache settings.
type Models struct {
	Default                string `toml:"default"`
	BaseURL                string `toml:"base_url"`
	UserAgent              string `toml:"user_agent"`
	DownloadTimeoutSeconds int    `toml:"download_timeout_seconds"`
}

// Transcription contains inference defaults applied when a request leaves them unset.
type Transcription struct {
	Language       string `toml:"language"`
	Translate      bool   `toml:"translate"`
	TolerantDecode bool   `toml:"tolerant_decode"`
}

// Pipeline contains per-workflow timeouts and artifact handling.
type Pipeline struct {
	AcquireTimeoutSeconds    int  `toml:"acquire_timeout_seconds"`
	TranscodeTimeoutSeconds  int  `toml:"transcode_timeout_seconds"`
	TranscribeTimeoutSeconds int  `toml:"transcribe_timeout_seconds"`
	EncodeTimeoutSeconds     int  `toml:"encode_timeout_seconds"`
	VerifyOutputs            bool `toml:"verify_outputs"`
	KeepWorkDirs             bool `toml:"keep_work_dirs"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for convrt.
//
// Configuration sections by subsystem:
//   - Paths: data root (model cache, history, work dirs), outputs, logs, bridge bind address
//   - Tools: yt-dlp, ffmpeg, and ffprobe executables
//   - Models: model cache source and download limits
//   - Transcription: default language, translation, and WAV decode tolerance
//   - Pipeline: workflow timeouts and artifact retention
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Tools         Tools         `toml:"tools"`
	Models        Models        `toml:"models"`
	Transcription Transcription `toml:"transcription"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("convrt.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the application-owned directories.
// The output directory is created on a best-effort basis since it may live on
// removable storage.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.ModelsDir(), c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		_ = os.MkdirAll(c.Paths.OutputDir, 0o755)
	}
	return nil
}

// ModelsDir returns the acoustic model cache directory.
func (c *Config) ModelsDir() string {
	return filepath.Join(c.Paths.DataDir, modelsDirName)
}

// HistoryPath returns the run history database location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.DataDir, historyFileName)
}

// DownloadTimeout bounds a single model download.
func (c *Config) DownloadTimeout() time.Duration {
	return seconds(c.Models.DownloadTimeoutSeconds)
}

// AcquireTimeout bounds the video fetch workflow.
func (c *Config) AcquireTimeout() time.Duration {
	return seconds(c.Pipeline.AcquireTimeoutSeconds)
}

// TranscodeTimeout bounds one trim/transcode invocation.
func (c *Config) TranscodeTimeout() time.Duration {
	return seconds(c.Pipeline.TranscodeTimeoutSeconds)
}

// TranscribeTimeout bounds the whole transcribe workflow, model download excluded.
func (c *Config) TranscribeTimeout() time.Duration {
	return seconds(c.Pipeline.TranscribeTimeoutSeconds)
}

// EncodeTimeout bounds one AV1 archival encode.
func (c *Config) EncodeTimeout() time.Duration {
	return seconds(c.Pipeline.EncodeTimeoutSeconds)
}

func seconds(value int) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// defaultDataDir is the application-owned local-data root.
func defaultDataDir() string {
	if base, ok := os.LookupEnv("XDG_DATA_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "convrt")
	}
	return "~/.local/share/convrt"
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
