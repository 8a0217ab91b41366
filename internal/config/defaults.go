package config

const (
	defaultConfigPath               = "~/.config/convrt/config.toml"
	defaultOutputDir                = "~/Videos/convrt"
	defaultAPIBind                  = "127.0.0.1:7489"
	defaultYtDlp                    = "yt-dlp"
	defaultFFmpeg                   = "ffmpeg"
	defaultFFprobe                  = "ffprobe"
	defaultModel                    = "base"
	defaultModelBaseURL             = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"
	defaultModelUserAgent           = "convrt/dev"
	defaultModelDownloadTimeout     = 2700
	defaultTranscriptionLanguage    = "auto"
	defaultAcquireTimeoutSeconds    = 1800
	defaultTranscodeTimeoutSeconds  = 1800
	defaultTranscribeTimeoutSeconds = 3600
	defaultEncodeTimeoutSeconds     = 6 * 3600
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"

	modelsDirName   = "whisper_models"
	historyFileName = "history.db"
	workDirName     = "work"
	logDirName      = "logs"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir(),
			OutputDir: defaultOutputDir,
			APIBind:   defaultAPIBind,
		},
		Tools: Tools{
			YtDlp:   defaultYtDlp,
			FFmpeg:  defaultFFmpeg,
			FFprobe: defaultFFprobe,
		},
		Models: Models{
			Default:                defaultModel,
			BaseURL:                defaultModelBaseURL,
			UserAgent:              defaultModelUserAgent,
			DownloadTimeoutSeconds: defaultModelDownloadTimeout,
		},
		Transcription: Transcription{
			Language: defaultTranscriptionLanguage,
		},
		Pipeline: Pipeline{
			AcquireTimeoutSeconds:    defaultAcquireTimeoutSeconds,
			TranscodeTimeoutSeconds:  defaultTranscodeTimeoutSeconds,
			TranscribeTimeoutSeconds: defaultTranscribeTimeoutSeconds,
			EncodeTimeoutSeconds:     defaultEncodeTimeoutSeconds,
			VerifyOutputs:            true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
