package encoding

import (
	"log/slog"
	"strings"
	"sync"

	draptolib "github.com/five82/drapto"

	"convrt/internal/logging"
)

// reporter adapts Drapto's Reporter callbacks to Progress updates and log lines.
type reporter struct {
	logger   *slog.Logger
	progress func(Progress)

	mu    sync.Mutex
	issue string
}

func newReporter(logger *slog.Logger, progress func(Progress)) *reporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &reporter{logger: logger, progress: progress}
}

func (r *reporter) emit(p Progress) {
	if r.progress != nil {
		r.progress(p)
	}
}

func (r *reporter) lastIssue() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.issue
}

func (r *reporter) Hardware(s draptolib.HardwareSummary) {
	r.logger.Debug("drapto hardware", logging.Any("hostname", s.Hostname))
}

func (r *reporter) Initialization(s draptolib.InitializationSummary) {
	r.logger.Info("drapto input analysed",
		logging.Any("input", s.InputFile),
		logging.Any("resolution", s.Resolution),
		logging.Any("dynamic_range", s.DynamicRange),
		logging.Any("audio", s.AudioDescription),
	)
}

func (r *reporter) StageProgress(s draptolib.StageProgress) {
	p := Progress{Stage: s.Stage, Percent: float64(s.Percent), Message: s.Message}
	if s.ETA != nil {
		p.ETA = *s.ETA
	}
	r.emit(p)
}

func (r *reporter) CropResult(s draptolib.CropSummary) {
	r.logger.Info("drapto crop detection",
		logging.Any("crop", s.Crop),
		logging.Any("required", s.Required),
		logging.Any("disabled", s.Disabled),
	)
}

func (r *reporter) EncodingConfig(s draptolib.EncodingConfigSummary) {
	r.logger.Info("drapto encoding config",
		logging.Any("encoder", s.Encoder),
		logging.Any("preset", s.Preset),
		logging.Any("quality", s.Quality),
		logging.Any("audio_codec", s.AudioCodec),
	)
}

func (r *reporter) EncodingStarted(totalFrames uint64) {
	r.emit(Progress{Stage: "encoding", Percent: 0})
	r.logger.Debug("drapto encoding started", logging.Int64("total_frames", int64(totalFrames)))
}

func (r *reporter) EncodingProgress(s draptolib.ProgressSnapshot) {
	r.emit(Progress{
		Stage:   "encoding",
		Percent: float64(s.Percent),
		ETA:     s.ETA,
		Speed:   float64(s.Speed),
		FPS:     float64(s.FPS),
	})
}

func (r *reporter) ValidationComplete(s draptolib.ValidationSummary) {
	failed := make([]string, 0)
	for _, step := range s.Steps {
		if !step.Passed {
			failed = append(failed, step.Name+": "+step.Details)
		}
	}
	if !s.Passed {
		r.setIssue("validation failed: " + strings.Join(failed, "; "))
	}
	r.logger.Info("drapto validation", logging.Bool("passed", s.Passed), logging.Int("failed_steps", len(failed)))
}

func (r *reporter) EncodingComplete(s draptolib.EncodingOutcome) {
	r.emit(Progress{Stage: "complete", Percent: 100})
	r.logger.Info("drapto encoding outcome",
		logging.Any("output", s.OutputPath),
		logging.Int64("original_size", int64(s.OriginalSize)),
		logging.Int64("encoded_size", int64(s.EncodedSize)),
	)
}

func (r *reporter) Warning(message string) {
	r.logger.Warn("drapto warning", logging.String("detail", message))
}

func (r *reporter) Error(e draptolib.ReporterError) {
	r.setIssue(strings.TrimSpace(e.Title + ": " + e.Message))
	r.logger.Error("drapto error",
		logging.String("title", e.Title),
		logging.String("detail", e.Message),
		logging.String(logging.FieldErrorHint, e.Suggestion),
	)
}

func (r *reporter) OperationComplete(message string) {
	r.logger.Debug("drapto operation complete", logging.String("detail", message))
}

func (r *reporter) BatchStarted(s draptolib.BatchStartInfo) {
	r.logger.Debug("drapto batch started", logging.Any("files", s.TotalFiles))
}

func (r *reporter) FileProgress(s draptolib.FileProgressContext) {
	r.logger.Debug("drapto file progress", logging.Any("current", s.CurrentFile), logging.Any("total", s.TotalFiles))
}

func (r *reporter) BatchComplete(s draptolib.BatchSummary) {
	r.logger.Debug("drapto batch complete", logging.Any("successful", s.SuccessfulCount), logging.Any("total", s.TotalFiles))
}

func (r *reporter) setIssue(issue string) {
	r.mu.Lock()
	r.issue = issue
	r.mu.Unlock()
}

var _ draptolib.Reporter = (*reporter)(nil)
