package transcription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"convrt/internal/language"
	"convrt/internal/logging"
	"convrt/internal/media/wav"
	"convrt/internal/services"
)

// Request is one transcription job.
type Request struct {
	Audio wav.Buffer
	// Language hint; empty or "auto" requests detection.
	Language  string
	Translate bool
}

// Result is the assembled transcript.
type Result struct {
	Text             string        `json:"text"`
	DetectedLanguage string        `json:"detectedLanguage,omitempty"`
	Segments         []Segment     `json:"segments"`
	Duration         time.Duration `json:"-"`
}

// Adapter drives an engine for one request at a time per call.
type Adapter struct {
	loader Loader
	logger *slog.Logger
}

// NewAdapter constructs an adapter. A nil loader selects the default engine.
func NewAdapter(loader Loader, logger *slog.Logger) *Adapter {
	if loader == nil {
		loader = DefaultLoader()
	}
	return &Adapter{loader: loader, logger: logging.NewComponentLogger(logger, "transcription")}
}

// Transcribe loads the model at modelPath, runs inference over req.Audio, and
// joins the emitted segments with single spaces.
func (a *Adapter) Transcribe(ctx context.Context, modelPath string, req Request) (Result, error) {
	const op = "transcription.transcribe"
	logger := logging.WithContext(ctx, a.logger)

	if err := req.Audio.Validate(); err != nil {
		return Result{}, err
	}
	if len(req.Audio.Samples) == 0 {
		return Result{}, services.New(services.KindFormatValidation, op, "audio contains no samples")
	}
	hint, err := language.NormalizeHint(req.Language)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, op, "language hint", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, services.Canceled(op, err)
	}

	started := time.Now()
	model, err := a.load(modelPath)
	if err != nil {
		return Result{}, err
	}
	defer closeQuietly(logger, "model", model)

	state, err := model.NewState()
	if err != nil {
		return Result{}, services.Wrap(services.ErrInference, op, "create inference state", err)
	}
	defer closeQuietly(logger, "state", state)

	if err := state.Configure(Params{Language: hint, Translate: req.Translate}); err != nil {
		return Result{}, services.Wrap(services.ErrInference, op, "configure inference", err)
	}
	if err := state.Process(ctx, req.Audio.Samples); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, aborted(op, ctxErr)
		}
		return Result{}, services.Wrap(services.ErrInference, op, "run inference", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, aborted(op, err)
	}

	segments, err := collectSegments(state)
	if err != nil {
		return Result{}, services.Wrap(services.ErrInference, op, "read segments", err)
	}

	result := Result{
		Text:     joinSegments(segments),
		Segments: segments,
		Duration: time.Since(started),
	}
	if detected, err := state.DetectedLanguage(); err == nil {
		result.DetectedLanguage = strings.TrimSpace(detected)
	} else {
		logger.Debug("language detection unavailable", logging.Error(err))
	}

	logger.Info("transcription complete",
		logging.Int("segments", len(segments)),
		logging.String("detected_language", result.DetectedLanguage),
		logging.Duration("duration", result.Duration),
		logging.String(logging.FieldEventType, "transcription_complete"),
	)
	return result, nil
}

func (a *Adapter) load(modelPath string) (Model, error) {
	const op = "transcription.load"
	if strings.TrimSpace(modelPath) == "" {
		return nil, services.New(services.KindModelLoad, op, "model path is empty")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, services.Wrap(services.ErrModelLoad, op, fmt.Sprintf("model file %s", modelPath), err)
	}
	model, err := a.loader.Load(modelPath)
	if err != nil {
		if kind, ok := services.KindOf(err); ok && kind == services.KindModelLoad {
			return nil, err
		}
		return nil, services.Wrap(services.ErrModelLoad, op, fmt.Sprintf("load %s", modelPath), err)
	}
	if model == nil {
		return nil, services.New(services.KindModelLoad, op, "engine returned no model")
	}
	return model, nil
}

// aborted reports cancellation during inference as an inference failure that
// still unwraps to the context error.
func aborted(op string, ctxErr error) error {
	return &services.Error{Kind: services.KindInference, Op: op, Message: "inference aborted", Err: ctxErr}
}

func collectSegments(state State) ([]Segment, error) {
	var segments []Segment
	for {
		segment, err := state.NextSegment()
		if errors.Is(err, io.EOF) {
			return segments, nil
		}
		if err != nil {
			return nil, err
		}
		segment.Index = len(segments)
		segments = append(segments, segment)
	}
}

func joinSegments(segments []Segment) string {
	texts := make([]string, 0, len(segments))
	for _, segment := range segments {
		texts = append(texts, segment.Text)
	}
	return strings.TrimSpace(strings.Join(texts, " "))
}

func closeQuietly(logger *slog.Logger, what string, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Debug("release failed", logging.String("resource", what), logging.Error(err))
	}
}
