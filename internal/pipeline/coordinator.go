package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"convrt/internal/config"
	"convrt/internal/encoding"
	"convrt/internal/events"
	"convrt/internal/history"
	"convrt/internal/logging"
	"convrt/internal/media/wav"
	"convrt/internal/modelcache"
	"convrt/internal/process"
	"convrt/internal/transcription"
)

// ModelResolver maps a model name to a local file, downloading when needed.
type ModelResolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// Transcriber runs inference over decoded audio.
type Transcriber interface {
	Transcribe(ctx context.Context, modelPath string, req transcription.Request) (transcription.Result, error)
}

// Recorder persists run lifecycle. *history.Store satisfies it.
type Recorder interface {
	Begin(ctx context.Context, id, workflow, input string) (*history.Run, error)
	Finish(ctx context.Context, id string, done history.Completion) error
}

// Dependencies wires the coordinator's collaborators. Runner, Models, and
// Transcriber are required; the rest are optional.
type Dependencies struct {
	Runner      process.Runner
	Models      ModelResolver
	Transcriber Transcriber
	Encoder     encoding.Encoder
	History     Recorder
	Events      events.Publisher
	Logger      *slog.Logger
	// NewRunID overrides run ID generation in tests.
	NewRunID func() string
}

// Coordinator runs workflows.
type Coordinator struct {
	cfg         *config.Config
	runner      process.Runner
	models      ModelResolver
	transcriber Transcriber
	encoder     encoding.Encoder
	history     Recorder
	events      events.Publisher
	logger      *slog.Logger
	decoder     wav.Decoder
	newRunID    func() string
}

// New constructs a coordinator from explicit collaborators.
func New(cfg *config.Config, deps Dependencies) (*Coordinator, error) {
	if cfg == nil {
		return nil, errors.New("pipeline: config is required")
	}
	if deps.Runner == nil {
		return nil, errors.New("pipeline: process runner is required")
	}
	if deps.Models == nil {
		return nil, errors.New("pipeline: model resolver is required")
	}
	if deps.Transcriber == nil {
		return nil, errors.New("pipeline: transcriber is required")
	}
	newRunID := deps.NewRunID
	if newRunID == nil {
		newRunID = uuid.NewString
	}
	return &Coordinator{
		cfg:         cfg,
		runner:      deps.Runner,
		models:      deps.Models,
		transcriber: deps.Transcriber,
		encoder:     deps.Encoder,
		history:     deps.History,
		events:      deps.Events,
		logger:      logging.NewComponentLogger(deps.Logger, "pipeline"),
		decoder:     wav.Decoder{Tolerant: cfg.Transcription.TolerantDecode},
		newRunID:    newRunID,
	}, nil
}

// NewFromConfig wires the production collaborators: the process
// orchestrator, the on-disk model cache, the default inference engine, and
// the Drapto encoder. A nil cache is built from cfg; store and bus may be nil.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, cache *modelcache.Cache, store *history.Store, bus *events.Bus) (*Coordinator, error) {
	if cache == nil {
		var err error
		if cache, err = modelcache.NewFromConfig(cfg, logger, nil); err != nil {
			return nil, err
		}
	}
	deps := Dependencies{
		Runner:      process.NewFromConfig(cfg, logger),
		Models:      cache,
		Transcriber: transcription.NewAdapter(nil, logger),
		Encoder:     encoding.NewDrapto(logger),
		Logger:      logger,
	}
	if store != nil {
		deps.History = store
	}
	if bus != nil {
		deps.Events = bus
	}
	return New(cfg, deps)
}
