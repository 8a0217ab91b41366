package encoding

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	draptolib "github.com/five82/drapto"

	"convrt/internal/logging"
	"convrt/internal/services"
)

// Encoder produces an archival copy of inputPath inside outputDir.
type Encoder interface {
	Encode(ctx context.Context, inputPath, outputDir string, progress func(Progress)) (string, error)
}

// Drapto implements Encoder with the Drapto Go library.
type Drapto struct {
	logger *slog.Logger
}

// NewDrapto constructs a Drapto encoder.
func NewDrapto(logger *slog.Logger) *Drapto {
	return &Drapto{logger: logging.NewComponentLogger(logger, "encoding")}
}

// OutputPath returns where an encode of inputPath into outputDir lands.
func OutputPath(inputPath, outputDir string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	return filepath.Join(strings.TrimSpace(outputDir), stem+".mkv")
}

// Encode runs the encode and returns the output path.
func (d *Drapto) Encode(ctx context.Context, inputPath, outputDir string, progress func(Progress)) (string, error) {
	const op = "encoding.drapto"
	if err := checkPaths(op, inputPath, outputDir); err != nil {
		return "", err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrFilesystem, op, "create output directory", err)
	}

	encoder, err := draptolib.New(draptolib.WithResponsive())
	if err != nil {
		return "", services.Wrap(services.ErrProcessSpawn, op, "initialise drapto", err)
	}

	logger := logging.WithContext(ctx, d.logger)
	logger.Info("drapto encode started",
		logging.String("input", inputPath),
		logging.String("output_dir", outputDir),
	)
	started := time.Now()
	rep := newReporter(logger, progress)
	if _, err := encoder.EncodeWithReporter(ctx, inputPath, outputDir, rep); err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
			return "", services.Canceled(op, ctxErr)
		}
		return "", &services.Error{
			Kind:    services.KindProcessExecution,
			Op:      op,
			Message: "drapto encode failed",
			Detail:  rep.lastIssue(),
			Err:     err,
		}
	}

	output := OutputPath(inputPath, outputDir)
	if _, err := os.Stat(output); err != nil {
		return "", services.Wrap(services.ErrFilesystem, op, "encoded output missing", err)
	}
	logger.Info("drapto encode complete",
		logging.String("output", output),
		logging.Duration("duration", time.Since(started)),
		logging.String(logging.FieldEventType, "encode_complete"),
	)
	return output, nil
}

func checkPaths(op, inputPath, outputDir string) error {
	if strings.TrimSpace(inputPath) == "" {
		return services.New(services.KindValidation, op, "input path required")
	}
	if strings.TrimSpace(outputDir) == "" {
		return services.New(services.KindValidation, op, "output directory required")
	}
	info, err := os.Stat(inputPath)
	if err != nil {
		return services.Wrap(services.ErrFilesystem, op, "stat input", err)
	}
	if info.IsDir() {
		return services.New(services.KindValidation, op, "input path is a directory")
	}
	return nil
}

var _ Encoder = (*Drapto)(nil)
