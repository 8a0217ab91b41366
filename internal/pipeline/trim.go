package pipeline

import (
	"context"
	"math"
	"path/filepath"
	"time"

	"convrt/internal/history"
	"convrt/internal/logging"
	"convrt/internal/media/ffprobe"
	"convrt/internal/process"
)

// TrimRequest cuts a clip out of a local video and re-encodes it.
type TrimRequest struct {
	InputPath string          `json:"inputPath"`
	Start     time.Duration   `json:"start"`
	Duration  time.Duration   `json:"duration"`
	Format    process.Format  `json:"format,omitempty"`
	Crop      process.Crop    `json:"crop,omitempty"`
	Quality   process.Quality `json:"quality,omitempty"`
	// OutputDir defaults to paths.output_dir.
	OutputDir string `json:"outputDir,omitempty"`
}

// durationTolerance is how far a probed clip may drift from the request
// before a warning is logged.
const durationTolerance = 1.0

// containerNames maps output formats to the ffprobe format family name.
var containerNames = map[process.Format]string{
	process.FormatMP4:  "mp4",
	process.FormatMOV:  "mov",
	process.FormatWebM: "webm",
	process.FormatMKV:  "matroska",
	process.FormatGIF:  "gif",
}

// Trim writes <dir>/<stem>-trim-<runID>.<ext> and returns its path.
func (c *Coordinator) Trim(ctx context.Context, req TrimRequest) (string, error) {
	r := c.begin(ctx, WorkflowTrim, req.InputPath)
	path, err := c.trim(r, req)
	r.finish(err, history.Completion{Output: path})
	return path, err
}

func (c *Coordinator) trim(r *run, req TrimRequest) (string, error) {
	const op = "pipeline.trim"
	// Unparseable values are left for Transcode to reject.
	if format, err := process.ParseFormat(string(req.Format)); err == nil {
		req.Format = format
	}
	if crop, err := process.ParseCrop(string(req.Crop)); err == nil {
		req.Crop = crop
	}
	if quality, err := process.ParseQuality(string(req.Quality)); err == nil {
		req.Quality = quality
	}
	dir, err := c.outputDir(op, req.OutputDir)
	if err != nil {
		return "", err
	}
	prefix := stem(req.InputPath) + "-trim-" + r.id
	output := filepath.Join(dir, prefix+req.Format.Extension())
	inv, err := process.Transcode(process.TrimSpec{
		InputPath:  req.InputPath,
		OutputPath: output,
		Start:      req.Start,
		Duration:   req.Duration,
		Format:     req.Format,
		Crop:       req.Crop,
		Quality:    req.Quality,
	})
	if err != nil {
		return "", err
	}
	if err := requireInput(op, req.InputPath); err != nil {
		return "", err
	}
	if err := ensureDir(op, dir); err != nil {
		return "", err
	}

	ctx := r.stage(r.ctx, "transcode")
	if _, err := r.exec(ctx, inv.WithTimeout(c.cfg.TranscodeTimeout())); err != nil {
		r.discardPartial(dir, prefix)
		return "", err
	}
	if err := requireOutput(op, output); err != nil {
		r.discardPartial(dir, prefix)
		return "", err
	}

	if c.cfg.Pipeline.VerifyOutputs {
		c.verifyClip(r.stage(r.ctx, "verify"), r, output, req)
	}
	return output, nil
}

// verifyClip probes the written clip. Mismatches are logged, not returned:
// the clip exists and the transcode reported success.
func (c *Coordinator) verifyClip(ctx context.Context, r *run, path string, req TrimRequest) {
	probe, err := ffprobe.Inspect(ctx, c.runner, path)
	if err != nil {
		logging.WarnWithContext(r.logger, "clip verification skipped", "trim_verify_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "clip was not checked"),
			logging.String(logging.FieldErrorHint, "check that ffprobe is installed"),
		)
		return
	}
	if name := containerNames[req.Format]; name != "" && !probe.HasFormat(name) {
		logging.WarnWithContext(r.logger, "clip container differs from request", "trim_container_mismatch",
			logging.String("expected", name),
			logging.String("probed", probe.Format.FormatName),
			logging.String(logging.FieldImpact, "clip may not play where the requested format is expected"),
		)
	}
	if got := probe.DurationSeconds(); got > 0 && math.Abs(got-req.Duration.Seconds()) > durationTolerance {
		logging.WarnWithContext(r.logger, "clip duration differs from request", "trim_duration_mismatch",
			logging.Any("expected_seconds", req.Duration.Seconds()),
			logging.Any("probed_seconds", got),
			logging.String(logging.FieldImpact, "input may be shorter than the requested range"),
		)
	}
	r.logger.Info("clip verified", logging.String("summary", probe.Summary()))
}
