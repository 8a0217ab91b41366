package pipeline

import (
	"context"
	"path/filepath"

	"convrt/internal/encoding"
	"convrt/internal/events"
	"convrt/internal/history"
	"convrt/internal/services"
)

// EncodeRequest produces an AV1 archival copy of a local video.
type EncodeRequest struct {
	InputPath string `json:"inputPath"`
	// OutputDir defaults to paths.output_dir; the encode lands in <dir>/<runID>/.
	OutputDir string `json:"outputDir,omitempty"`
}

// Encode runs the archival encoder and returns the output path.
func (c *Coordinator) Encode(ctx context.Context, req EncodeRequest) (string, error) {
	r := c.begin(ctx, WorkflowEncode, req.InputPath)
	path, err := c.encode(r, req)
	r.finish(err, history.Completion{Output: path})
	return path, err
}

func (c *Coordinator) encode(r *run, req EncodeRequest) (string, error) {
	const op = "pipeline.encode"
	if c.encoder == nil {
		return "", services.New(services.KindValidation, op, "no encoder configured")
	}
	if err := requireInput(op, req.InputPath); err != nil {
		return "", err
	}
	dir, err := c.outputDir(op, req.OutputDir)
	if err != nil {
		return "", err
	}
	dir = filepath.Join(dir, r.id)

	ctx, cancel := withTimeout(r.ctx, c.cfg.EncodeTimeout())
	defer cancel()
	ctx = r.stage(ctx, "encode")

	lastPercent := -1
	progress := func(p encoding.Progress) {
		percent := int(p.Percent)
		if percent == lastPercent {
			return
		}
		lastPercent = percent
		r.publish(events.Event{Type: events.TypeStage, Stage: "encode", Message: p.Summary()})
	}
	return c.encoder.Encode(ctx, req.InputPath, dir, progress)
}
