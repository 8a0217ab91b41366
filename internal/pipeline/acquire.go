package pipeline

import (
	"context"
	"path/filepath"

	"convrt/internal/history"
	"convrt/internal/process"
)

// AcquireRequest downloads a web video.
type AcquireRequest struct {
	URL string `json:"url"`
	// OutputDir defaults to paths.output_dir.
	OutputDir string `json:"outputDir,omitempty"`
}

// Acquire downloads req.URL to <dir>/video-<runID>.mp4 and returns the path.
func (c *Coordinator) Acquire(ctx context.Context, req AcquireRequest) (string, error) {
	r := c.begin(ctx, WorkflowAcquire, req.URL)
	path, err := c.acquire(r, req)
	r.finish(err, history.Completion{Output: path})
	return path, err
}

func (c *Coordinator) acquire(r *run, req AcquireRequest) (string, error) {
	const op = "pipeline.acquire"
	dir, err := c.outputDir(op, req.OutputDir)
	if err != nil {
		return "", err
	}
	prefix := "video-" + r.id
	output := filepath.Join(dir, prefix+".mp4")
	inv, err := process.FetchVideo(req.URL, output)
	if err != nil {
		return "", err
	}
	if err := ensureDir(op, dir); err != nil {
		return "", err
	}

	ctx := r.stage(r.ctx, "download")
	if _, err := r.exec(ctx, inv.WithTimeout(c.cfg.AcquireTimeout())); err != nil {
		r.discardPartial(dir, prefix)
		return "", err
	}

	r.stage(r.ctx, "verify")
	if err := requireOutput(op, output); err != nil {
		r.discardPartial(dir, prefix)
		return "", err
	}
	return output, nil
}
