package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"convrt/internal/config"
	"convrt/internal/events"
	"convrt/internal/history"
	"convrt/internal/logging"
	"convrt/internal/process"
	"convrt/internal/services"
	"convrt/internal/textutil"
)

// Workflow names recorded in history and events.
const (
	WorkflowAcquire    = "acquire"
	WorkflowTranscribe = "transcribe"
	WorkflowTrim       = "trim"
	WorkflowEncode     = "encode"
)

// run tracks one workflow execution.
type run struct {
	c        *Coordinator
	id       string
	workflow string
	ctx      context.Context
	logger   *slog.Logger
	started  time.Time

	failedInv    *process.Invocation
	failedResult process.Result
}

func (c *Coordinator) begin(ctx context.Context, workflow, input string) *run {
	id := c.newRunID()
	ctx = services.WithRunID(ctx, id)
	ctx = services.WithWorkflow(ctx, workflow)
	r := &run{
		c:        c,
		id:       id,
		workflow: workflow,
		ctx:      ctx,
		logger:   logging.WithContext(ctx, c.logger),
		started:  time.Now(),
	}
	if c.history != nil {
		if _, err := c.history.Begin(ctx, id, workflow, input); err != nil {
			logging.WarnWithContext(r.logger, "history record not created", "history_begin_failed",
				logging.String(logging.FieldImpact, "run will be missing from history"),
				logging.Error(err),
			)
		}
	}
	r.logger.Info("run started",
		logging.String("input", input),
		logging.String(logging.FieldEventType, "run_start"),
	)
	return r
}

// stage annotates ctx with a step name and announces it.
func (r *run) stage(ctx context.Context, name string) context.Context {
	ctx = services.WithStage(ctx, name)
	r.publish(events.Event{Type: events.TypeStage, Stage: name})
	logging.WithContext(ctx, r.c.logger).Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))
	return ctx
}

// exec runs inv and remembers the failing invocation for the run's error event.
func (r *run) exec(ctx context.Context, inv process.Invocation) (process.Result, error) {
	result, err := r.c.runner.Run(ctx, inv)
	if err != nil {
		r.failedInv = &inv
		r.failedResult = result
	}
	return result, err
}

// discardPartial removes files in dir whose names start with prefix. Tools
// killed or failing mid-write leave partial outputs (yt-dlp also leaves .part
// and per-format fragments) named after the run.
func (r *run) discardPartial(dir, prefix string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.WarnWithContext(r.logger, "partial output not removed", "partial_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "a partial file remains in the output directory"),
			)
			continue
		}
		r.logger.Debug("partial output removed", logging.String("path", path))
	}
}

func (r *run) publish(evt events.Event) {
	if r.c.events == nil {
		return
	}
	evt.RunID = r.id
	evt.Workflow = r.workflow
	r.c.events.Publish(evt)
}

// finish records the outcome of the run. done carries the success fields.
func (r *run) finish(err error, done history.Completion) {
	elapsed := time.Since(r.started)
	switch {
	case err == nil:
		done.Status = history.StatusSucceeded
		r.logger.Info("run completed",
			logging.String("output", done.Output),
			logging.Duration("duration", elapsed),
			logging.String(logging.FieldEventType, "run_complete"),
		)
		r.publish(events.Event{
			Type:       events.TypeResult,
			OutputPath: done.Output,
			Message:    done.Transcript,
		})
	default:
		kind, _ := services.KindOf(err)
		done = history.Completion{
			Status:       history.StatusFailed,
			ErrorKind:    kind.String(),
			ErrorMessage: err.Error(),
		}
		if kind == services.KindCanceled {
			done.Status = history.StatusCanceled
		}
		attrs := append(logging.FailureAttrs(err), logging.Duration("duration", elapsed))
		logging.ErrorWithContext(r.logger, "run failed", "run_failed", attrs...)
		evt := events.Event{
			Type:      events.TypeError,
			Message:   err.Error(),
			ErrorKind: kind.String(),
			Stderr:    services.Detail(err),
		}
		if r.failedInv != nil {
			evt.Command = r.failedResult.Command
			evt.Args = r.failedInv.Args()
			evt.ExitCode = r.failedResult.ExitCode
			evt.Stderr = string(r.failedResult.Stderr)
		}
		r.publish(evt)
	}

	if r.c.history == nil {
		return
	}
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(r.ctx), 5*time.Second)
	defer cancel()
	if herr := r.c.history.Finish(recordCtx, r.id, done); herr != nil {
		r.logger.Warn("history record not updated",
			logging.Error(herr),
			logging.String(logging.FieldEventType, "history_finish_failed"),
			logging.String(logging.FieldImpact, "run status in history may be stale"),
		)
	}
}

// outputDir resolves the directory final artifacts land in.
func (c *Coordinator) outputDir(op, requested string) (string, error) {
	dir := strings.TrimSpace(requested)
	if dir == "" {
		dir = c.cfg.Paths.OutputDir
	}
	if dir == "" {
		return "", services.New(services.KindValidation, op, "output directory is required")
	}
	expanded, err := config.ExpandPath(dir)
	if err != nil {
		return "", services.Wrap(services.ErrFilesystem, op, "resolve output directory", err)
	}
	return expanded, nil
}

func ensureDir(op, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrFilesystem, op, "create output directory", err)
	}
	return nil
}

// requireInput checks that path names an existing regular file.
func requireInput(op, path string) error {
	if strings.TrimSpace(path) == "" {
		return services.New(services.KindValidation, op, "input path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrFilesystem, op, "open input", err)
	}
	if info.IsDir() {
		return services.New(services.KindValidation, op, "input path is a directory: "+path)
	}
	return nil
}

// requireOutput checks that a tool which reported success produced a file.
func requireOutput(op, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.New(services.KindFilesystem, op, "tool reported success but produced no file at "+path)
		}
		return services.Wrap(services.ErrFilesystem, op, "stat output", err)
	}
	if info.Size() == 0 {
		return services.New(services.KindFilesystem, op, "output file is empty: "+path)
	}
	return nil
}

// stem names derived artifacts after their source file.
func stem(path string) string {
	base := filepath.Base(path)
	return textutil.SafeStem(strings.TrimSuffix(base, filepath.Ext(base)), "media")
}

func withTimeout(ctx context.Context, limit time.Duration) (context.Context, context.CancelFunc) {
	if limit <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, limit)
}
