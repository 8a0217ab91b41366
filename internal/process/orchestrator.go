package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"convrt/internal/config"
	"convrt/internal/logging"
	"convrt/internal/services"
)

const defaultWaitDelay = 5 * time.Second

// Runner is the behaviour the pipeline needs from the orchestrator.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (Result, error)
}

// Orchestrator spawns tool invocations.
type Orchestrator struct {
	executables map[Tool]string
	logger      *slog.Logger
	waitDelay   time.Duration
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithExecutable overrides the executable used for tool.
func WithExecutable(tool Tool, path string) Option {
	return func(o *Orchestrator) {
		if strings.TrimSpace(path) != "" {
			o.executables[tool] = strings.TrimSpace(path)
		}
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithWaitDelay bounds how long Wait keeps reading output after the child was killed.
func WithWaitDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.waitDelay = d
		}
	}
}

// New constructs an orchestrator that resolves every tool from PATH unless overridden.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		executables: map[Tool]string{
			ToolYtDlp:   string(ToolYtDlp),
			ToolFFmpeg:  string(ToolFFmpeg),
			ToolFFprobe: string(ToolFFprobe),
		},
		logger:    logging.NewNop(),
		waitDelay: defaultWaitDelay,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "process")
	return o
}

// NewFromConfig resolves executables from the [tools] section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Orchestrator {
	return New(
		WithExecutable(ToolYtDlp, cfg.Tools.YtDlp),
		WithExecutable(ToolFFmpeg, cfg.Tools.FFmpeg),
		WithExecutable(ToolFFprobe, cfg.Tools.FFprobe),
		WithLogger(logger),
	)
}

// Executable returns the configured executable for tool.
func (o *Orchestrator) Executable(tool Tool) string {
	return o.executables[tool]
}

// Run executes inv to completion. Standard error lines are forwarded to the
// debug log while the child runs.
func (o *Orchestrator) Run(ctx context.Context, inv Invocation) (Result, error) {
	handle, err := o.Start(ctx, inv)
	if err != nil {
		return Result{Command: o.executables[inv.Tool()], Args: inv.Args()}, err
	}
	logger := logging.WithContext(ctx, o.logger)
	go func() {
		for line := range handle.Lines() {
			logger.Debug(line, logging.String("tool", string(inv.Tool())))
		}
	}()
	return handle.Wait()
}

// Start spawns inv and returns immediately. The caller must call Wait.
func (o *Orchestrator) Start(ctx context.Context, inv Invocation) (*Handle, error) {
	op := "process." + string(inv.Tool())
	if !inv.Tool().Known() {
		return nil, services.New(services.KindValidation, op, "invocation was not built by a process constructor")
	}
	binary := o.executables[inv.Tool()]
	if err := ctx.Err(); err != nil {
		return nil, services.Canceled(op, err)
	}

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if inv.Timeout() > 0 {
		runCtx, cancel = context.WithTimeout(ctx, inv.Timeout())
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}

	args := inv.Args()
	cmd := exec.CommandContext(runCtx, binary, args...)
	configureProcessGroup(cmd)
	cmd.WaitDelay = o.waitDelay

	stdout := &bytes.Buffer{}
	stderr := newLineWriter()
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	logger := logging.WithContext(ctx, o.logger)
	started := time.Now()
	if err := cmd.Start(); err != nil {
		cancel()
		stderr.close()
		logger.Error("process spawn failed",
			logging.String("command", binary),
			logging.String("tool", string(inv.Tool())),
			logging.Error(err),
		)
		return nil, &services.Error{
			Kind:    services.KindProcessSpawn,
			Op:      op,
			Message: fmt.Sprintf("start %s", binary),
			Err:     err,
		}
	}
	logger.Info("process started",
		logging.String("tool", string(inv.Tool())),
		logging.String("command", binary),
		logging.Any("args", args),
		logging.Int("pid", cmd.Process.Pid),
	)

	return &Handle{
		op:      op,
		inv:     inv,
		binary:  binary,
		cmd:     cmd,
		ctx:     runCtx,
		cancel:  cancel,
		stdout:  stdout,
		stderr:  stderr,
		started: started,
		logger:  logger,
	}, nil
}

// Handle tracks a running child process.
type Handle struct {
	op      string
	inv     Invocation
	binary  string
	cmd     *exec.Cmd
	ctx     context.Context
	cancel  context.CancelFunc
	stdout  *bytes.Buffer
	stderr  *lineWriter
	started time.Time
	logger  *slog.Logger

	once   sync.Once
	result Result
	err    error
}

// PID returns the child's process id.
func (h *Handle) PID() int {
	return h.cmd.Process.Pid
}

// Lines streams standard error line by line; the channel closes when the
// child exits.
func (h *Handle) Lines() <-chan string {
	return h.stderr.lines
}

// Cancel terminates the child and its process group.
func (h *Handle) Cancel() {
	h.cancel()
}

// Wait blocks until the child exits. Repeated calls return the same outcome.
func (h *Handle) Wait() (Result, error) {
	h.once.Do(h.wait)
	return h.result, h.err
}

func (h *Handle) wait() {
	waitErr := h.cmd.Wait()
	h.stderr.close()
	ctxErr := h.ctx.Err()
	h.cancel()

	result := Result{
		Stdout:   bytes.Clone(h.stdout.Bytes()),
		Stderr:   h.stderr.bytes(),
		ExitCode: exitCode(h.cmd),
		Duration: time.Since(h.started),
		Command:  h.binary,
		Args:     h.inv.Args(),
	}

	switch {
	case waitErr == nil:
		result.Succeeded = true
		result.OutputPath = h.inv.OutputPath()
		h.logger.Info("process completed",
			logging.String("tool", string(h.inv.Tool())),
			logging.Duration("duration", result.Duration),
			logging.String("output", result.OutputPath),
		)
	case errors.Is(ctxErr, context.DeadlineExceeded):
		result.TimedOut = true
		h.err = &services.Error{
			Kind:     services.KindProcessExecution,
			Op:       h.op,
			Message:  timeoutMessage(h.binary, h.inv.Timeout()),
			Detail:   string(result.Stderr),
			ExitCode: result.ExitCode,
			Err:      context.DeadlineExceeded,
		}
	case ctxErr != nil:
		h.err = services.Canceled(h.op, ctxErr)
	default:
		h.err = &services.Error{
			Kind:     services.KindProcessExecution,
			Op:       h.op,
			Message:  fmt.Sprintf("%s exited with status %d", h.binary, result.ExitCode),
			Detail:   string(result.Stderr),
			ExitCode: result.ExitCode,
			Err:      waitErr,
		}
	}
	if h.err != nil {
		h.logger.Warn("process failed",
			logging.String("tool", string(h.inv.Tool())),
			logging.Int("exit_code", result.ExitCode),
			logging.Duration("duration", result.Duration),
			logging.Bool("timed_out", result.TimedOut),
			logging.String(logging.FieldEventType, "process_failed"),
			logging.String(logging.FieldErrorHint, services.Hint(kindOf(h.err))),
		)
	}
	h.result = result
}

func timeoutMessage(binary string, limit time.Duration) string {
	if limit > 0 {
		return fmt.Sprintf("%s timed out after %s", binary, limit)
	}
	return binary + " timed out"
}

func exitCode(cmd *exec.Cmd) int {
	if cmd.ProcessState == nil {
		return -1
	}
	return cmd.ProcessState.ExitCode()
}

func kindOf(err error) services.Kind {
	kind, _ := services.KindOf(err)
	return kind
}
