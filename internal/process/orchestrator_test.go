package process_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
	"time"

	"convrt/internal/process"
	"convrt/internal/services"
)

func writeStub(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func mustExtract(t *testing.T, output string) process.Invocation {
	t.Helper()
	inv, err := process.ExtractAudio("/tmp/in.mp4", output)
	if err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	return inv
}

func TestRunSuccessReturnsOutputPathWithoutChecking(t *testing.T) {
	stub := writeStub(t, `echo "out:$*"; echo "progress" >&2; exit 0`)
	orch := process.New(process.WithExecutable(process.ToolFFmpeg, stub))

	output := filepath.Join(t.TempDir(), "never-written.wav")
	result, err := orch.Run(context.Background(), mustExtract(t, output))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !result.Succeeded {
		t.Fatal("expected success")
	}
	if result.OutputPath != output {
		t.Fatalf("unexpected output path %q", result.OutputPath)
	}
	if !strings.HasPrefix(string(result.Stdout), "out:-hide_banner") {
		t.Fatalf("expected args echoed on stdout, got %q", result.Stdout)
	}
	if string(result.Stderr) != "progress\n" {
		t.Fatalf("unexpected stderr %q", result.Stderr)
	}
	if result.ExitCode != 0 {
		t.Fatalf("unexpected exit code %d", result.ExitCode)
	}
	if result.Command != stub || !slices.Contains(result.Args, "pcm_f32le") {
		t.Fatalf("expected command and args recorded, got %q %v", result.Command, result.Args)
	}
}

func TestRunNonZeroExitCarriesStderrVerbatim(t *testing.T) {
	stub := writeStub(t, `printf 'Invalid data found when processing input\n  at frame 0\n' >&2; exit 3`)
	orch := process.New(process.WithExecutable(process.ToolFFmpeg, stub))

	result, err := orch.Run(context.Background(), mustExtract(t, filepath.Join(t.TempDir(), "a.wav")))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrProcessExecution) {
		t.Fatalf("expected process execution error, got %v", err)
	}
	want := "Invalid data found when processing input\n  at frame 0\n"
	if got := services.Detail(err); got != want {
		t.Fatalf("stderr payload mismatch: got %q want %q", got, want)
	}
	var svcErr *services.Error
	if !errors.As(err, &svcErr) || svcErr.ExitCode != 3 {
		t.Fatalf("expected exit code 3 on error, got %+v", svcErr)
	}
	if result.Succeeded || result.OutputPath != "" {
		t.Fatalf("failed result must not carry an output path: %+v", result)
	}
}

func TestRunMissingExecutableIsSpawnError(t *testing.T) {
	orch := process.New(process.WithExecutable(process.ToolFFmpeg, filepath.Join(t.TempDir(), "missing-ffmpeg")))

	_, err := orch.Run(context.Background(), mustExtract(t, "/tmp/a.wav"))
	if !errors.Is(err, services.ErrProcessSpawn) {
		t.Fatalf("expected spawn error, got %v", err)
	}
}

func TestRunRejectsZeroInvocation(t *testing.T) {
	orch := process.New()
	_, err := orch.Run(context.Background(), process.Invocation{})
	if kind, _ := services.KindOf(err); kind != services.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRunTimeoutKillsProcessGroup(t *testing.T) {
	stub := writeStub(t, `sleep 30 &
sleep 30`)
	orch := process.New(
		process.WithExecutable(process.ToolFFmpeg, stub),
		process.WithWaitDelay(20*time.Second),
	)

	inv := mustExtract(t, "/tmp/a.wav").WithTimeout(200 * time.Millisecond)
	start := time.Now()
	result, err := orch.Run(context.Background(), inv)
	elapsed := time.Since(start)

	if !errors.Is(err, services.ErrProcessExecution) {
		t.Fatalf("expected execution error for timeout, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline cause, got %v", err)
	}
	if !result.TimedOut {
		t.Fatal("expected result flagged as timed out")
	}
	if elapsed > 10*time.Second {
		t.Fatalf("background child kept the pipes open; took %s", elapsed)
	}
}

func TestHandleCancelReportsCanceled(t *testing.T) {
	stub := writeStub(t, `echo ready >&2
sleep 30`)
	orch := process.New(process.WithExecutable(process.ToolFFmpeg, stub))

	handle, err := orch.Start(context.Background(), mustExtract(t, "/tmp/a.wav"))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if handle.PID() <= 0 {
		t.Fatalf("expected pid, got %d", handle.PID())
	}
	select {
	case line := <-handle.Lines():
		if line != "ready" {
			t.Fatalf("unexpected first line %q", line)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for stderr line")
	}
	handle.Cancel()

	_, err = handle.Wait()
	if kind, _ := services.KindOf(err); kind != services.KindCanceled {
		t.Fatalf("expected canceled, got %v", err)
	}
	if _, again := handle.Wait(); again == nil {
		t.Fatal("expected repeated Wait to return the same error")
	}
}

func TestStartSplitsCarriageReturnProgress(t *testing.T) {
	stub := writeStub(t, `printf 'frame=1\rframe=2\rframe=3\ndone' >&2`)
	orch := process.New(process.WithExecutable(process.ToolFFmpeg, stub))

	handle, err := orch.Start(context.Background(), mustExtract(t, "/tmp/a.wav"))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	var lines []string
	done := make(chan struct{})
	go func() {
		for line := range handle.Lines() {
			lines = append(lines, line)
		}
		close(done)
	}()
	result, err := handle.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	<-done
	want := []string{"frame=1", "frame=2", "frame=3", "done"}
	if !slices.Equal(lines, want) {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
	if string(result.Stderr) != "frame=1\rframe=2\rframe=3\ndone" {
		t.Fatalf("stderr must be kept verbatim, got %q", result.Stderr)
	}
}

func TestRunCanceledContextBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := process.New().Run(ctx, mustExtract(t, "/tmp/a.wav"))
	if kind, _ := services.KindOf(err); kind != services.KindCanceled {
		t.Fatalf("expected canceled, got %v", err)
	}
}
