package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"convrt/internal/config"
	"convrt/internal/encoding"
	"convrt/internal/events"
	"convrt/internal/history"
	"convrt/internal/pipeline"
	"convrt/internal/process"
	"convrt/internal/testsupport"
	"convrt/internal/transcription"
)

type fakeRunner struct {
	mu     sync.Mutex
	calls  []process.Invocation
	handle func(inv process.Invocation) (process.Result, error)
}

func (f *fakeRunner) Run(_ context.Context, inv process.Invocation) (process.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, inv)
	f.mu.Unlock()
	if f.handle == nil {
		return writeOutput(inv, []byte("media"))
	}
	return f.handle(inv)
}

func (f *fakeRunner) tools() []process.Tool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]process.Tool, len(f.calls))
	for i, inv := range f.calls {
		out[i] = inv.Tool()
	}
	return out
}

func writeOutput(inv process.Invocation, data []byte) (process.Result, error) {
	if path := inv.OutputPath(); path != "" {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return process.Result{}, err
		}
	}
	return process.Result{Succeeded: true, OutputPath: inv.OutputPath(), Command: string(inv.Tool()), Args: inv.Args()}, nil
}

type fakeModels struct {
	mu    sync.Mutex
	names []string
	path  string
	err   error
}

func (f *fakeModels) Resolve(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, name)
	if f.err != nil {
		return "", f.err
	}
	return f.path, nil
}

type fakeTranscriber struct {
	mu       sync.Mutex
	requests []transcription.Request
	models   []string
	result   transcription.Result
	err      error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, modelPath string, req transcription.Request) (transcription.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	f.models = append(f.models, modelPath)
	return f.result, f.err
}

func (f *fakeTranscriber) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeEncoder struct {
	dir string
	err error
}

func (f *fakeEncoder) Encode(_ context.Context, inputPath, outputDir string, progress func(encoding.Progress)) (string, error) {
	f.dir = outputDir
	if f.err != nil {
		return "", f.err
	}
	progress(encoding.Progress{Stage: "encoding", Percent: 50})
	progress(encoding.Progress{Stage: "encoding", Percent: 50.4})
	progress(encoding.Progress{Stage: "complete", Percent: 100})
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}
	output := encoding.OutputPath(inputPath, outputDir)
	return output, os.WriteFile(output, []byte("av1"), 0o644)
}

type harness struct {
	cfg         *config.Config
	runner      *fakeRunner
	models      *fakeModels
	transcriber *fakeTranscriber
	store       *history.Store
	bus         *events.Bus
	coordinator *pipeline.Coordinator
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	h := &harness{
		cfg:         cfg,
		runner:      &fakeRunner{},
		models:      &fakeModels{path: filepath.Join(cfg.ModelsDir(), "ggml-base.bin")},
		transcriber: &fakeTranscriber{result: transcription.Result{Text: "hello world", DetectedLanguage: "en"}},
		store:       store,
		bus:         events.NewBus(256),
	}
	h.coordinator = h.build(t, nil)
	return h
}

func (h *harness) build(t *testing.T, customize func(*pipeline.Dependencies)) *pipeline.Coordinator {
	t.Helper()
	deps := pipeline.Dependencies{
		Runner:      h.runner,
		Models:      h.models,
		Transcriber: h.transcriber,
		History:     h.store,
		Events:      h.bus,
	}
	if customize != nil {
		customize(&deps)
	}
	coordinator, err := pipeline.New(h.cfg, deps)
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	return coordinator
}

func (h *harness) onlyRun(t *testing.T) history.Run {
	t.Helper()
	runs, err := h.store.List(context.Background(), history.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %#v", runs)
	}
	return runs[0]
}

func (h *harness) lastEvent(t *testing.T) events.Event {
	t.Helper()
	evts, _ := h.bus.Tail(1)
	if len(evts) != 1 {
		t.Fatal("expected at least one event")
	}
	return evts[0]
}

func writeSource(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	testsupport.WriteFile(t, path, 64)
	return path
}
