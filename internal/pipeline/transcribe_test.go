package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"convrt/internal/history"
	"convrt/internal/pipeline"
	"convrt/internal/process"
	"convrt/internal/services"
	"convrt/internal/testsupport"
)

func speechWAV() []byte {
	return testsupport.EncodeWAV(testsupport.TranscriptionWAV([]float32{0, 0.25, -0.25, 0.5}))
}

func TestTranscribeExtractsDecodesAndCleansUp(t *testing.T) {
	h := newHarness(t)
	var audioPath string
	h.runner.handle = func(inv process.Invocation) (process.Result, error) {
		audioPath = inv.OutputPath()
		return writeOutput(inv, speechWAV())
	}
	input := writeSource(t, t.TempDir(), "clip.mp4")

	out, err := h.coordinator.Transcribe(context.Background(), pipeline.TranscribeRequest{InputPath: input})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if out.Text != "hello world" || out.DetectedLanguage != "en" || out.RunID == "" {
		t.Fatalf("unexpected transcript %#v", out)
	}
	if got := h.runner.tools(); len(got) != 1 || got[0] != process.ToolFFmpeg {
		t.Fatalf("unexpected process calls %v", got)
	}
	if want := filepath.Join(h.cfg.Paths.WorkDir, out.RunID, "audio.wav"); audioPath != want {
		t.Fatalf("audio path = %q, want %q", audioPath, want)
	}
	if _, err := os.Stat(filepath.Dir(audioPath)); !os.IsNotExist(err) {
		t.Fatalf("expected work dir removed, stat err = %v", err)
	}

	if len(h.models.names) != 1 || h.models.names[0] != h.cfg.Models.Default {
		t.Fatalf("unexpected model resolution %v", h.models.names)
	}
	req := h.transcriber.requests[0]
	if req.Language != "auto" || req.Translate || len(req.Audio.Samples) != 4 {
		t.Fatalf("unexpected engine request %#v", req)
	}
	if h.transcriber.models[0] != h.models.path {
		t.Fatalf("engine received model %q", h.transcriber.models[0])
	}

	run := h.onlyRun(t)
	if run.Status != history.StatusSucceeded || run.Transcript != "hello world" || run.DetectedLanguage != "en" {
		t.Fatalf("unexpected history %#v", run)
	}
}

func TestTranscribeKeepsWorkDirWhenConfigured(t *testing.T) {
	h := newHarness(t)
	h.cfg.Pipeline.KeepWorkDirs = true
	h.runner.handle = func(inv process.Invocation) (process.Result, error) {
		return writeOutput(inv, speechWAV())
	}
	input := writeSource(t, t.TempDir(), "clip.mp4")

	out, err := h.coordinator.Transcribe(context.Background(), pipeline.TranscribeRequest{InputPath: input, Model: "tiny", Language: "de", Translate: true})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if _, err := os.Stat(filepath.Join(h.cfg.Paths.WorkDir, out.RunID, "audio.wav")); err != nil {
		t.Fatalf("expected audio kept: %v", err)
	}
	if h.models.names[0] != "tiny" {
		t.Fatalf("model = %q", h.models.names[0])
	}
	req := h.transcriber.requests[0]
	if req.Language != "de" || !req.Translate {
		t.Fatalf("unexpected engine request %#v", req)
	}
}

func TestTranscribeRejectsUnsupportedAudio(t *testing.T) {
	cases := map[string]testsupport.WAVSpec{
		"stereo":   {SampleRate: 16000, Channels: 2, FormatTag: 3, BitsPerSample: 32, Samples: []float32{0, 0}},
		"44.1 kHz": {SampleRate: 44100, Channels: 1, FormatTag: 3, BitsPerSample: 32, Samples: []float32{0}},
		"int pcm":  {SampleRate: 16000, Channels: 1, FormatTag: 1, BitsPerSample: 16, Samples: []float32{0}},
	}
	for name, spec := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			h.runner.handle = func(inv process.Invocation) (process.Result, error) {
				return writeOutput(inv, testsupport.EncodeWAV(spec))
			}
			input := writeSource(t, t.TempDir(), "clip.mp4")

			out, err := h.coordinator.Transcribe(context.Background(), pipeline.TranscribeRequest{InputPath: input})
			if !errors.Is(err, services.ErrFormatValidation) {
				t.Fatalf("expected format validation error, got %v", err)
			}
			if out.Text != "" {
				t.Fatalf("expected no text, got %q", out.Text)
			}
			if h.transcriber.calls() != 0 {
				t.Fatal("engine must not run on rejected audio")
			}
		})
	}
}

func TestTranscribeAudioDecodesWAVDirectly(t *testing.T) {
	h := newHarness(t)
	wavPath := filepath.Join(t.TempDir(), "speech.wav")
	testsupport.WriteWAV(t, wavPath, testsupport.TranscriptionWAV([]float32{0.1, 0.2}))

	out, err := h.coordinator.TranscribeAudio(context.Background(), pipeline.TranscribeRequest{InputPath: wavPath})
	if err != nil {
		t.Fatalf("TranscribeAudio: %v", err)
	}
	if out.Text != "hello world" {
		t.Fatalf("text = %q", out.Text)
	}
	if calls := h.runner.tools(); len(calls) != 0 {
		t.Fatalf("expected no process calls, got %v", calls)
	}
}

func TestTranscribeModelFailureStopsBeforeExtraction(t *testing.T) {
	h := newHarness(t)
	h.models.err = &services.Error{Kind: services.KindNetwork, Op: "modelcache.download", StatusCode: 404}
	input := writeSource(t, t.TempDir(), "clip.mp4")

	_, err := h.coordinator.Transcribe(context.Background(), pipeline.TranscribeRequest{InputPath: input})
	if !errors.Is(err, services.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if calls := h.runner.tools(); len(calls) != 0 {
		t.Fatalf("expected no process calls, got %v", calls)
	}
	if run := h.onlyRun(t); run.ErrorKind != "network" {
		t.Fatalf("unexpected history %#v", run)
	}
}

func TestTranscribeExtractionFailure(t *testing.T) {
	h := newHarness(t)
	h.runner.handle = func(inv process.Invocation) (process.Result, error) {
		return process.Result{Stderr: []byte("Invalid data found when processing input\n"), ExitCode: 1},
			&services.Error{Kind: services.KindProcessExecution, Op: "process.ffmpeg", Detail: "Invalid data found when processing input\n", ExitCode: 1}
	}
	input := writeSource(t, t.TempDir(), "clip.mp4")

	_, err := h.coordinator.Transcribe(context.Background(), pipeline.TranscribeRequest{InputPath: input})
	if !errors.Is(err, services.ErrProcessExecution) {
		t.Fatalf("expected process execution error, got %v", err)
	}
	if h.transcriber.calls() != 0 {
		t.Fatal("engine must not run after extraction failure")
	}
	entries, _ := os.ReadDir(h.cfg.Paths.WorkDir)
	if len(entries) != 0 {
		t.Fatalf("expected work dir cleaned, found %d entries", len(entries))
	}
}

func TestTranscribeMissingInput(t *testing.T) {
	h := newHarness(t)
	_, err := h.coordinator.Transcribe(context.Background(), pipeline.TranscribeRequest{InputPath: filepath.Join(t.TempDir(), "nope.mp4")})
	if !errors.Is(err, services.ErrFilesystem) {
		t.Fatalf("expected filesystem error, got %v", err)
	}
	if len(h.models.names) != 0 {
		t.Fatal("model must not be resolved for missing input")
	}
}

func TestFetchAndTranscribe(t *testing.T) {
	h := newHarness(t)
	h.runner.handle = func(inv process.Invocation) (process.Result, error) {
		if inv.Tool() == process.ToolFFmpeg {
			return writeOutput(inv, speechWAV())
		}
		return writeOutput(inv, []byte("video"))
	}

	out, err := h.coordinator.FetchAndTranscribe(context.Background(), pipeline.FetchTranscribeRequest{URL: "https://example.com/v"})
	if err != nil {
		t.Fatalf("FetchAndTranscribe: %v", err)
	}
	if out.VideoPath == "" || out.Text != "hello world" {
		t.Fatalf("unexpected result %#v", out)
	}
	got := h.runner.tools()
	if len(got) != 2 || got[0] != process.ToolYtDlp || got[1] != process.ToolFFmpeg {
		t.Fatalf("unexpected process order %v", got)
	}
	runs, err := h.store.List(context.Background(), history.Filter{})
	if err != nil || len(runs) != 2 {
		t.Fatalf("expected two runs, got %#v %v", runs, err)
	}
}
