package transcription_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"convrt/internal/media/wav"
	"convrt/internal/services"
	"convrt/internal/transcription"
)

func modelFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ggml-tiny.bin")
	if err := os.WriteFile(path, []byte("model"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return path
}

func speech() wav.Buffer {
	return wav.Buffer{SampleRate: 16000, Channels: 1, Format: wav.FormatFloat32, BitsPerSample: 32, Samples: make([]float32, 16000)}
}

func TestTranscribeJoinsSegments(t *testing.T) {
	engine := &fakeEngine{segments: []string{" Hello", " world. ", "Bye "}, detected: "en"}
	adapter := transcription.NewAdapter(engine, nil)

	result, err := adapter.Transcribe(context.Background(), modelFile(t), transcription.Request{Audio: speech()})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Text != "Hello  world.  Bye" {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if result.DetectedLanguage != "en" {
		t.Fatalf("unexpected detected language %q", result.DetectedLanguage)
	}
	if len(result.Segments) != 3 || result.Segments[2].Index != 2 {
		t.Fatalf("expected ordered segments, got %+v", result.Segments)
	}
	if engine.lastParams.Language != "" || engine.lastSamples != 16000 {
		t.Fatalf("expected autodetect and all samples, got %+v / %d", engine.lastParams, engine.lastSamples)
	}
	if loads, models, states := engine.counts(); loads != 1 || models != 1 || states != 1 {
		t.Fatalf("expected model and state released, got loads=%d models=%d states=%d", loads, models, states)
	}
}

func TestTranscribeNormalizesLanguageAndTranslate(t *testing.T) {
	engine := &fakeEngine{segments: []string{"Hallo"}}
	adapter := transcription.NewAdapter(engine, nil)

	_, err := adapter.Transcribe(context.Background(), modelFile(t), transcription.Request{Audio: speech(), Language: "German", Translate: true})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if engine.lastParams.Language != "de" || !engine.lastParams.Translate {
		t.Fatalf("unexpected params %+v", engine.lastParams)
	}
}

func TestTranscribeRejectsInvalidAudioBeforeEngine(t *testing.T) {
	tests := map[string]wav.Buffer{
		"stereo":  {SampleRate: 16000, Channels: 2, Format: wav.FormatFloat32, Samples: make([]float32, 2)},
		"44.1kHz": {SampleRate: 44100, Channels: 1, Format: wav.FormatFloat32, Samples: make([]float32, 2)},
		"int pcm": {SampleRate: 16000, Channels: 1, Format: wav.FormatOther, BitsPerSample: 16},
		"empty":   {SampleRate: 16000, Channels: 1, Format: wav.FormatFloat32},
	}
	for name, audio := range tests {
		t.Run(name, func(t *testing.T) {
			engine := &fakeEngine{}
			_, err := transcription.NewAdapter(engine, nil).Transcribe(context.Background(), modelFile(t), transcription.Request{Audio: audio})
			if !errors.Is(err, services.ErrFormatValidation) {
				t.Fatalf("expected format validation error, got %v", err)
			}
			if loads, _, _ := engine.counts(); loads != 0 {
				t.Fatal("engine must not be touched for invalid audio")
			}
		})
	}
}

func TestTranscribeInvalidLanguageHint(t *testing.T) {
	_, err := transcription.NewAdapter(&fakeEngine{}, nil).Transcribe(context.Background(), modelFile(t), transcription.Request{Audio: speech(), Language: "elvish-ish-ish"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTranscribeModelLoadFailures(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		engine := &fakeEngine{}
		_, err := transcription.NewAdapter(engine, nil).Transcribe(context.Background(), filepath.Join(t.TempDir(), "ggml-none.bin"), transcription.Request{Audio: speech()})
		if !errors.Is(err, services.ErrModelLoad) {
			t.Fatalf("expected model load error, got %v", err)
		}
	})
	t.Run("malformed", func(t *testing.T) {
		engine := &fakeEngine{loadErr: errors.New("invalid model file (bad magic)")}
		_, err := transcription.NewAdapter(engine, nil).Transcribe(context.Background(), modelFile(t), transcription.Request{Audio: speech()})
		if !errors.Is(err, services.ErrModelLoad) {
			t.Fatalf("expected model load error, got %v", err)
		}
	})
}

func TestTranscribeInferenceFailuresReleaseResources(t *testing.T) {
	tests := map[string]*fakeEngine{
		"state":     {stateErr: errors.New("out of memory")},
		"configure": {configureErr: errors.New("unsupported language")},
		"process":   {processErr: errors.New("failed to process audio")},
		"segments":  {segments: []string{"a", "b"}, segmentErr: errors.New("segment index out of range")},
	}
	for name, engine := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := transcription.NewAdapter(engine, nil).Transcribe(context.Background(), modelFile(t), transcription.Request{Audio: speech()})
			if !errors.Is(err, services.ErrInference) {
				t.Fatalf("expected inference error, got %v", err)
			}
			loads, models, states := engine.counts()
			if loads != 1 || models != 1 {
				t.Fatalf("model must be released: loads=%d closed=%d", loads, models)
			}
			if name != "state" && states != 1 {
				t.Fatalf("state must be released, closed=%d", states)
			}
		})
	}
}

func TestTranscribeDetectionFailureLeavesLanguageAbsent(t *testing.T) {
	engine := &fakeEngine{segments: []string{"bonjour"}, detectErr: errors.New("lang id unavailable")}
	result, err := transcription.NewAdapter(engine, nil).Transcribe(context.Background(), modelFile(t), transcription.Request{Audio: speech()})
	if err != nil {
		t.Fatalf("detection failure must not fail the call: %v", err)
	}
	if result.DetectedLanguage != "" || result.Text != "bonjour" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestTranscribeCancellation(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	engine := &fakeEngine{blockUntil: block}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := transcription.NewAdapter(engine, nil).Transcribe(ctx, modelFile(t), transcription.Request{Audio: speech()})
	if !errors.Is(err, services.ErrInference) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected inference error wrapping cancellation, got %v", err)
	}
	if _, models, states := engine.counts(); models != 1 || states != 1 {
		t.Fatalf("resources must be released on cancel: models=%d states=%d", models, states)
	}
}

func TestDefaultLoaderWithoutEngine(t *testing.T) {
	if transcription.EngineAvailable() {
		t.Skip("whisper engine compiled in")
	}
	_, err := transcription.NewAdapter(nil, nil).Transcribe(context.Background(), modelFile(t), transcription.Request{Audio: speech()})
	if !errors.Is(err, services.ErrModelLoad) {
		t.Fatalf("expected model load error from stub engine, got %v", err)
	}
}
