//go:build whisper

package transcription

import (
	"context"
	"errors"
	"io"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// EngineAvailable reports whether a real inference engine is compiled in.
func EngineAvailable() bool { return true }

// DefaultLoader returns the loader for the compiled-in engine.
func DefaultLoader() Loader { return whisperLoader{} }

type whisperLoader struct{}

func (whisperLoader) Load(path string) (Model, error) {
	model, err := whisper.New(path)
	if err != nil {
		return nil, err
	}
	return &whisperModel{model: model}, nil
}

type whisperModel struct {
	model whisper.Model
}

func (m *whisperModel) NewState() (State, error) {
	wctx, err := m.model.NewContext()
	if err != nil {
		return nil, err
	}
	return &whisperState{ctx: wctx, multilingual: m.model.IsMultilingual()}, nil
}

func (m *whisperModel) Close() error {
	return m.model.Close()
}

type whisperState struct {
	ctx          whisper.Context
	multilingual bool
	autodetect   bool
}

func (s *whisperState) Configure(params Params) error {
	if s.multilingual {
		lang := params.Language
		if lang == "" {
			lang = "auto"
			s.autodetect = true
		}
		if err := s.ctx.SetLanguage(lang); err != nil {
			return err
		}
	} else if params.Language != "" && params.Language != "en" {
		return errors.New("model is English-only; choose a multilingual model for " + params.Language)
	}
	s.ctx.SetTranslate(params.Translate)
	return nil
}

func (s *whisperState) Process(ctx context.Context, samples []float32) error {
	keepGoing := func() bool { return ctx.Err() == nil }
	return s.ctx.Process(samples, keepGoing, nil, nil)
}

func (s *whisperState) NextSegment() (Segment, error) {
	segment, err := s.ctx.NextSegment()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Segment{}, io.EOF
		}
		return Segment{}, err
	}
	return Segment{Index: segment.Num, Start: segment.Start, End: segment.End, Text: segment.Text}, nil
}

func (s *whisperState) DetectedLanguage() (string, error) {
	if !s.multilingual {
		return "en", nil
	}
	lang := s.ctx.DetectedLanguage()
	if lang == "" {
		return "", errors.New("no language detected")
	}
	return lang, nil
}

// Close is a no-op; the binding frees inference state with the model.
func (s *whisperState) Close() error { return nil }
