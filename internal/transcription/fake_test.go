package transcription_test

import (
	"context"
	"errors"
	"io"
	"sync"

	"convrt/internal/transcription"
)

type fakeEngine struct {
	mu sync.Mutex

	loadErr      error
	stateErr     error
	configureErr error
	processErr   error
	segmentErr   error
	detectErr    error
	detected     string
	segments     []string
	blockUntil   <-chan struct{}

	loads        int
	modelsClosed int
	statesClosed int
	lastParams   transcription.Params
	lastSamples  int
}

func (f *fakeEngine) Load(string) (transcription.Model, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return &fakeModel{engine: f}, nil
}

func (f *fakeEngine) counts() (loads, models, states int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads, f.modelsClosed, f.statesClosed
}

type fakeModel struct {
	engine *fakeEngine
}

func (m *fakeModel) NewState() (transcription.State, error) {
	if m.engine.stateErr != nil {
		return nil, m.engine.stateErr
	}
	return &fakeState{engine: m.engine}, nil
}

func (m *fakeModel) Close() error {
	m.engine.mu.Lock()
	defer m.engine.mu.Unlock()
	m.engine.modelsClosed++
	return nil
}

type fakeState struct {
	engine *fakeEngine
	next   int
}

func (s *fakeState) Configure(p transcription.Params) error {
	s.engine.mu.Lock()
	s.engine.lastParams = p
	s.engine.mu.Unlock()
	return s.engine.configureErr
}

func (s *fakeState) Process(ctx context.Context, samples []float32) error {
	s.engine.mu.Lock()
	s.engine.lastSamples = len(samples)
	s.engine.mu.Unlock()
	if s.engine.blockUntil != nil {
		select {
		case <-s.engine.blockUntil:
		case <-ctx.Done():
			return errors.New("aborted by callback")
		}
	}
	return s.engine.processErr
}

func (s *fakeState) NextSegment() (transcription.Segment, error) {
	if s.engine.segmentErr != nil && s.next > 0 {
		return transcription.Segment{}, s.engine.segmentErr
	}
	if s.next >= len(s.engine.segments) {
		return transcription.Segment{}, io.EOF
	}
	text := s.engine.segments[s.next]
	s.next++
	return transcription.Segment{Text: text}, nil
}

func (s *fakeState) DetectedLanguage() (string, error) {
	if s.engine.detectErr != nil {
		return "", s.engine.detectErr
	}
	return s.engine.detected, nil
}

func (s *fakeState) Close() error {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()
	s.engine.statesClosed++
	return nil
}
