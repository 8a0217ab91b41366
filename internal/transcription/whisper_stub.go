//go:build !whisper

package transcription

import "convrt/internal/services"

// EngineAvailable reports whether a real inference engine is compiled in.
func EngineAvailable() bool { return false }

// DefaultLoader returns the loader for the compiled-in engine.
func DefaultLoader() Loader { return unavailableLoader{} }

type unavailableLoader struct{}

func (unavailableLoader) Load(string) (Model, error) {
	return nil, services.New(services.KindModelLoad, "transcription.load", "convrt was built without whisper support; rebuild with -tags whisper")
}
