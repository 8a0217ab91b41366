package wav

import (
	"fmt"

	"convrt/internal/services"
)

// RequiredSampleRate is the only rate the engine accepts.
const RequiredSampleRate = 16000

// SampleFormat identifies the sample encoding declared by the fmt chunk.
type SampleFormat int

const (
	FormatOther SampleFormat = iota
	FormatFloat32
)

func (f SampleFormat) String() string {
	if f == FormatFloat32 {
		return "float32"
	}
	return "other"
}

// Buffer holds decoded audio. Samples are populated only for mono float32 input.
type Buffer struct {
	SampleRate    int
	Channels      int
	Format        SampleFormat
	BitsPerSample int
	Samples       []float32
}

// Duration returns the audio length in seconds.
func (b Buffer) Duration() float64 {
	if b.SampleRate <= 0 || b.Channels <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate*b.Channels)
}

// Validate reports a FormatValidationError unless the buffer is mono,
// 16 kHz, float32.
func (b Buffer) Validate() error {
	const op = "wav.validate"
	switch {
	case b.Channels != 1:
		return services.New(services.KindFormatValidation, op, fmt.Sprintf("audio must be mono, got %d channels", b.Channels))
	case b.SampleRate != RequiredSampleRate:
		return services.New(services.KindFormatValidation, op, fmt.Sprintf("audio must be sampled at %d Hz, got %d Hz", RequiredSampleRate, b.SampleRate))
	case b.Format != FormatFloat32:
		return services.New(services.KindFormatValidation, op, fmt.Sprintf("audio must be 32-bit float, got %s (%d-bit)", b.Format, b.BitsPerSample))
	default:
		return nil
	}
}
