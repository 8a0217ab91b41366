package testsupport

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// WriteScript writes an executable /bin/sh script named name into dir and
// returns its path.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script %s: %v", name, err)
	}
	return path
}

// WAVSpec describes a synthetic WAV file.
type WAVSpec struct {
	SampleRate    uint32
	Channels      uint16
	FormatTag     uint16
	BitsPerSample uint16
	Samples       []float32
}

// TranscriptionWAV returns the only layout the transcription engine accepts.
func TranscriptionWAV(samples []float32) WAVSpec {
	return WAVSpec{SampleRate: 16000, Channels: 1, FormatTag: 3, BitsPerSample: 32, Samples: samples}
}

// EncodeWAV renders spec as a canonical RIFF/WAVE byte stream. Float formats
// store samples as IEEE little endian; any other tag stores them as 16-bit PCM.
func EncodeWAV(spec WAVSpec) []byte {
	var data bytes.Buffer
	for _, sample := range spec.Samples {
		if spec.FormatTag == 3 {
			_ = binary.Write(&data, binary.LittleEndian, math.Float32bits(sample))
			continue
		}
		_ = binary.Write(&data, binary.LittleEndian, int16(sample*math.MaxInt16))
	}

	blockAlign := spec.Channels * spec.BitsPerSample / 8
	var out bytes.Buffer
	out.WriteString("RIFF")
	_ = binary.Write(&out, binary.LittleEndian, uint32(4+8+16+8+data.Len()))
	out.WriteString("WAVE")
	out.WriteString("fmt ")
	_ = binary.Write(&out, binary.LittleEndian, uint32(16))
	_ = binary.Write(&out, binary.LittleEndian, spec.FormatTag)
	_ = binary.Write(&out, binary.LittleEndian, spec.Channels)
	_ = binary.Write(&out, binary.LittleEndian, spec.SampleRate)
	_ = binary.Write(&out, binary.LittleEndian, spec.SampleRate*uint32(blockAlign))
	_ = binary.Write(&out, binary.LittleEndian, blockAlign)
	_ = binary.Write(&out, binary.LittleEndian, spec.BitsPerSample)
	out.WriteString("data")
	_ = binary.Write(&out, binary.LittleEndian, uint32(data.Len()))
	out.Write(data.Bytes())
	return out.Bytes()
}

// WriteWAV writes spec to path.
func WriteWAV(t testing.TB, path string, spec WAVSpec) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, EncodeWAV(spec), 0o644); err != nil {
		t.Fatalf("write wav %s: %v", path, err)
	}
}
