package wav_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"convrt/internal/media/wav"
	"convrt/internal/services"
)

type chunk struct {
	id   string
	data []byte
}

func fmtPayload(format uint16, channels uint16, rate uint32, bits uint16) []byte {
	var buf bytes.Buffer
	blockAlign := channels * bits / 8
	binary.Write(&buf, binary.LittleEndian, format)
	binary.Write(&buf, binary.LittleEndian, channels)
	binary.Write(&buf, binary.LittleEndian, rate)
	binary.Write(&buf, binary.LittleEndian, rate*uint32(blockAlign))
	binary.Write(&buf, binary.LittleEndian, blockAlign)
	binary.Write(&buf, binary.LittleEndian, bits)
	return buf.Bytes()
}

func extensiblePayload(subFormat uint16, channels uint16, rate uint32, bits uint16) []byte {
	base := fmtPayload(0xFFFE, channels, rate, bits)
	var buf bytes.Buffer
	buf.Write(base)
	binary.Write(&buf, binary.LittleEndian, uint16(22))
	binary.Write(&buf, binary.LittleEndian, bits)
	binary.Write(&buf, binary.LittleEndian, uint32(0x4))
	binary.Write(&buf, binary.LittleEndian, subFormat)
	buf.Write([]byte{0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71})
	return buf.Bytes()
}

func floatBytes(values ...float32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// riff assembles a WAVE stream. A positive declaredData overrides the data
// chunk's size field, producing a truncated file when it exceeds the payload.
func riff(chunks []chunk, declaredData int) []byte {
	var body bytes.Buffer
	body.WriteString("WAVE")
	for _, c := range chunks {
		body.WriteString(c.id)
		size := uint32(len(c.data))
		if c.id == "data" && declaredData > 0 {
			size = uint32(declaredData)
		}
		binary.Write(&body, binary.LittleEndian, size)
		body.Write(c.data)
		if len(c.data)%2 == 1 && c.id != "data" {
			body.WriteByte(0)
		}
	}
	var out bytes.Buffer
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func monoFloat(samples ...float32) []byte {
	return riff([]chunk{
		{id: "fmt ", data: fmtPayload(3, 1, 16000, 32)},
		{id: "data", data: floatBytes(samples...)},
	}, 0)
}

func TestDecodeMonoFloat(t *testing.T) {
	buf, err := wav.DecodeReader(bytes.NewReader(monoFloat(0, 0.5, -0.25, 1)))
	if err != nil {
		t.Fatalf("DecodeReader: %v", err)
	}
	want := []float32{0, 0.5, -0.25, 1}
	if len(buf.Samples) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(buf.Samples))
	}
	for i := range want {
		if buf.Samples[i] != want[i] {
			t.Fatalf("sample %d = %v, want %v", i, buf.Samples[i], want[i])
		}
	}
	if buf.SampleRate != 16000 || buf.Channels != 1 || buf.Format != wav.FormatFloat32 {
		t.Fatalf("unexpected header %+v", buf)
	}
	if err := buf.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestDecodeRejectsUnsupportedLayouts(t *testing.T) {
	tests := []struct {
		name   string
		fmt    []byte
		data   []byte
		expect func(wav.Buffer) bool
	}{
		{"stereo", fmtPayload(3, 2, 16000, 32), floatBytes(0, 0), func(b wav.Buffer) bool { return b.Channels == 2 }},
		{"44.1kHz", fmtPayload(3, 1, 44100, 32), floatBytes(0), func(b wav.Buffer) bool { return b.SampleRate == 44100 }},
		{"int16 pcm", fmtPayload(1, 1, 16000, 16), []byte{0, 0, 1, 0}, func(b wav.Buffer) bool { return b.Format == wav.FormatOther && b.BitsPerSample == 16 }},
		{"float64", fmtPayload(3, 1, 16000, 64), make([]byte, 8), func(b wav.Buffer) bool { return b.Format == wav.FormatOther }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := riff([]chunk{{id: "fmt ", data: tc.fmt}, {id: "data", data: tc.data}}, 0)
			buf, err := wav.DecodeReader(bytes.NewReader(input))
			if !errors.Is(err, services.ErrFormatValidation) {
				t.Fatalf("expected format validation error, got %v", err)
			}
			if !tc.expect(buf) {
				t.Fatalf("expected header to describe the input, got %+v", buf)
			}
			if len(buf.Samples) != 0 {
				t.Fatal("rejected input must not yield samples")
			}
		})
	}
}

func TestDecodeExtensibleFloat(t *testing.T) {
	input := riff([]chunk{
		{id: "fmt ", data: extensiblePayload(3, 1, 16000, 32)},
		{id: "data", data: floatBytes(0.125)},
	}, 0)
	buf, err := wav.DecodeReader(bytes.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeReader: %v", err)
	}
	if len(buf.Samples) != 1 || buf.Samples[0] != 0.125 {
		t.Fatalf("unexpected samples %v", buf.Samples)
	}
}

func TestDecodeSkipsUnknownChunks(t *testing.T) {
	input := riff([]chunk{
		{id: "fmt ", data: fmtPayload(3, 1, 16000, 32)},
		{id: "LIST", data: []byte("odd")},
		{id: "fact", data: []byte{1, 0, 0, 0}},
		{id: "data", data: floatBytes(0.75, -0.75)},
	}, 0)
	buf, err := wav.DecodeReader(bytes.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeReader: %v", err)
	}
	if len(buf.Samples) != 2 || buf.Samples[1] != -0.75 {
		t.Fatalf("unexpected samples %v", buf.Samples)
	}
}

func TestDecodeTruncatedDataStrictAndTolerant(t *testing.T) {
	input := riff([]chunk{
		{id: "fmt ", data: fmtPayload(3, 1, 16000, 32)},
		{id: "data", data: append(floatBytes(0.5, 0.25), 0x01, 0x02)},
	}, 16)

	if _, err := wav.DecodeReader(bytes.NewReader(input)); !errors.Is(err, services.ErrFormatValidation) {
		t.Fatalf("strict decode expected format error, got %v", err)
	}

	buf, err := wav.Decoder{Tolerant: true}.DecodeReader(bytes.NewReader(input))
	if err != nil {
		t.Fatalf("tolerant decode: %v", err)
	}
	want := []float32{0.5, 0.25, 0, 0}
	if len(buf.Samples) != len(want) {
		t.Fatalf("expected %d samples, got %v", len(want), buf.Samples)
	}
	for i := range want {
		if buf.Samples[i] != want[i] {
			t.Fatalf("sample %d = %v, want %v", i, buf.Samples[i], want[i])
		}
	}
}

func TestDecodeNonFiniteSamples(t *testing.T) {
	input := monoFloat(0.1, float32(math.NaN()), float32(math.Inf(1)))
	if _, err := wav.DecodeReader(bytes.NewReader(input)); !errors.Is(err, services.ErrFormatValidation) {
		t.Fatalf("strict decode expected format error, got %v", err)
	}
	buf, err := wav.Decoder{Tolerant: true}.DecodeReader(bytes.NewReader(input))
	if err != nil {
		t.Fatalf("tolerant decode: %v", err)
	}
	if buf.Samples[1] != 0 || buf.Samples[2] != 0 {
		t.Fatalf("expected non-finite samples replaced by zero, got %v", buf.Samples)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for name, input := range map[string][]byte{
		"empty":    nil,
		"not riff": []byte("ID3\x03\x00\x00\x00\x00\x00\x00\x00\x00"),
		"no data":  riff([]chunk{{id: "fmt ", data: fmtPayload(3, 1, 16000, 32)}}, 0),
		"no fmt":   riff([]chunk{{id: "data", data: floatBytes(0)}}, 0),
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := wav.DecodeReader(bytes.NewReader(input)); !errors.Is(err, services.ErrFormatValidation) {
				t.Fatalf("expected format validation error, got %v", err)
			}
		})
	}
}

func TestDecodeMissingFileIsFilesystemError(t *testing.T) {
	_, err := wav.Decode(filepath.Join(t.TempDir(), "missing.wav"))
	if !errors.Is(err, services.ErrFilesystem) {
		t.Fatalf("expected filesystem error, got %v", err)
	}
}

func TestBufferDuration(t *testing.T) {
	buf := wav.Buffer{SampleRate: 16000, Channels: 1, Samples: make([]float32, 8000)}
	if buf.Duration() != 0.5 {
		t.Fatalf("unexpected duration %v", buf.Duration())
	}
}
