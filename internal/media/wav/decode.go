package wav

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"convrt/internal/services"
)

const (
	formatPCM        = 0x0001
	formatIEEEFloat  = 0x0003
	formatExtensible = 0xFFFE
)

// Decoder parses WAV files. The zero value is strict.
type Decoder struct {
	// Tolerant substitutes 0.0 for a truncated trailing sample and for
	// non-finite values instead of failing.
	Tolerant bool
}

// Decode reads the file at path with a strict decoder.
func Decode(path string) (Buffer, error) {
	return Decoder{}.Decode(path)
}

// DecodeReader parses r with a strict decoder.
func DecodeReader(r io.Reader) (Buffer, error) {
	return Decoder{}.DecodeReader(r)
}

// Decode reads and validates the file at path.
func (d Decoder) Decode(path string) (Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return Buffer{}, services.Wrap(services.ErrFilesystem, "wav.decode", fmt.Sprintf("open %s", path), err)
	}
	defer file.Close()
	return d.DecodeReader(bufio.NewReader(file))
}

type fmtChunk struct {
	audioFormat   uint16
	channels      uint16
	sampleRate    uint32
	bitsPerSample uint16
}

// DecodeReader parses a RIFF/WAVE stream. The header is always parsed so the
// returned Buffer describes the input even when validation fails.
func (d Decoder) DecodeReader(r io.Reader) (Buffer, error) {
	const op = "wav.decode"

	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return Buffer{}, formatError(op, "missing RIFF header", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return Buffer{}, formatError(op, "not a RIFF/WAVE file", nil)
	}

	var (
		format   *fmtChunk
		payload  []byte
		declared int
		found    bool
	)
	for !found {
		var header [8]byte
		if _, err := io.ReadFull(r, header[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return Buffer{}, formatError(op, "no data chunk", nil)
			}
			return Buffer{}, formatError(op, "truncated chunk header", err)
		}
		id := string(header[0:4])
		size := binary.LittleEndian.Uint32(header[4:8])

		switch id {
		case "fmt ":
			parsed, err := readFmtChunk(r, size)
			if err != nil {
				return Buffer{}, err
			}
			format = parsed
		case "data":
			if format == nil {
				return Buffer{}, formatError(op, "data chunk precedes fmt chunk", nil)
			}
			buf := describe(format)
			if err := buf.Validate(); err != nil {
				return buf, err
			}
			data, err := readData(r, size)
			if err != nil && !d.Tolerant {
				return buf, err
			}
			payload = data
			found = true
			if size != 0 && size != math.MaxUint32 {
				declared = int((uint64(size) + 3) / 4)
			}
		default:
			if err := skip(r, size); err != nil {
				return Buffer{}, formatError(op, fmt.Sprintf("truncated %q chunk", id), err)
			}
		}
	}

	buf := describe(format)
	samples, err := d.convert(payload, declared)
	if err != nil {
		return buf, err
	}
	buf.Samples = samples
	return buf, nil
}

func readFmtChunk(r io.Reader, size uint32) (*fmtChunk, error) {
	const op = "wav.decode"
	if size < 16 {
		return nil, formatError(op, fmt.Sprintf("fmt chunk too short (%d bytes)", size), nil)
	}
	raw := make([]byte, size)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, formatError(op, "truncated fmt chunk", err)
	}
	if size%2 == 1 {
		if err := skip(r, 1); err != nil {
			return nil, formatError(op, "truncated fmt chunk padding", err)
		}
	}
	chunk := &fmtChunk{
		audioFormat:   binary.LittleEndian.Uint16(raw[0:2]),
		channels:      binary.LittleEndian.Uint16(raw[2:4]),
		sampleRate:    binary.LittleEndian.Uint32(raw[4:8]),
		bitsPerSample: binary.LittleEndian.Uint16(raw[14:16]),
	}
	// WAVE_FORMAT_EXTENSIBLE carries the real format code in the first two
	// bytes of the sub-format GUID at offset 24.
	if chunk.audioFormat == formatExtensible && size >= 26 {
		chunk.audioFormat = binary.LittleEndian.Uint16(raw[24:26])
	}
	return chunk, nil
}

func describe(chunk *fmtChunk) Buffer {
	buf := Buffer{
		SampleRate:    int(chunk.sampleRate),
		Channels:      int(chunk.channels),
		BitsPerSample: int(chunk.bitsPerSample),
		Format:        FormatOther,
	}
	if chunk.audioFormat == formatIEEEFloat && chunk.bitsPerSample == 32 {
		buf.Format = FormatFloat32
	}
	return buf
}

// readData reads the whole data chunk. Some encoders write 0 or 0xFFFFFFFF
// when streaming; both mean "until end of file".
func readData(r io.Reader, size uint32) ([]byte, error) {
	if size == 0 || size == math.MaxUint32 {
		data, err := io.ReadAll(r)
		if err != nil {
			return data, formatError("wav.decode", "read data chunk", err)
		}
		return data, nil
	}
	data := make([]byte, size)
	n, err := io.ReadFull(r, data)
	if err != nil {
		return data[:n], formatError("wav.decode", fmt.Sprintf("data chunk truncated: expected %d bytes, got %d", size, n), err)
	}
	return data, nil
}

// convert decodes little-endian float32 samples. In tolerant mode a partial
// trailing sample and any samples missing from a short data chunk become 0.0.
func (d Decoder) convert(data []byte, declared int) ([]float32, error) {
	const op = "wav.decode"
	whole := len(data) / 4
	rem := len(data) % 4
	if rem != 0 && !d.Tolerant {
		return nil, formatError(op, fmt.Sprintf("data chunk ends with a partial sample (%d trailing bytes)", rem), nil)
	}

	count := whole
	if rem != 0 {
		count++
	}
	if d.Tolerant && declared > count {
		count = declared
	}
	samples := make([]float32, count)
	for i := 0; i < whole; i++ {
		value := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		if math.IsNaN(float64(value)) || math.IsInf(float64(value), 0) {
			if !d.Tolerant {
				return nil, formatError(op, fmt.Sprintf("sample %d is not a finite number", i), nil)
			}
			value = 0
		}
		samples[i] = value
	}
	return samples, nil
}

func skip(r io.Reader, size uint32) error {
	n := int64(size)
	if size%2 == 1 {
		n++
	}
	_, err := io.CopyN(io.Discard, r, n)
	return err
}

func formatError(op, message string, err error) error {
	if err == nil {
		return services.New(services.KindFormatValidation, op, message)
	}
	return services.Wrap(services.ErrFormatValidation, op, message, err)
}
