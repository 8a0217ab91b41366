package process

import (
	"bytes"
	"strings"
	"sync"
)

const lineBuffer = 256

// lineWriter keeps every byte written and emits complete lines, splitting on
// both \n and \r so progress bars redrawn in place arrive as separate lines.
// Lines are dropped rather than blocking the child when nobody is reading.
type lineWriter struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	partial []byte
	lines   chan string
	closed  bool
}

func newLineWriter() *lineWriter {
	return &lineWriter{lines: make(chan string, lineBuffer)}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	if w.closed {
		return len(p), nil
	}
	w.partial = append(w.partial, p...)
	for {
		idx := bytes.IndexAny(w.partial, "\r\n")
		if idx < 0 {
			break
		}
		w.emit(string(w.partial[:idx]))
		w.partial = w.partial[idx+1:]
	}
	return len(p), nil
}

func (w *lineWriter) emit(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	select {
	case w.lines <- line:
	default:
	}
}

func (w *lineWriter) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if len(w.partial) > 0 {
		w.emit(string(w.partial))
		w.partial = nil
	}
	w.closed = true
	close(w.lines)
}

func (w *lineWriter) bytes() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return bytes.Clone(w.buf.Bytes())
}
