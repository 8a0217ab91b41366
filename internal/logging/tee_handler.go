package logging

import (
	"context"
	"log/slog"
)

// teeHandler hands every record to each sink that accepts its level.
type teeHandler struct {
	sinks []slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, sink := range t.sinks {
		if sink.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, sink := range t.sinks {
		if !sink.Enabled(ctx, record.Level) {
			continue
		}
		if err := sink.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t *teeHandler) derive(fn func(slog.Handler) slog.Handler) slog.Handler {
	sinks := make([]slog.Handler, len(t.sinks))
	for i, sink := range t.sinks {
		sinks[i] = fn(sink)
	}
	return &teeHandler{sinks: sinks}
}

// TeeLogger returns a logger writing to base's handler and every extra
// handler, such as the event bus sink. Nil handlers are ignored.
func TeeLogger(base *slog.Logger, extra ...slog.Handler) *slog.Logger {
	sinks := make([]slog.Handler, 0, len(extra)+1)
	if base != nil {
		sinks = append(sinks, base.Handler())
	}
	for _, h := range extra {
		if h != nil {
			sinks = append(sinks, h)
		}
	}
	switch len(sinks) {
	case 0:
		return NewNop()
	case 1:
		return slog.New(sinks[0])
	default:
		return slog.New(&teeHandler{sinks: sinks})
	}
}
