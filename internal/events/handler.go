package events

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"convrt/internal/logging"
	"convrt/internal/services"
)

type logHandler struct {
	bus   Publisher
	level slog.Leveler
	attrs []slog.Attr
	group string
}

// NewLogHandler returns a slog handler that publishes records at or above
// level as TypeLog events. Combine it with logging.TeeLogger.
func NewLogHandler(bus Publisher, level slog.Leveler) slog.Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &logHandler{bus: bus, level: level}
}

func (h *logHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.bus != nil && level >= h.level.Level()
}

func (h *logHandler) Handle(ctx context.Context, record slog.Record) error {
	evt := Event{
		Timestamp: record.Time.UTC(),
		Type:      TypeLog,
		Level:     strings.ToLower(record.Level.String()),
		Message:   record.Message,
	}
	if id, ok := services.RunIDFromContext(ctx); ok {
		evt.RunID = id
	}
	if workflow, ok := services.WorkflowFromContext(ctx); ok {
		evt.Workflow = workflow
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		evt.Stage = stage
	}
	for _, attr := range h.attrs {
		h.applyAttr(&evt, "", attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		h.applyAttr(&evt, h.group, attr)
		return true
	})
	h.bus.Publish(evt)
	return nil
}

func (h *logHandler) applyAttr(evt *Event, prefix string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}
	key := attr.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if attr.Value.Kind() == slog.KindGroup {
		for _, child := range attr.Value.Group() {
			h.applyAttr(evt, key, child)
		}
		return
	}
	value := attr.Value.String()
	if attr.Value.Kind() == slog.KindAny {
		if err, ok := attr.Value.Any().(error); ok {
			value = err.Error()
		} else {
			value = fmt.Sprint(attr.Value.Any())
		}
	}
	switch key {
	case logging.FieldRunID:
		evt.RunID = value
		return
	case logging.FieldWorkflow:
		evt.Workflow = value
		return
	case logging.FieldStage:
		evt.Stage = value
		return
	case logging.FieldErrorKind:
		evt.ErrorKind = value
		return
	}
	if evt.Fields == nil {
		evt.Fields = make(map[string]string)
	}
	evt.Fields[key] = value
}

func (h *logHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), h.prefixed(attrs)...)
	return &clone
}

func (h *logHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.group != "" {
		clone.group += "." + name
	} else {
		clone.group = name
	}
	return &clone
}

func (h *logHandler) prefixed(attrs []slog.Attr) []slog.Attr {
	if h.group == "" {
		return attrs
	}
	out := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		out[i] = slog.Attr{Key: h.group + "." + attr.Key, Value: attr.Value}
	}
	return out
}
