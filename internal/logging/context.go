package logging

import (
	"context"
	"log/slog"

	"convrt/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized key for pipeline run identifiers.
	FieldRunID = "run_id"
	// FieldWorkflow is the standardized key for the workflow name.
	FieldWorkflow = "workflow"
	// FieldStage is the standardized structured logging key for workflow step names.
	FieldStage = "stage"
	// FieldEventType classifies a log line for filtering (e.g. "model_download_complete").
	FieldEventType = "event_type"
	// FieldErrorHint carries remediation text for warnings and errors.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldErrorKind carries the services.Kind of a failure.
	FieldErrorKind = "error_kind"
	FieldError     = "error"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if workflow, ok := services.WorkflowFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldWorkflow, workflow))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}

// FailureAttrs describes err with its kind and remediation hint.
func FailureAttrs(err error) []Attr {
	attrs := []Attr{Error(err)}
	if kind, ok := services.KindOf(err); ok {
		attrs = append(attrs,
			String(FieldErrorKind, kind.String()),
			String(FieldErrorHint, services.Hint(kind)),
		)
	}
	return attrs
}
