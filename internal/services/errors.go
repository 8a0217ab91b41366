package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a pipeline failure so callers can present actionable guidance.
type Kind string

const (
	KindNetwork          Kind = "network"
	KindFilesystem       Kind = "filesystem"
	KindProcessSpawn     Kind = "process_spawn"
	KindProcessExecution Kind = "process_execution"
	KindFormatValidation Kind = "format_validation"
	KindModelLoad        Kind = "model_load"
	KindInference        Kind = "inference"
	KindValidation       Kind = "validation"
	KindCanceled         Kind = "canceled"
	kindUnknown          Kind = ""
)

// Sentinel markers usable with errors.Is. Every *Error matches the marker of its Kind.
var (
	ErrNetwork          = errors.New("network error")
	ErrFilesystem       = errors.New("filesystem error")
	ErrProcessSpawn     = errors.New("process spawn error")
	ErrProcessExecution = errors.New("process execution error")
	ErrFormatValidation = errors.New("format validation error")
	ErrModelLoad        = errors.New("model load error")
	ErrInference        = errors.New("inference error")
	ErrValidation       = errors.New("validation error")
	ErrCanceled         = errors.New("canceled")
)

var kindMarkers = map[Kind]error{
	KindNetwork:          ErrNetwork,
	KindFilesystem:       ErrFilesystem,
	KindProcessSpawn:     ErrProcessSpawn,
	KindProcessExecution: ErrProcessExecution,
	KindFormatValidation: ErrFormatValidation,
	KindModelLoad:        ErrModelLoad,
	KindInference:        ErrInference,
	KindValidation:       ErrValidation,
	KindCanceled:         ErrCanceled,
}

// Marker returns the sentinel error associated with the kind.
func (k Kind) Marker() error {
	return kindMarkers[k]
}

func (k Kind) String() string {
	if k == kindUnknown {
		return "unknown"
	}
	return string(k)
}

// Error is the structured failure surfaced by every core component.
//
// Op names the failing operation (for example "modelcache.download").
// Detail carries verbatim diagnostic payload such as captured standard error.
type Error struct {
	Kind       Kind
	Op         string
	Message    string
	Detail     string
	StatusCode int
	ExitCode   int
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.render(true)
}

func (e *Error) render(withDetail bool) string {
	parts := make([]string, 0, 4)
	if marker := e.Kind.Marker(); marker != nil {
		parts = append(parts, marker.Error())
	}
	if op := strings.TrimSpace(e.Op); op != "" {
		parts = append(parts, op)
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if detail := strings.TrimSpace(e.Detail); detail != "" {
		if withDetail {
			parts = append(parts, detail)
		}
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the sentinel marker of the error's kind.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	marker := e.Kind.Marker()
	return marker != nil && target == marker
}

// New builds an error of the given kind without an underlying cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap tags err with the kind identified by marker. A canceled context is
// always reported as KindCanceled; deadline expiry keeps the marker's kind.
func Wrap(marker error, op, message string, err error) error {
	kind := kindForMarker(marker)
	if err != nil && errors.Is(err, context.Canceled) {
		kind = KindCanceled
	}
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// Canceled wraps a context error as KindCanceled.
func Canceled(op string, err error) error {
	if err == nil {
		err = context.Canceled
	}
	return &Error{Kind: KindCanceled, Op: op, Message: "operation canceled", Err: err}
}

// KindOf reports the kind of the first *Error in err's chain. Bare context
// errors report KindCanceled.
func KindOf(err error) (Kind, bool) {
	if err == nil {
		return kindUnknown, false
	}
	var svcErr *Error
	if errors.As(err, &svcErr) && svcErr.Kind != kindUnknown {
		return svcErr.Kind, true
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled, true
	}
	return kindUnknown, false
}

// Detail returns the verbatim diagnostic payload carried by err, if any.
func Detail(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Detail
	}
	return ""
}

// Headline renders err without the Detail payload of the *Error it carries,
// for callers that print the detail separately.
func Headline(err error) string {
	if err == nil {
		return ""
	}
	var svcErr *Error
	if !errors.As(err, &svcErr) || strings.TrimSpace(svcErr.Detail) == "" {
		return err.Error()
	}
	return strings.Replace(err.Error(), svcErr.Error(), svcErr.render(false), 1)
}

// Hint maps a failure kind to user-facing remediation text.
func Hint(kind Kind) string {
	switch kind {
	case KindNetwork:
		return "check your network connection and try again"
	case KindFilesystem:
		return "check free disk space and permissions on the data directory"
	case KindProcessSpawn:
		return "install the missing tool or fix its path under [tools] in the config"
	case KindProcessExecution:
		return "inspect the tool output above; the input may be unsupported or corrupt"
	case KindFormatValidation:
		return "re-encode your audio as 16 kHz mono 32-bit float WAV"
	case KindModelLoad:
		return "delete the cached model file so it is downloaded again"
	case KindInference:
		return "retry with a different model or language setting"
	case KindValidation:
		return "check the command arguments"
	case KindCanceled:
		return "the operation was canceled"
	default:
		return "check logs for details"
	}
}

// Describe renders err for display at the outer boundary.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	kind, ok := KindOf(err)
	if !ok {
		return err.Error()
	}
	return fmt.Sprintf("%s (%s)", err.Error(), Hint(kind))
}

func kindForMarker(marker error) Kind {
	for kind, candidate := range kindMarkers {
		if candidate == marker {
			return kind
		}
	}
	return kindUnknown
}
