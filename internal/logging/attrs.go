package logging

import (
	"context"
	"log/slog"
)

// Standardized structured logging keys shared across components.
const (
	// FieldComponent names the subsystem emitting a record.
	FieldComponent = "component"
	// FieldJobID is the job identifier.
	FieldJobID = "job_id"
	// FieldClient is the extraction client variant in use.
	FieldClient = "client"
	// FieldEventType categorizes notable events for log filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests a next step when an operation fails.
	FieldErrorHint = "error_hint"
)

type Attr = slog.Attr

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NewComponentLogger creates a logger with a standardized component attribute.
// If logger is nil, a no-op logger is used as the base.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// NoopHandler discards all log output.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }

func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler { return NoopHandler{} }

func (NoopHandler) WithGroup(string) slog.Handler { return NoopHandler{} }
