// ABOUTME: Audit sink interface and the structured-log backed implementation
// ABOUTME: The dispatcher records events at exactly four tool lifecycle points

package audit

import (
	"context"
	"log/slog"
)

// Actions recorded by the dispatcher.
const (
	ActionToolExecute      = "tool.execute"
	ActionToolSuccess      = "tool.success"
	ActionToolError        = "tool.error"
	ActionToolUnauthorized = "tool.unauthorized"
)

// Sink receives audit events. Implementations must tolerate being called
// concurrently and must not fail the request on a recording error.
type Sink interface {
	Record(ctx context.Context, action string, detail map[string]any)
}

// LogSink writes audit events to the structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink backed by the given logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Record logs the event at info level.
func (s *LogSink) Record(_ context.Context, action string, detail map[string]any) {
	s.logger.Info("audit event", "action", action, "detail", detail)
}

// NopSink discards all events. Useful in tests.
type NopSink struct{}

// Record does nothing.
func (NopSink) Record(context.Context, string, map[string]any) {}
