package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/forgemedia/portal/internal/lifecycle"
)

// LogSink emits structured logs for the lifecycle stream. It doubles as the
// audit trail during development where a metrics backend is unavailable.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []lifecycle.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("order_id", evt.OrderID),
			zap.String("stage", string(evt.Stage)),
			zap.String("service_type", string(evt.ServiceType)),
			zap.String("from", string(evt.From)),
			zap.String("to", string(evt.To)),
		}
		if evt.Worker != "" {
			fields = append(fields, zap.String("worker", evt.Worker))
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		if evt.Dur > 0 {
			fields = append(fields, zap.Duration("dur", evt.Dur))
		}
		s.logger.Info("order lifecycle event", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
