package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobcontrol/internal/audit"
)

// LogSink writes each audit event as a structured log line.
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

// Consume logs the batch. Faults are logged at warn level.
func (s *LogSink) Consume(_ context.Context, batch []audit.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.Stringer("event_id", evt.ID),
			zap.Time("ts", evt.TS),
			zap.String("action", string(evt.Action)),
			zap.String("from", evt.From),
			zap.String("to", evt.To),
			zap.Int("speed", evt.Speed),
			zap.Bool("interlock", evt.Interlock),
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		switch evt.Action {
		case audit.ActionStartFault, audit.ActionStopFault:
			s.logger.Warn("audit event", fields...)
		default:
			s.logger.Info("audit event", fields...)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
