package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/layer-3/rotor/core"
	"github.com/layer-3/rotor/ports"
)

// LogEmitter writes refresh decisions to the structured log
type LogEmitter struct {
	logger *zap.Logger
}

// NewLogEmitter creates a new log emitter
func NewLogEmitter(logger *zap.Logger) ports.EventEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogEmitter{logger: logger}
}

// Emit logs event. Denials carry the full cause.
func (l *LogEmitter) Emit(_ context.Context, event core.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("decision", string(event.Decision)),
		zap.Time("time", event.Time),
	}
	if event.Subject != "" {
		fields = append(fields, zap.String("subject", event.Subject))
	}

	if event.Decision == core.DecisionAllow {
		l.logger.Info("refresh allowed", fields...)
		return nil
	}

	fields = append(fields, zap.String("kind", event.Kind), zap.String("reason", event.Reason))
	l.logger.Warn("refresh denied", fields...)
	return nil
}
