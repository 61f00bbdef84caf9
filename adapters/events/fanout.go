package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/layer-3/rotor/core"
	"github.com/layer-3/rotor/ports"
)

// Fanout delivers each event to every emitter. A failing emitter is logged
// and does not stop delivery to the others.
type Fanout struct {
	emitters []ports.EventEmitter
	logger   *zap.Logger
}

// NewFanout creates a fan-out over emitters; nil entries are skipped
func NewFanout(logger *zap.Logger, emitters ...ports.EventEmitter) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &Fanout{logger: logger}
	for _, e := range emitters {
		if e != nil {
			f.emitters = append(f.emitters, e)
		}
	}
	return f
}

// Emit never fails
func (f *Fanout) Emit(ctx context.Context, event core.Event) error {
	for _, e := range f.emitters {
		if err := e.Emit(ctx, event); err != nil {
			f.logger.Error("failed to emit event",
				zap.String("event_id", event.ID),
				zap.String("decision", string(event.Decision)),
				zap.Error(err),
			)
		}
	}
	return nil
}
