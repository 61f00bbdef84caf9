package ports

import (
	"context"

	"github.com/layer-3/rotor/core"
)

// EventEmitter records the outcome of each request
type EventEmitter interface {
	Emit(ctx context.Context, event core.Event) error
}
