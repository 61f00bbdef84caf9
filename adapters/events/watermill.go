package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/layer-3/rotor/core"
	"github.com/layer-3/rotor/ports"
)

// DefaultTopic is the topic refresh decisions are published on
const DefaultTopic = "rotor.refresh"

// WatermillEmitter publishes refresh decisions through a Watermill publisher
type WatermillEmitter struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillEmitter creates a new Watermill emitter
func NewWatermillEmitter(publisher message.Publisher, topic string) ports.EventEmitter {
	if topic == "" {
		topic = DefaultTopic
	}
	return &WatermillEmitter{
		publisher: publisher,
		topic:     topic,
	}
}

// Emit publishes event as JSON
func (p *WatermillEmitter) Emit(ctx context.Context, event core.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}

	msg := message.NewMessage(id, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("decision", string(event.Decision))

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
