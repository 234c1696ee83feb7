package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event is a persisted domain event. The payload is an opaque JSON document
// owned by the emitting module.
type Event struct {
	ID          uuid.UUID       `json:"id"`
	Topic       string          `json:"topic"`
	AggregateID uuid.UUID       `json:"aggregateId"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// Store persists events before any notifier sees them.
type Store interface {
	InsertDomainEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (Event, error)
}

// Notifier reacts to a stored event. Notifier failures never fail the emit;
// the event is already durable.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Bus stores domain events and fans them out to notifiers.
type Bus struct {
	Store     Store
	Notifiers []Notifier
	Logger    zerolog.Logger
}

// NewBus wires a bus around a store.
func NewBus(store Store, logger zerolog.Logger, notifiers ...Notifier) *Bus {
	return &Bus{Store: store, Notifiers: notifiers, Logger: logger}
}

// Emit encodes the payload, persists the event and notifies subscribers.
func (b *Bus) Emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", topic, err)
	}
	ev, err := b.Store.InsertDomainEvent(ctx, topic, aggregateID, raw)
	if err != nil {
		return Event{}, fmt.Errorf("store %s event: %w", topic, err)
	}
	for _, n := range b.Notifiers {
		if err := n.Notify(ctx, ev); err != nil {
			b.Logger.Error().Err(err).
				Str("topic", ev.Topic).
				Str("event_id", ev.ID.String()).
				Msg("event notifier failed")
		}
	}
	return ev, nil
}
