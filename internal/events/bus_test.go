package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	events []Event
	err    error
}

func (m *memStore) InsertDomainEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (Event, error) {
	if m.err != nil {
		return Event{}, m.err
	}
	ev := Event{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  time.Now().UTC(),
	}
	m.events = append(m.events, ev)
	return ev, nil
}

type memNotifier struct {
	seen []Event
	err  error
}

func (m *memNotifier) Notify(_ context.Context, ev Event) error {
	m.seen = append(m.seen, ev)
	return m.err
}

func TestEmitStoresThenNotifies(t *testing.T) {
	store := &memStore{}
	first := &memNotifier{}
	second := &memNotifier{}
	bus := NewBus(store, zerolog.Nop(), first, second)

	id := uuid.New()
	ev, err := bus.Emit(context.Background(), TopicQuotePriceChanged, id, map[string]any{"total": 175000})
	require.NoError(t, err)
	require.Equal(t, TopicQuotePriceChanged, ev.Topic)
	require.Equal(t, id, ev.AggregateID)
	require.Len(t, store.events, 1)
	require.Len(t, first.seen, 1)
	require.Len(t, second.seen, 1)
	require.JSONEq(t, `{"total":175000}`, string(ev.Payload))
}

func TestEmitNotifierFailureDoesNotFailEmit(t *testing.T) {
	store := &memStore{}
	bad := &memNotifier{err: errors.New("smtp down")}
	good := &memNotifier{}
	bus := NewBus(store, zerolog.Nop(), bad, good)

	_, err := bus.Emit(context.Background(), TopicQuoteExported, uuid.New(), map[string]string{"email": "ops@example.com"})
	require.NoError(t, err)
	require.Len(t, good.seen, 1)
}

func TestEmitStoreFailureFails(t *testing.T) {
	store := &memStore{err: errors.New("db down")}
	n := &memNotifier{}
	bus := NewBus(store, zerolog.Nop(), n)

	_, err := bus.Emit(context.Background(), TopicQuoteCreated, uuid.New(), nil)
	require.Error(t, err)
	require.Empty(t, n.seen)
}
