package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mira-stack/backend-quotes/internal/common"
	"github.com/mira-stack/backend-quotes/internal/events"
)

func exportEvent(t *testing.T, email, summary string) events.Event {
	t.Helper()
	payload, err := json.Marshal(map[string]string{
		"email":   email,
		"subject": "Travel quote abc",
		"summary": summary,
	})
	require.NoError(t, err)
	return events.Event{
		ID:          uuid.New(),
		Topic:       events.TopicQuoteExported,
		AggregateID: uuid.New(),
		Payload:     payload,
	}
}

func TestEmailNotifierSendsExportedSummary(t *testing.T) {
	mail := &common.InMemoryEmail{}
	n := EmailNotifier{Mail: mail, Enabled: true}

	require.NoError(t, n.Notify(context.Background(), exportEvent(t, "ops@example.com", "Quoted total: €1750.00")))
	require.Len(t, mail.Outbox, 1)
	require.Equal(t, "ops@example.com", mail.Outbox[0].To)
	require.Equal(t, "Travel quote abc", mail.Outbox[0].Subject)
	require.Contains(t, mail.Outbox[0].Body, "€1750.00")
}

func TestEmailNotifierIgnoresOtherTopics(t *testing.T) {
	mail := &common.InMemoryEmail{}
	n := EmailNotifier{Mail: mail, Enabled: true}

	ev := exportEvent(t, "ops@example.com", "x")
	ev.Topic = events.TopicQuotePriceChanged
	require.NoError(t, n.Notify(context.Background(), ev))
	require.Empty(t, mail.Outbox)
}

func TestEmailNotifierDisabled(t *testing.T) {
	mail := &common.InMemoryEmail{}
	n := EmailNotifier{Mail: mail, Enabled: false}

	require.NoError(t, n.Notify(context.Background(), exportEvent(t, "ops@example.com", "x")))
	require.Empty(t, mail.Outbox)
}

func TestEmailNotifierMissingRecipientIsSkipped(t *testing.T) {
	mail := &common.InMemoryEmail{}
	n := EmailNotifier{Mail: mail, Enabled: true}

	require.NoError(t, n.Notify(context.Background(), exportEvent(t, "  ", "x")))
	require.Empty(t, mail.Outbox)
}
