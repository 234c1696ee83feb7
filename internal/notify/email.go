package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mira-stack/backend-quotes/internal/common"
	"github.com/mira-stack/backend-quotes/internal/events"
)

// EmailNotifier delivers exported quote summaries by email. It subscribes to
// the event bus and ignores every topic other than quote.exported.
type EmailNotifier struct {
	Mail    common.EmailSender
	Enabled bool
	From    string
}

// Notify implements events.Notifier.
func (n EmailNotifier) Notify(_ context.Context, ev events.Event) error {
	if !n.Enabled || n.Mail == nil {
		return nil
	}
	if ev.Topic != events.TopicQuoteExported {
		return nil
	}
	var payload struct {
		Email   string `json:"email"`
		Subject string `json:"subject"`
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		return fmt.Errorf("email notify: decode payload: %w", err)
	}
	to := strings.TrimSpace(payload.Email)
	if to == "" {
		return nil
	}
	subject := payload.Subject
	if subject == "" {
		subject = fmt.Sprintf("Travel quote %s", ev.AggregateID)
	}
	return n.Mail.Send(to, subject, payload.Summary)
}
