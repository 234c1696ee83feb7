package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/mira-stack/backend-quotes/internal/obs"
	"github.com/mira-stack/backend-quotes/internal/quote"
)

// TypeDriftScan compares a quote's add-on snapshots against the live catalog.
const TypeDriftScan = "quote:drift_scan"

// DriftPayload is the task body for a single-quote drift scan.
type DriftPayload struct {
	QuoteID uuid.UUID `json:"quoteId"`
}

// NewDriftScanTask builds the asynq task for one quote.
func NewDriftScanTask(quoteID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(DriftPayload{QuoteID: quoteID})
	if err != nil {
		return nil, fmt.Errorf("encode drift payload: %w", err)
	}
	return asynq.NewTask(TypeDriftScan, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
	), nil
}

// Enqueuer adapts an asynq client to the quote service's queue contract.
type Enqueuer struct {
	Client *asynq.Client
}

// EnqueueDriftScan implements quote.TaskEnqueuer.
func (e *Enqueuer) EnqueueDriftScan(ctx context.Context, quoteID uuid.UUID) error {
	task, err := NewDriftScanTask(quoteID)
	if err != nil {
		return err
	}
	if _, err := e.Client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue drift scan: %w", err)
	}
	return nil
}

// DriftScanner processes drift scan tasks. Findings are logged; the stored
// snapshots stay authoritative and are never rewritten by the scan.
type DriftScanner struct {
	Repo   quote.Repository
	Ctrl   *quote.Controller
	Logger zerolog.Logger
}

// ProcessTask implements asynq.Handler.
func (s *DriftScanner) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload DriftPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode drift payload: %w", err)
	}
	d, err := s.Repo.Get(ctx, payload.QuoteID)
	if err != nil {
		// quotes deleted between enqueue and scan are not an error
		if errors.Is(err, quote.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load quote %s: %w", payload.QuoteID, err)
	}
	warnings, err := s.Ctrl.Inspect(ctx, d)
	if err != nil {
		return fmt.Errorf("inspect quote %s: %w", payload.QuoteID, err)
	}
	for _, w := range warnings {
		obs.ObserveDriftWarning(string(w.Code))
		s.Logger.Warn().
			Str("quote_id", d.ID.String()).
			Str("code", string(w.Code)).
			Str("addon_id", w.AddOnID).
			Msg(w.Message)
	}
	if len(warnings) == 0 {
		s.Logger.Debug().Str("quote_id", d.ID.String()).Msg("drift scan clean")
	}
	return nil
}
