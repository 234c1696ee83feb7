package quote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mira-stack/backend-quotes/internal/catalog"
	"github.com/mira-stack/backend-quotes/internal/events"
	"github.com/mira-stack/backend-quotes/internal/obs"
	"github.com/mira-stack/backend-quotes/internal/pricing"
)

// TaskEnqueuer schedules background work without binding the service to a
// specific queue implementation.
type TaskEnqueuer interface {
	EnqueueDriftScan(ctx context.Context, quoteID uuid.UUID) error
}

// Repository is the persistence contract the service needs. Store is the
// PostgreSQL implementation.
type Repository interface {
	Create(ctx context.Context, d Draft) error
	Get(ctx context.Context, id uuid.UUID) (Draft, error)
	Update(ctx context.Context, d Draft) error
	ListIDs(ctx context.Context, limit, offset int) ([]uuid.UUID, error)
}

// Service orchestrates draft mutations: load, apply, persist, emit. It also
// owns the asynchronous base-price lookups; at most one is in flight per
// quote and dispatching a new one cancels its predecessor.
type Service struct {
	Store         Repository
	Ctrl          *Controller
	Catalog       catalog.Provider
	Bus           *events.Bus
	Tasks         TaskEnqueuer
	Logger        zerolog.Logger
	LookupTimeout time.Duration

	mu       sync.Mutex
	inflight map[uuid.UUID]*recalcHandle
}

type recalcHandle struct {
	token  uint64
	cancel context.CancelFunc
}

// NewService wires a service. Bus and Tasks may be nil.
func NewService(store Repository, ctrl *Controller, cat catalog.Provider, bus *events.Bus, tasks TaskEnqueuer, logger zerolog.Logger) *Service {
	return &Service{
		Store:         store,
		Ctrl:          ctrl,
		Catalog:       cat,
		Bus:           bus,
		Tasks:         tasks,
		Logger:        logger,
		LookupTimeout: 10 * time.Second,
		inflight:      map[uuid.UUID]*recalcHandle{},
	}
}

// CreateInput describes a new draft.
type CreateInput struct {
	GroupSize int
	Currency  pricing.Currency
	BasePrice *pricing.Money
}

// Create builds and persists a fresh draft. An optional base price seeds a
// manual base; otherwise the draft starts without one.
func (s *Service) Create(ctx context.Context, actorID string, in CreateInput) (Draft, error) {
	now := s.Ctrl.now().UTC()
	d := Draft{
		ID:         uuid.New(),
		GroupSize:  in.GroupSize,
		Currency:   in.Currency,
		BaseSource: BaseSource{Kind: BaseSourceNone},
		SyncStatus: StatusSynced,
		AddOns:     []AddOnSelection{},
		History:    []HistoryEntry{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if in.BasePrice != nil {
		if *in.BasePrice < 0 {
			return Draft{}, fmt.Errorf("base price must not be negative: %w", ErrValidation)
		}
		d.BaseSource = BaseSource{Kind: BaseSourceManual}
		d.BasePrice = *in.BasePrice
		recordHistory(&d, *in.BasePrice, ReasonRecalculated, actorID, now)
		d.TotalPrice = *in.BasePrice
	}
	if err := d.Validate(); err != nil {
		return Draft{}, err
	}
	if err := s.Store.Create(ctx, d); err != nil {
		return Draft{}, err
	}
	s.emit(ctx, events.TopicQuoteCreated, d.ID, map[string]any{
		"groupSize": d.GroupSize,
		"currency":  d.Currency,
	})
	return d, nil
}

// Get loads a draft along with best-effort catalog advisories. A catalog
// outage degrades to no advisories rather than failing the read.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Draft, []Warning, error) {
	d, err := s.Store.Get(ctx, id)
	if err != nil {
		return Draft{}, nil, err
	}
	warnings, err := s.Ctrl.Inspect(ctx, d)
	if err != nil {
		s.Logger.Warn().Err(err).Str("quote_id", id.String()).Msg("catalog inspection skipped")
		warnings = nil
	}
	return d, warnings, nil
}

// History returns the append-only price audit trail.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]HistoryEntry, error) {
	d, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return d.History, nil
}

// Apply runs one mutation event through the controller and persists the
// outcome. Entering the calculating state dispatches a base-price lookup.
func (s *Service) Apply(ctx context.Context, id uuid.UUID, actorID string, ev Event) (Draft, []Warning, error) {
	d, err := s.Store.Get(ctx, id)
	if err != nil {
		return Draft{}, nil, err
	}
	next, warnings, err := s.Ctrl.Apply(ctx, d, actorID, ev)
	if err != nil {
		return Draft{}, nil, err
	}
	if err := s.Store.Update(ctx, next); err != nil {
		return Draft{}, nil, err
	}

	if res, ok := ev.(RecalcResolved); ok {
		switch {
		case res.Token != next.RecalcToken:
			obs.ObserveRecalc("superseded")
		case next.SyncStatus == StatusError:
			obs.ObserveRecalc("error")
		case next.SyncStatus == StatusCustom:
			obs.ObserveRecalc("preserved")
			obs.ObserveOverridePreserved()
		default:
			obs.ObserveRecalc("applied")
		}
	}
	for _, entry := range next.History[len(d.History):] {
		obs.ObserveHistoryEntry(string(entry.Reason))
	}

	if next.TotalPrice != d.TotalPrice {
		s.emit(ctx, events.TopicQuotePriceChanged, next.ID, map[string]any{
			"previousTotal": d.TotalPrice,
			"total":         next.TotalPrice,
			"syncStatus":    next.SyncStatus,
		})
	}
	if next.RecalcToken != d.RecalcToken {
		if next.SyncStatus == StatusCalculating {
			s.dispatchRecalc(next)
		} else {
			// the pending lookup was superseded without a replacement
			s.cancelRecalc(next.ID)
		}
	}
	if _, added := ev.(AddAddOn); added && s.Tasks != nil {
		if err := s.Tasks.EnqueueDriftScan(ctx, next.ID); err != nil {
			s.Logger.Warn().Err(err).Str("quote_id", next.ID.String()).Msg("drift scan enqueue failed")
		}
	}
	return next, warnings, nil
}

// Export renders the draft summary, records the export and returns the text.
func (s *Service) Export(ctx context.Context, id uuid.UUID, email string) (string, error) {
	d, err := s.Store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	summary := Summary(d)
	s.emit(ctx, events.TopicQuoteExported, d.ID, map[string]any{
		"email":   email,
		"subject": fmt.Sprintf("Travel quote %s", d.ID),
		"summary": summary,
	})
	return summary, nil
}

// dispatchRecalc starts the asynchronous package-price lookup for the
// draft's current token, cancelling any older lookup for the same quote.
func (s *Service) dispatchRecalc(d Draft) {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	if prev, ok := s.inflight[d.ID]; ok {
		prev.cancel()
	}
	handle := &recalcHandle{token: d.RecalcToken, cancel: cancel}
	s.inflight[d.ID] = handle
	s.mu.Unlock()

	req := catalog.PackagePriceReq{
		PackageID:      d.BaseSource.PackageID,
		PackageVersion: d.BaseSource.PackageVersion,
		Tier:           d.BaseSource.TierLabel,
		Period:         d.BaseSource.Period,
		Nights:         d.BaseSource.Nights,
		GroupSize:      d.GroupSize,
	}

	go func() {
		defer s.releaseRecalc(d.ID, handle)

		lookupCtx := ctx
		if s.LookupTimeout > 0 {
			var done context.CancelFunc
			lookupCtx, done = context.WithTimeout(ctx, s.LookupTimeout)
			defer done()
		}
		price, err := s.Catalog.PackagePrice(lookupCtx, req)
		if ctx.Err() != nil {
			// a newer dispatch took over while we were waiting
			return
		}
		res := RecalcResolved{Token: d.RecalcToken}
		if err != nil {
			res.Err = err
		} else {
			res.Price = price.Amount
			res.Currency = price.Currency
			res.OnRequest = price.OnRequest
		}
		if _, _, err := s.Apply(context.Background(), d.ID, SystemActor, res); err != nil {
			s.Logger.Error().Err(err).
				Str("quote_id", d.ID.String()).
				Uint64("token", d.RecalcToken).
				Msg("recalc resolution failed")
		}
	}()
}

func (s *Service) releaseRecalc(id uuid.UUID, handle *recalcHandle) {
	s.mu.Lock()
	if current, ok := s.inflight[id]; ok && current == handle {
		delete(s.inflight, id)
	}
	s.mu.Unlock()
}

func (s *Service) cancelRecalc(id uuid.UUID) {
	s.mu.Lock()
	if handle, ok := s.inflight[id]; ok {
		handle.cancel()
		delete(s.inflight, id)
	}
	s.mu.Unlock()
}

func (s *Service) emit(ctx context.Context, topic string, id uuid.UUID, payload any) {
	if s.Bus == nil {
		return
	}
	if _, err := s.Bus.Emit(ctx, topic, id, payload); err != nil {
		s.Logger.Error().Err(err).Str("topic", topic).Msg("event emit failed")
	}
}
