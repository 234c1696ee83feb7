package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mira-stack/backend-quotes/internal/events"
	"github.com/mira-stack/backend-quotes/internal/pricing"
)

// Store persists drafts in PostgreSQL. Selections and history are kept as
// JSONB documents; they are only ever read and written as a whole alongside
// their draft.
type Store struct {
	Pool *pgxpool.Pool
}

// NewStore wires a store around a connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

const quoteColumns = `id, group_size, currency, base_price, base_source, add_ons,
	total_price, sync_status, history, recalc_token, recalc_forced,
	recalc_from_custom, created_at, updated_at`

// Create inserts a fresh draft.
func (s *Store) Create(ctx context.Context, d Draft) error {
	baseSource, addOns, history, err := marshalDocs(d)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO quotes (`+quoteColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		d.ID, d.GroupSize, string(d.Currency), d.BasePrice, baseSource, addOns,
		d.TotalPrice, string(d.SyncStatus), history, int64(d.RecalcToken),
		d.RecalcForced, d.RecalcFromCustom, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert quote: %w", err)
	}
	return nil
}

// Get loads one draft by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Draft, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT `+quoteColumns+`
		FROM quotes WHERE id = $1`, id)
	return scanDraft(row)
}

// Update writes the draft back. The id must already exist.
func (s *Store) Update(ctx context.Context, d Draft) error {
	baseSource, addOns, history, err := marshalDocs(d)
	if err != nil {
		return err
	}
	tag, err := s.Pool.Exec(ctx, `
		UPDATE quotes SET
			group_size = $2, currency = $3, base_price = $4, base_source = $5,
			add_ons = $6, total_price = $7, sync_status = $8, history = $9,
			recalc_token = $10, recalc_forced = $11, recalc_from_custom = $12,
			updated_at = $13
		WHERE id = $1`,
		d.ID, d.GroupSize, string(d.Currency), d.BasePrice, baseSource, addOns,
		d.TotalPrice, string(d.SyncStatus), history, int64(d.RecalcToken),
		d.RecalcForced, d.RecalcFromCustom, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update quote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListIDs pages through quote ids ordered by recency, used by the catalog
// drift sweep.
func (s *Store) ListIDs(ctx context.Context, limit, offset int) ([]uuid.UUID, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id FROM quotes
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan quote id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertDomainEvent implements events.Store.
func (s *Store) InsertDomainEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	ev := events.Event{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
	}
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO domain_events (id, topic, aggregate_id, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING occurred_at`,
		ev.ID, ev.Topic, ev.AggregateID, ev.Payload)
	if err := row.Scan(&ev.OccurredAt); err != nil {
		return events.Event{}, fmt.Errorf("insert domain event: %w", err)
	}
	return ev, nil
}

func marshalDocs(d Draft) (baseSource, addOns, history []byte, err error) {
	if baseSource, err = json.Marshal(d.BaseSource); err != nil {
		return nil, nil, nil, fmt.Errorf("encode base source: %w", err)
	}
	if d.AddOns == nil {
		d.AddOns = []AddOnSelection{}
	}
	if addOns, err = json.Marshal(d.AddOns); err != nil {
		return nil, nil, nil, fmt.Errorf("encode add-ons: %w", err)
	}
	if d.History == nil {
		d.History = []HistoryEntry{}
	}
	if history, err = json.Marshal(d.History); err != nil {
		return nil, nil, nil, fmt.Errorf("encode history: %w", err)
	}
	return baseSource, addOns, history, nil
}

func scanDraft(row pgx.Row) (Draft, error) {
	var (
		d          Draft
		currency   string
		status     string
		baseSource []byte
		addOns     []byte
		history    []byte
		token      int64
	)
	err := row.Scan(
		&d.ID, &d.GroupSize, &currency, &d.BasePrice, &baseSource, &addOns,
		&d.TotalPrice, &status, &history, &token, &d.RecalcForced,
		&d.RecalcFromCustom, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Draft{}, ErrNotFound
	}
	if err != nil {
		return Draft{}, fmt.Errorf("scan quote: %w", err)
	}
	d.Currency = pricing.Currency(currency)
	d.SyncStatus = SyncStatus(status)
	d.RecalcToken = uint64(token)
	if err := json.Unmarshal(baseSource, &d.BaseSource); err != nil {
		return Draft{}, fmt.Errorf("decode base source: %w", err)
	}
	if err := json.Unmarshal(addOns, &d.AddOns); err != nil {
		return Draft{}, fmt.Errorf("decode add-ons: %w", err)
	}
	if err := json.Unmarshal(history, &d.History); err != nil {
		return Draft{}, fmt.Errorf("decode history: %w", err)
	}
	return d, nil
}
