package quote

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mira-stack/backend-quotes/internal/pricing"
)

// MaxAddOns is the hard cap of selections per quote. Mutations beyond the cap
// are rejected, never truncated.
const MaxAddOns = 20

// MaxGroupSize bounds the traveller count. Per-unit contributions multiply
// unit prices by the group size, so an unbounded value could overflow the
// minor-unit arithmetic.
const MaxGroupSize = 1_000

const maxAddOnNameLen = 200

// ErrNotFound indicates the requested quote could not be located.
var ErrNotFound = errors.New("quote not found")

// ErrValidation is returned when a mutation payload is invalid. The draft is
// left untouched.
var ErrValidation = errors.New("invalid input")

// ErrAddOnNotFound indicates the referenced add-on has no catalog record.
// Blocking for new selections only; existing snapshots survive deletion.
var ErrAddOnNotFound = errors.New("add-on not found in catalog")

// SyncStatus classifies whether the stored total matches the computed total.
type SyncStatus string

const (
	// StatusSynced means the stored total tracks the expected total.
	StatusSynced SyncStatus = "SYNCED"
	// StatusCustom means the operator overrode the total; it is preserved.
	StatusCustom SyncStatus = "CUSTOM"
	// StatusCalculating means a base-price lookup is in flight.
	StatusCalculating SyncStatus = "CALCULATING"
	// StatusError means the last recalculation failed; the total keeps its
	// last known value and manual entry is allowed.
	StatusError SyncStatus = "ERROR"
	// StatusOutOfSync means structural inputs changed since the last
	// successful recalculation. Advisory only.
	StatusOutOfSync SyncStatus = "OUT_OF_SYNC"
)

// BaseSourceKind discriminates where the base price comes from.
type BaseSourceKind string

const (
	// BaseSourceNone is a fresh quote without a base.
	BaseSourceNone BaseSourceKind = "NONE"
	// BaseSourcePackage links the base to a catalog package.
	BaseSourcePackage BaseSourceKind = "PACKAGE"
	// BaseSourceManual is a freely entered base amount.
	BaseSourceManual BaseSourceKind = "MANUAL"
)

// BaseSource identifies the origin of the quote's base price.
type BaseSource struct {
	Kind           BaseSourceKind `json:"kind"`
	PackageID      string         `json:"packageId,omitempty"`
	PackageVersion int            `json:"packageVersion,omitempty"`
	TierLabel      string         `json:"tierLabel,omitempty"`
	Period         string         `json:"period,omitempty"`
	Nights         int            `json:"nights,omitempty"`
}

// AddOnSelection is the snapshot of one chosen add-on, taken at selection
// time. Later catalog edits or deletions never alter it; only the explicit
// per-unit toggle mutates a selection in place.
type AddOnSelection struct {
	AddOnID        uuid.UUID        `json:"addOnId"`
	Name           string           `json:"name"`
	UnitPrice      pricing.Money    `json:"unitPrice"`
	Currency       pricing.Currency `json:"currency"`
	PerUnitPricing bool             `json:"perUnitPricing"`
	AddedAt        time.Time        `json:"addedAt"`
}

// HistoryReason tags why a total-price change was recorded.
type HistoryReason string

const (
	// ReasonPackageSelected marks a base package selection resolving.
	ReasonPackageSelected HistoryReason = "PACKAGE_SELECTED"
	// ReasonRecalculated marks a formula-driven total update.
	ReasonRecalculated HistoryReason = "RECALCULATED"
	// ReasonManualOverride marks an operator-entered total.
	ReasonManualOverride HistoryReason = "MANUAL_OVERRIDE"
	// ReasonAddOnAdded marks an add-on selection.
	ReasonAddOnAdded HistoryReason = "ADDON_ADDED"
	// ReasonAddOnRemoved marks an add-on removal.
	ReasonAddOnRemoved HistoryReason = "ADDON_REMOVED"
)

// HistoryEntry is an immutable record of a total-price change.
type HistoryEntry struct {
	Price      pricing.Money `json:"price"`
	Reason     HistoryReason `json:"reason"`
	ActorID    string        `json:"actorId"`
	RecordedAt time.Time     `json:"recordedAt"`
}

// Draft is the mutable working state of one quote being priced. A draft is
// owned by a single interactive session; the engine never shares one between
// concurrent mutation streams.
type Draft struct {
	ID         uuid.UUID        `json:"id"`
	GroupSize  int              `json:"groupSize"`
	Currency   pricing.Currency `json:"currency"`
	BasePrice  pricing.Money    `json:"basePrice"`
	BaseSource BaseSource       `json:"baseSource"`
	AddOns     []AddOnSelection `json:"addOns"`
	TotalPrice pricing.Money    `json:"totalPrice"`
	SyncStatus SyncStatus       `json:"syncStatus"`
	History    []HistoryEntry   `json:"priceHistory"`

	// RecalcToken identifies the latest dispatched base-price lookup. A
	// resolution carrying a stale token is dropped.
	RecalcToken uint64 `json:"-"`
	// RecalcForced is set when the pending lookup came from an explicit
	// recalculate action, which adopts the result unconditionally.
	RecalcForced bool `json:"-"`
	// RecalcFromCustom preserves an operator override across a pending
	// lookup that was not explicitly forced.
	RecalcFromCustom bool `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy so the controller can return a new state without
// mutating the caller's draft.
func (d Draft) Clone() Draft {
	next := d
	next.AddOns = append([]AddOnSelection(nil), d.AddOns...)
	next.History = append([]HistoryEntry(nil), d.History...)
	return next
}

// LineItems converts the selections into pricing inputs.
func (d Draft) LineItems() []pricing.LineItem {
	items := make([]pricing.LineItem, 0, len(d.AddOns))
	for _, a := range d.AddOns {
		items = append(items, pricing.LineItem{
			AddOnID:   a.AddOnID.String(),
			Name:      a.Name,
			UnitPrice: a.UnitPrice,
			Currency:  a.Currency,
			PerUnit:   a.PerUnitPricing,
		})
	}
	return items
}

// Breakdown computes the current expected total and its itemisation.
func (d Draft) Breakdown() pricing.Breakdown {
	return pricing.Aggregate(d.BasePrice, d.LineItems(), d.Currency, d.GroupSize)
}

// Validate checks the draft's own invariants.
func (d Draft) Validate() error {
	if d.GroupSize < 1 || d.GroupSize > MaxGroupSize {
		return fmt.Errorf("group size must be between 1 and %d: %w", MaxGroupSize, ErrValidation)
	}
	if !d.Currency.Valid() {
		return fmt.Errorf("currency %q: %w", d.Currency, ErrValidation)
	}
	if d.BasePrice < 0 {
		return fmt.Errorf("base price must not be negative: %w", ErrValidation)
	}
	if d.TotalPrice < 0 {
		return fmt.Errorf("total price must not be negative: %w", ErrValidation)
	}
	if len(d.AddOns) > MaxAddOns {
		return fmt.Errorf("at most %d add-ons per quote: %w", MaxAddOns, ErrValidation)
	}
	for _, a := range d.AddOns {
		if err := a.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (a AddOnSelection) validate() error {
	name := strings.TrimSpace(a.Name)
	if name == "" || len(name) > maxAddOnNameLen {
		return fmt.Errorf("add-on name must be 1-%d characters: %w", maxAddOnNameLen, ErrValidation)
	}
	if a.UnitPrice < 0 {
		return fmt.Errorf("add-on unit price must not be negative: %w", ErrValidation)
	}
	if !a.Currency.Valid() {
		return fmt.Errorf("add-on currency %q: %w", a.Currency, ErrValidation)
	}
	return nil
}

func (d Draft) indexOfAddOn(id uuid.UUID) int {
	for i, a := range d.AddOns {
		if a.AddOnID == id {
			return i
		}
	}
	return -1
}
