package quote

import (
	"github.com/google/uuid"

	"github.com/mira-stack/backend-quotes/internal/pricing"
)

// Event is a single operator (or system) mutation applied to a draft.
type Event interface {
	isEvent()
}

// SetManualBase replaces the base price with a freely entered amount.
type SetManualBase struct {
	Amount pricing.Money
}

// SelectPackage links the base price to a catalog package. The price itself
// arrives asynchronously via RecalcResolved.
type SelectPackage struct {
	PackageID      string
	PackageVersion int
	TierLabel      string
	Period         string
	Nights         int
}

// AddAddOn selects a catalog add-on. PerUnit overrides the catalog default
// pricing mode when non-nil.
type AddAddOn struct {
	AddOnID uuid.UUID
	PerUnit *bool
}

// RemoveAddOn drops a selection.
type RemoveAddOn struct {
	AddOnID uuid.UUID
}

// TogglePerUnit flips a selection between per-participant and flat pricing.
type TogglePerUnit struct {
	AddOnID uuid.UUID
}

// SetGroupSize changes the number of participants.
type SetGroupSize struct {
	Size int
}

// SetCurrency changes the quote currency. Add-on snapshots are never
// converted; mismatching ones drop out of the total.
type SetCurrency struct {
	Currency pricing.Currency
}

// EditTotal sets the total price directly.
type EditTotal struct {
	Amount pricing.Money
}

// Recalculate forces a fresh computation, discarding any manual override.
type Recalculate struct{}

// ResetToCalculated is the explicit "back to computed price" action. It is
// Recalculate under a different name on the wire.
type ResetToCalculated struct{}

// RecalcResolved delivers the outcome of an asynchronous base-price lookup.
// Emitted by the system, not by operators.
type RecalcResolved struct {
	Token     uint64
	Price     pricing.Money
	Currency  pricing.Currency
	OnRequest bool
	Err       error
}

func (SetManualBase) isEvent()     {}
func (SelectPackage) isEvent()     {}
func (AddAddOn) isEvent()          {}
func (RemoveAddOn) isEvent()       {}
func (TogglePerUnit) isEvent()     {}
func (SetGroupSize) isEvent()      {}
func (SetCurrency) isEvent()       {}
func (EditTotal) isEvent()         {}
func (Recalculate) isEvent()       {}
func (ResetToCalculated) isEvent() {}
func (RecalcResolved) isEvent()    {}
