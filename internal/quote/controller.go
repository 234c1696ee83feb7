package quote

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mira-stack/backend-quotes/internal/pricing"
)

// SystemActor is recorded on history entries produced by asynchronous
// resolutions rather than a human operator.
const SystemActor = "system"

// Controller applies mutation events to drafts. Apply is a pure transition
// apart from catalog reads: it never mutates its input and returns the next
// state alongside any advisories. A failed transition returns the input draft
// unchanged.
type Controller struct {
	Resolver *Resolver
	Now      func() time.Time
}

// NewController wires a controller with the real clock.
func NewController(r *Resolver) *Controller {
	return &Controller{Resolver: r, Now: time.Now}
}

func (c *Controller) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Apply executes one event against the draft and returns the resulting state.
func (c *Controller) Apply(ctx context.Context, d Draft, actorID string, ev Event) (Draft, []Warning, error) {
	next := d.Clone()
	now := c.now()
	var warnings []Warning

	switch ev := ev.(type) {
	case SetManualBase:
		if ev.Amount < 0 {
			return d, nil, fmt.Errorf("base price must not be negative: %w", ErrValidation)
		}
		next.BasePrice = ev.Amount
		next.BaseSource = BaseSource{Kind: BaseSourceManual}
		// a manual base supersedes any in-flight package lookup
		next.RecalcToken++
		next.RecalcForced = false
		next.RecalcFromCustom = false
		if next.SyncStatus == StatusCalculating || next.SyncStatus == StatusError {
			next.SyncStatus = StatusSynced
		}
		warnings = c.settle(&next, actorID, ReasonRecalculated, now, false)

	case SelectPackage:
		if ev.PackageID == "" {
			return d, nil, fmt.Errorf("package id is required: %w", ErrValidation)
		}
		if ev.Nights < 0 {
			return d, nil, fmt.Errorf("nights must not be negative: %w", ErrValidation)
		}
		next.BaseSource = BaseSource{
			Kind:           BaseSourcePackage,
			PackageID:      ev.PackageID,
			PackageVersion: ev.PackageVersion,
			TierLabel:      ev.TierLabel,
			Period:         ev.Period,
			Nights:         ev.Nights,
		}
		next.RecalcToken++
		next.RecalcForced = false
		next.RecalcFromCustom = next.SyncStatus == StatusCustom
		next.SyncStatus = StatusCalculating
		// total untouched until the lookup resolves

	case RecalcResolved:
		if ev.Token != next.RecalcToken {
			// superseded by a newer dispatch; drop without a trace
			return d, nil, nil
		}
		forced := next.RecalcForced
		fromCustom := next.RecalcFromCustom
		next.RecalcForced = false
		next.RecalcFromCustom = false
		switch {
		case ev.Err != nil:
			next.SyncStatus = StatusError
			warnings = append(warnings, Warning{
				Code:    WarnCatalogError,
				Message: "base price lookup failed; total unchanged, manual entry allowed",
			})
		case ev.OnRequest:
			next.SyncStatus = StatusError
			warnings = append(warnings, Warning{
				Code:    WarnPriceOnRequest,
				Message: "package is priced on request; enter a base price manually",
			})
		case ev.Price < 0:
			next.SyncStatus = StatusError
			warnings = append(warnings, Warning{
				Code:    WarnCatalogError,
				Message: "catalog returned a negative package price",
			})
		case ev.Currency != "" && ev.Currency != next.Currency:
			next.SyncStatus = StatusError
			warnings = append(warnings, Warning{
				Code:    WarnCatalogError,
				Message: fmt.Sprintf("package priced in %s but the quote is in %s", ev.Currency, next.Currency),
			})
		default:
			next.BasePrice = ev.Price
			bd := next.Breakdown()
			warnings = append(warnings, exclusionWarnings(bd)...)
			if !forced && fromCustom && !pricing.InTolerance(next.TotalPrice, bd.ExpectedTotal) {
				// the operator's number predates the lookup and still differs
				next.SyncStatus = StatusCustom
			} else {
				reason := ReasonPackageSelected
				if forced {
					reason = ReasonRecalculated
				}
				recordHistory(&next, bd.ExpectedTotal, reason, actorID, now)
				next.TotalPrice = bd.ExpectedTotal
				next.SyncStatus = StatusSynced
			}
		}

	case AddAddOn:
		if next.indexOfAddOn(ev.AddOnID) >= 0 {
			return d, nil, fmt.Errorf("add-on %s is already selected: %w", ev.AddOnID, ErrValidation)
		}
		if len(next.AddOns) >= MaxAddOns {
			return d, nil, fmt.Errorf("at most %d add-ons per quote: %w", MaxAddOns, ErrValidation)
		}
		records, err := c.Resolver.Resolve(ctx, []uuid.UUID{ev.AddOnID})
		if err != nil {
			return d, nil, err
		}
		rec, ok := records[ev.AddOnID]
		if !ok {
			return d, nil, fmt.Errorf("%s: %w", ev.AddOnID, ErrAddOnNotFound)
		}
		if !rec.IsActive {
			warnings = append(warnings, Warning{
				Code:    WarnAddOnInactive,
				AddOnID: rec.ID.String(),
				Message: fmt.Sprintf("%s is currently disabled in the catalog", rec.Name),
			})
		}
		perUnit := rec.PerUnitDefault
		if ev.PerUnit != nil {
			perUnit = *ev.PerUnit
		}
		sel := AddOnSelection{
			AddOnID:        rec.ID,
			Name:           rec.Name,
			UnitPrice:      rec.UnitPrice,
			Currency:       rec.Currency,
			PerUnitPricing: perUnit,
			AddedAt:        now.UTC(),
		}
		if err := sel.validate(); err != nil {
			return d, nil, err
		}
		next.AddOns = append(next.AddOns, sel)
		warnings = append(warnings, c.settle(&next, actorID, ReasonAddOnAdded, now, false)...)

	case RemoveAddOn:
		idx := next.indexOfAddOn(ev.AddOnID)
		if idx < 0 {
			return d, nil, fmt.Errorf("add-on %s is not selected: %w", ev.AddOnID, ErrValidation)
		}
		next.AddOns = append(next.AddOns[:idx], next.AddOns[idx+1:]...)
		warnings = c.settle(&next, actorID, ReasonAddOnRemoved, now, false)

	case TogglePerUnit:
		idx := next.indexOfAddOn(ev.AddOnID)
		if idx < 0 {
			return d, nil, fmt.Errorf("add-on %s is not selected: %w", ev.AddOnID, ErrValidation)
		}
		next.AddOns[idx].PerUnitPricing = !next.AddOns[idx].PerUnitPricing
		warnings = c.settle(&next, actorID, ReasonRecalculated, now, false)

	case SetGroupSize:
		if ev.Size < 1 || ev.Size > MaxGroupSize {
			return d, nil, fmt.Errorf("group size must be between 1 and %d: %w", MaxGroupSize, ErrValidation)
		}
		next.GroupSize = ev.Size
		warnings = c.settle(&next, actorID, ReasonRecalculated, now, true)

	case SetCurrency:
		if !ev.Currency.Valid() {
			return d, nil, fmt.Errorf("currency %q: %w", ev.Currency, ErrValidation)
		}
		next.Currency = ev.Currency
		warnings = c.settle(&next, actorID, ReasonRecalculated, now, true)

	case EditTotal:
		if ev.Amount < 0 {
			return d, nil, fmt.Errorf("total price must not be negative: %w", ErrValidation)
		}
		bd := next.Breakdown()
		warnings = exclusionWarnings(bd)
		recordHistory(&next, ev.Amount, ReasonManualOverride, actorID, now)
		next.TotalPrice = ev.Amount
		if pricing.InTolerance(ev.Amount, bd.ExpectedTotal) {
			next.SyncStatus = StatusSynced
		} else {
			next.SyncStatus = StatusCustom
		}
		// a pending lookup must not clobber the number just typed, even one
		// dispatched by an explicit recalculate
		next.RecalcForced = false
		next.RecalcFromCustom = next.SyncStatus == StatusCustom

	case Recalculate:
		c.recalculate(&next, actorID, now, &warnings)

	case ResetToCalculated:
		c.recalculate(&next, actorID, now, &warnings)

	default:
		return d, nil, fmt.Errorf("unsupported event %T: %w", ev, ErrValidation)
	}

	next.UpdatedAt = now.UTC()
	return next, warnings, nil
}

// recalculate handles the explicit recompute actions. A package base needs a
// fresh asynchronous lookup; manual or absent bases settle immediately.
func (c *Controller) recalculate(next *Draft, actorID string, now time.Time, warnings *[]Warning) {
	if next.BaseSource.Kind == BaseSourcePackage {
		next.RecalcToken++
		next.RecalcForced = true
		next.RecalcFromCustom = false
		next.SyncStatus = StatusCalculating
		return
	}
	bd := next.Breakdown()
	*warnings = append(*warnings, exclusionWarnings(bd)...)
	recordHistory(next, bd.ExpectedTotal, ReasonRecalculated, actorID, now)
	next.TotalPrice = bd.ExpectedTotal
	next.SyncStatus = StatusSynced
}

// settle recomputes the expected total after a structural change and applies
// the override rules. While the draft carries a manual override, a pending
// lookup, or an errored base, the stored total stays untouched; otherwise the
// total follows the computation. baseStale marks changes that invalidate a
// package-derived base price, such as a new group size.
func (c *Controller) settle(next *Draft, actorID string, reason HistoryReason, now time.Time, baseStale bool) []Warning {
	bd := next.Breakdown()
	warnings := exclusionWarnings(bd)
	switch next.SyncStatus {
	case StatusCustom, StatusError, StatusCalculating:
		recordHistory(next, next.TotalPrice, reason, actorID, now)
	default:
		recordHistory(next, bd.ExpectedTotal, reason, actorID, now)
		next.TotalPrice = bd.ExpectedTotal
		stale := next.BaseSource.Kind == BaseSourcePackage &&
			(baseStale || next.SyncStatus == StatusOutOfSync)
		if stale {
			next.SyncStatus = StatusOutOfSync
		} else {
			next.SyncStatus = StatusSynced
		}
	}
	return warnings
}

// Inspect compares every selection snapshot against the live catalog and
// reports advisories. Snapshots remain authoritative; nothing is mutated.
func (c *Controller) Inspect(ctx context.Context, d Draft) ([]Warning, error) {
	if len(d.AddOns) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(d.AddOns))
	for _, a := range d.AddOns {
		ids = append(ids, a.AddOnID)
	}
	live, err := c.Resolver.Resolve(ctx, ids)
	if err != nil {
		return nil, err
	}
	var warnings []Warning
	for _, a := range d.AddOns {
		rec, ok := live[a.AddOnID]
		if !ok {
			warnings = append(warnings, Warning{
				Code:    WarnAddOnMissing,
				AddOnID: a.AddOnID.String(),
				Message: fmt.Sprintf("%s was removed from the catalog; the stored snapshot still applies", a.Name),
			})
			continue
		}
		if !rec.IsActive {
			warnings = append(warnings, Warning{
				Code:    WarnAddOnInactive,
				AddOnID: a.AddOnID.String(),
				Message: fmt.Sprintf("%s is currently disabled in the catalog", a.Name),
			})
		}
		if rec.UnitPrice != a.UnitPrice || rec.Currency != a.Currency {
			warnings = append(warnings, Warning{
				Code:    WarnPriceDrift,
				AddOnID: a.AddOnID.String(),
				Message: fmt.Sprintf("%s is now %s in the catalog (snapshot %s)",
					a.Name,
					pricing.FormatAmount(rec.UnitPrice, rec.Currency),
					pricing.FormatAmount(a.UnitPrice, a.Currency)),
			})
		}
	}
	return warnings, nil
}
