package quote

import (
	"time"

	"github.com/mira-stack/backend-quotes/internal/pricing"
)

// recordHistory appends an audit entry for a total-price transition. Entries
// are append-only and never edited or dropped afterwards.
//
// Price-neutral changes are skipped, except add-on additions and removals,
// which are recorded even when the net total did not move. Call this before
// assigning the new total so the comparison sees the old value.
func recordHistory(d *Draft, newPrice pricing.Money, reason HistoryReason, actorID string, now time.Time) {
	structural := reason == ReasonAddOnAdded || reason == ReasonAddOnRemoved
	if !structural && newPrice == d.TotalPrice {
		return
	}
	d.History = append(d.History, HistoryEntry{
		Price:      newPrice,
		Reason:     reason,
		ActorID:    actorID,
		RecordedAt: now.UTC(),
	})
}
