package quote

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mira-stack/backend-quotes/internal/pricing"
)

func TestSummarySpellsOutArithmetic(t *testing.T) {
	ctrl, _ := newTestController()
	d := newDraft()
	var err error
	for _, ev := range []Event{
		SelectPackage{PackageID: "CLASSIC-ALPS", TierLabel: "standard", Period: "July 2026"},
	} {
		d, _, err = ctrl.Apply(context.Background(), d, "alice", ev)
		require.NoError(t, err)
	}
	d, _, err = ctrl.Apply(context.Background(), d, SystemActor, RecalcResolved{
		Token: d.RecalcToken, Price: 50_000, Currency: pricing.CurrencyEUR,
	})
	require.NoError(t, err)
	d, _, err = ctrl.Apply(context.Background(), d, "alice", AddAddOn{AddOnID: tourID})
	require.NoError(t, err)
	d, _, err = ctrl.Apply(context.Background(), d, "alice", AddAddOn{AddOnID: transferID})
	require.NoError(t, err)

	out := Summary(d)
	require.Contains(t, out, "Group size: 10")
	require.Contains(t, out, "Base: €500.00 (package CLASSIC-ALPS, tier standard, July 2026)")
	require.Contains(t, out, "Guided city tour: €50.00 x 10 = €500.00")
	require.Contains(t, out, "Airport transfer: €300.00")
	require.Contains(t, out, "Quoted total: €1300.00 (SYNCED)")
	require.Contains(t, out, "PACKAGE_SELECTED")
}

func TestSummaryListsExcludedAddOns(t *testing.T) {
	ctrl, _ := newTestController()
	d, _, err := ctrl.Apply(context.Background(), newDraft(), "alice", SetManualBase{Amount: 20_000})
	require.NoError(t, err)
	d, _, err = ctrl.Apply(context.Background(), d, "alice", AddAddOn{AddOnID: tourID})
	require.NoError(t, err)
	d, _, err = ctrl.Apply(context.Background(), d, "alice", SetCurrency{Currency: pricing.CurrencyUSD})
	require.NoError(t, err)

	out := Summary(d)
	require.Contains(t, out, "Excluded (currency mismatch):")
	require.Contains(t, out, "Guided city tour (EUR)")
	require.Contains(t, out, "Quoted total: $200.00")
}

func TestSummaryHistoryTimestamps(t *testing.T) {
	ctrl, _ := newTestController()
	d, _, err := ctrl.Apply(context.Background(), newDraft(), "alice", EditTotal{Amount: 12_345})
	require.NoError(t, err)

	out := Summary(d)
	stamp := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC).Format(time.RFC3339)
	require.Contains(t, out, stamp+" MANUAL_OVERRIDE €123.45 by alice")
}
