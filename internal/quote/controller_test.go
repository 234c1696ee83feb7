package quote

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mira-stack/backend-quotes/internal/catalog"
	"github.com/mira-stack/backend-quotes/internal/pricing"
)

var (
	tourID     = uuid.MustParse("6f1f06ab-3a68-4a39-9a41-47f4a2a6d001")
	dinnerID   = uuid.MustParse("6f1f06ab-3a68-4a39-9a41-47f4a2a6d002")
	transferID = uuid.MustParse("6f1f06ab-3a68-4a39-9a41-47f4a2a6d003")
)

func newTestController() (*Controller, *catalog.MockProvider) {
	mock := catalog.NewMockProvider()
	ctrl := &Controller{
		Resolver: &Resolver{Provider: mock},
		Now: func() time.Time {
			return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
		},
	}
	return ctrl, mock
}

func newDraft() Draft {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return Draft{
		ID:         uuid.New(),
		GroupSize:  10,
		Currency:   pricing.CurrencyEUR,
		BaseSource: BaseSource{Kind: BaseSourceNone},
		SyncStatus: StatusSynced,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestAddAddOnPerUnitMultipliesByGroupSize(t *testing.T) {
	ctrl, _ := newTestController()
	d := newDraft()

	next, warnings, err := ctrl.Apply(context.Background(), d, "alice", AddAddOn{AddOnID: tourID})
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Len(t, next.AddOns, 1)
	require.Equal(t, pricing.Money(50_000), next.TotalPrice)
	require.Equal(t, StatusSynced, next.SyncStatus)

	require.Len(t, next.History, 1)
	require.Equal(t, ReasonAddOnAdded, next.History[0].Reason)
	require.Equal(t, "alice", next.History[0].ActorID)

	// the input draft is never mutated
	require.Empty(t, d.AddOns)
	require.Zero(t, d.TotalPrice)
}

func TestAddAddOnFlatIgnoresGroupSize(t *testing.T) {
	ctrl, _ := newTestController()
	d := newDraft()

	next, _, err := ctrl.Apply(context.Background(), d, "alice", AddAddOn{AddOnID: transferID})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(30_000), next.TotalPrice)

	bigger, _, err := ctrl.Apply(context.Background(), next, "alice", SetGroupSize{Size: 40})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(30_000), bigger.TotalPrice)
}

func TestAddAddOnUnknownBlocks(t *testing.T) {
	ctrl, _ := newTestController()
	d := newDraft()

	_, _, err := ctrl.Apply(context.Background(), d, "alice", AddAddOn{AddOnID: uuid.New()})
	require.ErrorIs(t, err, ErrAddOnNotFound)
	require.Empty(t, d.AddOns)
}

func TestAddAddOnInactiveWarnsButAdds(t *testing.T) {
	ctrl, mock := newTestController()
	disabled := uuid.New()
	mock.SetAddOn(catalog.AddOn{
		ID: disabled, Name: "Night hike", UnitPrice: 2_000,
		Currency: pricing.CurrencyEUR, PerUnitDefault: true, IsActive: false,
	})

	next, warnings, err := ctrl.Apply(context.Background(), newDraft(), "alice", AddAddOn{AddOnID: disabled})
	require.NoError(t, err)
	require.Len(t, next.AddOns, 1)
	require.Len(t, warnings, 1)
	require.Equal(t, WarnAddOnInactive, warnings[0].Code)
	require.Equal(t, pricing.Money(20_000), next.TotalPrice)
}

func TestAddAddOnDuplicateRejected(t *testing.T) {
	ctrl, _ := newTestController()
	next, _, err := ctrl.Apply(context.Background(), newDraft(), "alice", AddAddOn{AddOnID: tourID})
	require.NoError(t, err)

	_, _, err = ctrl.Apply(context.Background(), next, "alice", AddAddOn{AddOnID: tourID})
	require.ErrorIs(t, err, ErrValidation)
}

func TestAddOnCapRejectsNotTruncates(t *testing.T) {
	ctrl, mock := newTestController()
	d := newDraft()
	for i := 0; i < MaxAddOns; i++ {
		id := uuid.New()
		mock.SetAddOn(catalog.AddOn{
			ID: id, Name: "Extra", UnitPrice: 100,
			Currency: pricing.CurrencyEUR, IsActive: true,
		})
		var err error
		d, _, err = ctrl.Apply(context.Background(), d, "alice", AddAddOn{AddOnID: id})
		require.NoError(t, err)
	}
	require.Len(t, d.AddOns, MaxAddOns)

	_, _, err := ctrl.Apply(context.Background(), d, "alice", AddAddOn{AddOnID: tourID})
	require.ErrorIs(t, err, ErrValidation)
	require.Len(t, d.AddOns, MaxAddOns)
}

func TestRemoveAddOnRecordsHistoryEvenWhenPriceUnchanged(t *testing.T) {
	ctrl, mock := newTestController()
	free := uuid.New()
	mock.SetAddOn(catalog.AddOn{
		ID: free, Name: "Welcome drink", UnitPrice: 0,
		Currency: pricing.CurrencyEUR, IsActive: true,
	})

	d, _, err := ctrl.Apply(context.Background(), newDraft(), "alice", AddAddOn{AddOnID: free})
	require.NoError(t, err)
	d, _, err = ctrl.Apply(context.Background(), d, "alice", RemoveAddOn{AddOnID: free})
	require.NoError(t, err)

	require.Empty(t, d.AddOns)
	require.Len(t, d.History, 2)
	require.Equal(t, ReasonAddOnAdded, d.History[0].Reason)
	require.Equal(t, ReasonAddOnRemoved, d.History[1].Reason)
}

func TestTogglePerUnitRepricesContribution(t *testing.T) {
	ctrl, _ := newTestController()
	d, _, err := ctrl.Apply(context.Background(), newDraft(), "alice", AddAddOn{AddOnID: transferID})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(30_000), d.TotalPrice)

	d, _, err = ctrl.Apply(context.Background(), d, "alice", TogglePerUnit{AddOnID: transferID})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(300_000), d.TotalPrice)
	require.Equal(t, ReasonRecalculated, d.History[len(d.History)-1].Reason)
}

func TestSelectPackageResolvesAsynchronously(t *testing.T) {
	ctrl, _ := newTestController()
	d, _, err := ctrl.Apply(context.Background(), newDraft(), "alice", AddAddOn{AddOnID: tourID})
	require.NoError(t, err)
	d, _, err = ctrl.Apply(context.Background(), d, "alice", AddAddOn{AddOnID: dinnerID})
	require.NoError(t, err)

	d, _, err = ctrl.Apply(context.Background(), d, "alice", SelectPackage{PackageID: "CLASSIC-ALPS"})
	require.NoError(t, err)
	require.Equal(t, StatusCalculating, d.SyncStatus)
	require.Equal(t, uint64(1), d.RecalcToken)

	d, warnings, err := ctrl.Apply(context.Background(), d, SystemActor, RecalcResolved{
		Token: d.RecalcToken, Price: 50_000, Currency: pricing.CurrencyEUR,
	})
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, StatusSynced, d.SyncStatus)
	require.Equal(t, pricing.Money(50_000), d.BasePrice)
	// 500.00 base + 50.00 x 10 + 75.00 x 10
	require.Equal(t, pricing.Money(175_000), d.TotalPrice)
	require.Equal(t, ReasonPackageSelected, d.History[len(d.History)-1].Reason)
}

func TestStaleResolutionIsDropped(t *testing.T) {
	ctrl, _ := newTestController()
	d, _, err := ctrl.Apply(context.Background(), newDraft(), "alice", SelectPackage{PackageID: "CLASSIC-ALPS"})
	require.NoError(t, err)
	first := d.RecalcToken

	d, _, err = ctrl.Apply(context.Background(), d, "alice", SelectPackage{PackageID: "CLASSIC-ALPS", TierLabel: "deluxe"})
	require.NoError(t, err)
	require.Greater(t, d.RecalcToken, first)

	// the older dispatch lands late and must not win
	next, warnings, err := ctrl.Apply(context.Background(), d, SystemActor, RecalcResolved{
		Token: first, Price: 99_999, Currency: pricing.CurrencyEUR,
	})
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, d, next)
	require.Equal(t, StatusCalculating, next.SyncStatus)
}

func TestOnRequestPackageEntersErrorThenManualEntry(t *testing.T) {
	ctrl, _ := newTestController()
	d, _, err := ctrl.Apply(context.Background(), newDraft(), "alice", SelectPackage{PackageID: "EXPEDITION"})
	require.NoError(t, err)

	d, warnings, err := ctrl.Apply(context.Background(), d, SystemActor, RecalcResolved{
		Token: d.RecalcToken, OnRequest: true,
	})
	require.NoError(t, err)
	require.Equal(t, StatusError, d.SyncStatus)
	require.Len(t, warnings, 1)
	require.Equal(t, WarnPriceOnRequest, warnings[0].Code)
	require.Zero(t, d.TotalPrice)

	d, _, err = ctrl.Apply(context.Background(), d, "alice", EditTotal{Amount: 480_000})
	require.NoError(t, err)
	require.Equal(t, StatusCustom, d.SyncStatus)
	require.Equal(t, pricing.Money(480_000), d.TotalPrice)
	require.Equal(t, ReasonManualOverride, d.History[len(d.History)-1].Reason)
}

func TestEditTotalWithinToleranceStaysSynced(t *testing.T) {
	ctrl, _ := newTestController()
	d, _, err := ctrl.Apply(context.Background(), newDraft(), "alice", AddAddOn{AddOnID: tourID})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(50_000), d.TotalPrice)

	d, _, err = ctrl.Apply(context.Background(), d, "alice", EditTotal{Amount: 50_001})
	require.NoError(t, err)
	require.Equal(t, StatusSynced, d.SyncStatus)

	d, _, err = ctrl.Apply(context.Background(), d, "alice", EditTotal{Amount: 50_100})
	require.NoError(t, err)
	require.Equal(t, StatusCustom, d.SyncStatus)
}

func TestCustomTotalSurvivesStructuralEdits(t *testing.T) {
	ctrl, _ := newTestController()
	d, _, err := ctrl.Apply(context.Background(), newDraft(), "alice", AddAddOn{AddOnID: tourID})
	require.NoError(t, err)
	d, _, err = ctrl.Apply(context.Background(), d, "alice", EditTotal{Amount: 44_000})
	require.NoError(t, err)
	require.Equal(t, StatusCustom, d.SyncStatus)

	d, _, err = ctrl.Apply(context.Background(), d, "alice", AddAddOn{AddOnID: dinnerID})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(44_000), d.TotalPrice)
	require.Equal(t, StatusCustom, d.SyncStatus)

	d, _, err = ctrl.Apply(context.Background(), d, "alice", SetGroupSize{Size: 25})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(44_000), d.TotalPrice)
	require.Equal(t, StatusCustom, d.SyncStatus)

	// structural changes still leave an audit trail
	require.Equal(t, ReasonAddOnAdded, d.History[len(d.History)-1].Reason)
}

func TestRecalculateDiscardsOverride(t *testing.T) {
	ctrl, _ := newTestController()
	d, _, err := ctrl.Apply(context.Background(), newDraft(), "alice", SetManualBase{Amount: 100_000})
	require.NoError(t, err)
	d, _, err = ctrl.Apply(context.Background(), d, "alice", AddAddOn{AddOnID: tourID})
	require.NoError(t, err)
	d, _, err = ctrl.Apply(context.Background(), d, "alice", EditTotal{Amount: 10_000})
	require.NoError(t, err)
	require.Equal(t, StatusCustom, d.SyncStatus)

	d, _, err = ctrl.Apply(context.Background(), d, "alice", Recalculate{})
	require.NoError(t, err)
	require.Equal(t, StatusSynced, d.SyncStatus)
	require.Equal(t, pricing.Money(150_000), d.TotalPrice)
	require.Equal(t, ReasonRecalculated, d.History[len(d.History)-1].Reason)
}

func TestForcedRecalculateWithPackageBaseAdoptsResult(t *testing.T) {
	ctrl, _ := newTestController()
	d, _, err := ctrl.Apply(context.Background(), newDraft(), "alice", SelectPackage{PackageID: "CLASSIC-ALPS"})
	require.NoError(t, err)
	d, _, err = ctrl.Apply(context.Background(), d, SystemActor, RecalcResolved{
		Token: d.RecalcToken, Price: 50_000, Currency: pricing.CurrencyEUR,
	})
	require.NoError(t, err)
	d, _, err = ctrl.Apply(context.Background(), d, "alice", EditTotal{Amount: 999_999})
	require.NoError(t, err)
	require.Equal(t, StatusCustom, d.SyncStatus)

	d, _, err = ctrl.Apply(context.Background(), d, "alice", ResetToCalculated{})
	require.NoError(t, err)
	require.Equal(t, StatusCalculating, d.SyncStatus)

	d, _, err = ctrl.Apply(context.Background(), d, SystemActor, RecalcResolved{
		Token: d.RecalcToken, Price: 50_000, Currency: pricing.CurrencyEUR,
	})
	require.NoError(t, err)
	require.Equal(t, StatusSynced, d.SyncStatus)
	require.Equal(t, pricing.Money(50_000), d.TotalPrice)
}

func TestEditDuringForcedRecalculationWins(t *testing.T) {
	ctrl, _ := newTestController()
	d, _, err := ctrl.Apply(context.Background(), newDraft(), "alice", SelectPackage{PackageID: "CLASSIC-ALPS"})
	require.NoError(t, err)
	d, _, err = ctrl.Apply(context.Background(), d, SystemActor, RecalcResolved{
		Token: d.RecalcToken, Price: 50_000, Currency: pricing.CurrencyEUR,
	})
	require.NoError(t, err)

	d, _, err = ctrl.Apply(context.Background(), d, "alice", Recalculate{})
	require.NoError(t, err)
	require.Equal(t, StatusCalculating, d.SyncStatus)

	// the operator types a total while the forced lookup is still in flight;
	// the later edit wins over the earlier recalculate
	d, _, err = ctrl.Apply(context.Background(), d, "alice", EditTotal{Amount: 99_900})
	require.NoError(t, err)
	require.Equal(t, StatusCustom, d.SyncStatus)

	d, _, err = ctrl.Apply(context.Background(), d, SystemActor, RecalcResolved{
		Token: d.RecalcToken, Price: 50_000, Currency: pricing.CurrencyEUR,
	})
	require.NoError(t, err)
	require.Equal(t, StatusCustom, d.SyncStatus)
	require.Equal(t, pricing.Money(99_900), d.TotalPrice)
	require.Equal(t, pricing.Money(50_000), d.BasePrice)
}

func TestOverridePreservedAcrossPackageResolution(t *testing.T) {
	ctrl, _ := newTestController()
	d, _, err := ctrl.Apply(context.Background(), newDraft(), "alice", EditTotal{Amount: 880_000})
	require.NoError(t, err)
	require.Equal(t, StatusCustom, d.SyncStatus)

	d, _, err = ctrl.Apply(context.Background(), d, "alice", SelectPackage{PackageID: "CLASSIC-ALPS"})
	require.NoError(t, err)
	require.Equal(t, StatusCalculating, d.SyncStatus)

	d, _, err = ctrl.Apply(context.Background(), d, SystemActor, RecalcResolved{
		Token: d.RecalcToken, Price: 50_000, Currency: pricing.CurrencyEUR,
	})
	require.NoError(t, err)
	require.Equal(t, StatusCustom, d.SyncStatus)
	require.Equal(t, pricing.Money(880_000), d.TotalPrice)
	require.Equal(t, pricing.Money(50_000), d.BasePrice)
}

func TestGroupSizeChangeWithPackageBaseGoesOutOfSync(t *testing.T) {
	ctrl, _ := newTestController()
	d, _, err := ctrl.Apply(context.Background(), newDraft(), "alice", SelectPackage{PackageID: "CLASSIC-ALPS"})
	require.NoError(t, err)
	d, _, err = ctrl.Apply(context.Background(), d, SystemActor, RecalcResolved{
		Token: d.RecalcToken, Price: 50_000, Currency: pricing.CurrencyEUR,
	})
	require.NoError(t, err)
	require.Equal(t, StatusSynced, d.SyncStatus)

	d, _, err = ctrl.Apply(context.Background(), d, "alice", SetGroupSize{Size: 30})
	require.NoError(t, err)
	require.Equal(t, StatusOutOfSync, d.SyncStatus)

	// adding an add-on does not clear the stale base marker
	d, _, err = ctrl.Apply(context.Background(), d, "alice", AddAddOn{AddOnID: tourID})
	require.NoError(t, err)
	require.Equal(t, StatusOutOfSync, d.SyncStatus)

	d, _, err = ctrl.Apply(context.Background(), d, "alice", Recalculate{})
	require.NoError(t, err)
	d, _, err = ctrl.Apply(context.Background(), d, SystemActor, RecalcResolved{
		Token: d.RecalcToken, Price: 62_000, Currency: pricing.CurrencyEUR,
	})
	require.NoError(t, err)
	require.Equal(t, StatusSynced, d.SyncStatus)
	require.Equal(t, pricing.Money(62_000+30*5_000), d.TotalPrice)
}

func TestGroupSizeChangeWithManualBaseStaysSynced(t *testing.T) {
	ctrl, _ := newTestController()
	d, _, err := ctrl.Apply(context.Background(), newDraft(), "alice", SetManualBase{Amount: 70_000})
	require.NoError(t, err)
	d, _, err = ctrl.Apply(context.Background(), d, "alice", AddAddOn{AddOnID: tourID})
	require.NoError(t, err)

	d, _, err = ctrl.Apply(context.Background(), d, "alice", SetGroupSize{Size: 12})
	require.NoError(t, err)
	require.Equal(t, StatusSynced, d.SyncStatus)
	require.Equal(t, pricing.Money(70_000+12*5_000), d.TotalPrice)
}

func TestSetGroupSizeBounds(t *testing.T) {
	ctrl, _ := newTestController()
	d := newDraft()

	_, _, err := ctrl.Apply(context.Background(), d, "alice", SetGroupSize{Size: 0})
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = ctrl.Apply(context.Background(), d, "alice", SetGroupSize{Size: MaxGroupSize + 1})
	require.ErrorIs(t, err, ErrValidation)

	next, _, err := ctrl.Apply(context.Background(), d, "alice", SetGroupSize{Size: MaxGroupSize})
	require.NoError(t, err)
	require.Equal(t, MaxGroupSize, next.GroupSize)
}

func TestCurrencyChangeExcludesMismatchedAddOns(t *testing.T) {
	ctrl, _ := newTestController()
	d, _, err := ctrl.Apply(context.Background(), newDraft(), "alice", SetManualBase{Amount: 20_000})
	require.NoError(t, err)
	d, _, err = ctrl.Apply(context.Background(), d, "alice", AddAddOn{AddOnID: tourID})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(70_000), d.TotalPrice)

	d, warnings, err := ctrl.Apply(context.Background(), d, "alice", SetCurrency{Currency: pricing.CurrencyUSD})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Equal(t, WarnCurrencyExcluded, warnings[0].Code)
	require.Equal(t, tourID.String(), warnings[0].AddOnID)
	// the EUR snapshot drops out without conversion
	require.Equal(t, pricing.Money(20_000), d.TotalPrice)
	require.Len(t, d.AddOns, 1)
}

func TestManualBaseSupersedesPendingLookup(t *testing.T) {
	ctrl, _ := newTestController()
	d, _, err := ctrl.Apply(context.Background(), newDraft(), "alice", SelectPackage{PackageID: "CLASSIC-ALPS"})
	require.NoError(t, err)
	pending := d.RecalcToken

	d, _, err = ctrl.Apply(context.Background(), d, "alice", SetManualBase{Amount: 42_000})
	require.NoError(t, err)
	require.Equal(t, StatusSynced, d.SyncStatus)
	require.Equal(t, pricing.Money(42_000), d.TotalPrice)
	require.Equal(t, BaseSourceManual, d.BaseSource.Kind)

	next, _, err := ctrl.Apply(context.Background(), d, SystemActor, RecalcResolved{
		Token: pending, Price: 50_000, Currency: pricing.CurrencyEUR,
	})
	require.NoError(t, err)
	require.Equal(t, d, next)
}

func TestFailedLookupKeepsTotalAndEntersError(t *testing.T) {
	ctrl, _ := newTestController()
	d, _, err := ctrl.Apply(context.Background(), newDraft(), "alice", AddAddOn{AddOnID: tourID})
	require.NoError(t, err)
	d, _, err = ctrl.Apply(context.Background(), d, "alice", SelectPackage{PackageID: "CLASSIC-ALPS"})
	require.NoError(t, err)

	d, warnings, err := ctrl.Apply(context.Background(), d, SystemActor, RecalcResolved{
		Token: d.RecalcToken, Err: catalog.ErrUnavailable,
	})
	require.NoError(t, err)
	require.Equal(t, StatusError, d.SyncStatus)
	require.Equal(t, pricing.Money(50_000), d.TotalPrice)
	require.Len(t, warnings, 1)
	require.Equal(t, WarnCatalogError, warnings[0].Code)

	// structural edits while errored keep the last total
	d, _, err = ctrl.Apply(context.Background(), d, "alice", AddAddOn{AddOnID: dinnerID})
	require.NoError(t, err)
	require.Equal(t, StatusError, d.SyncStatus)
	require.Equal(t, pricing.Money(50_000), d.TotalPrice)
}

func TestNoHistoryEntryWhenNothingChanges(t *testing.T) {
	ctrl, _ := newTestController()
	d, _, err := ctrl.Apply(context.Background(), newDraft(), "alice", AddAddOn{AddOnID: transferID})
	require.NoError(t, err)
	entries := len(d.History)

	// flat add-on: resizing the group leaves the price alone
	d, _, err = ctrl.Apply(context.Background(), d, "alice", SetGroupSize{Size: 15})
	require.NoError(t, err)
	require.Len(t, d.History, entries)
}

func TestInspectReportsDriftMissingAndInactive(t *testing.T) {
	ctrl, mock := newTestController()
	d, _, err := ctrl.Apply(context.Background(), newDraft(), "alice", AddAddOn{AddOnID: tourID})
	require.NoError(t, err)
	d, _, err = ctrl.Apply(context.Background(), d, "alice", AddAddOn{AddOnID: dinnerID})
	require.NoError(t, err)
	d, _, err = ctrl.Apply(context.Background(), d, "alice", AddAddOn{AddOnID: transferID})
	require.NoError(t, err)
	total := d.TotalPrice

	mock.SetAddOn(catalog.AddOn{
		ID: tourID, Name: "Guided city tour", UnitPrice: 6_500,
		Currency: pricing.CurrencyEUR, PerUnitDefault: true, IsActive: true,
	})
	mock.SetAddOn(catalog.AddOn{
		ID: dinnerID, Name: "Gala dinner", UnitPrice: 7_500,
		Currency: pricing.CurrencyEUR, PerUnitDefault: true, IsActive: false,
	})
	mock.RemoveAddOn(transferID)

	warnings, err := ctrl.Inspect(context.Background(), d)
	require.NoError(t, err)
	require.Len(t, warnings, 3)

	codes := map[WarningCode]bool{}
	for _, w := range warnings {
		codes[w.Code] = true
	}
	require.True(t, codes[WarnPriceDrift])
	require.True(t, codes[WarnAddOnInactive])
	require.True(t, codes[WarnAddOnMissing])

	// snapshots stay authoritative
	require.Equal(t, total, d.Breakdown().ExpectedTotal)
}
