package obs

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestDomainObserversBeforeRegistrationAreNoOps(t *testing.T) {
	require.NotPanics(t, func() {
		ObserveRecalc("applied")
		ObserveOverridePreserved()
		ObserveDriftWarning("PRICE_DRIFT")
		ObserveHistoryEntry("RECALCULATED")
	})
}

func TestDomainMetricsCount(t *testing.T) {
	MustRegisterDomainMetrics("quotes_test", prometheus.NewRegistry())

	ObserveRecalc("preserved")
	ObserveRecalc("preserved")
	ObserveOverridePreserved()
	ObserveDriftWarning("ADDON_MISSING")
	ObserveHistoryEntry("MANUAL_OVERRIDE")

	require.Equal(t, 2.0, testutil.ToFloat64(RecalcTotal.WithLabelValues("preserved")))
	require.Equal(t, 1.0, testutil.ToFloat64(OverridesPreservedTotal))
	require.Equal(t, 1.0, testutil.ToFloat64(DriftWarningsTotal.WithLabelValues("ADDON_MISSING")))
	require.Equal(t, 1.0, testutil.ToFloat64(HistoryEntriesTotal.WithLabelValues("MANUAL_OVERRIDE")))
}
