package obs

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics groups Prometheus collectors for HTTP observability.
type HTTPMetrics struct {
	ReqTotal *prometheus.CounterVec
	ReqDur   *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

// NewHTTPMetrics registers and returns HTTP metrics collectors.
func NewHTTPMetrics(namespace string, buckets []float64, reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if len(buckets) == 0 {
		buckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500}
	} else {
		sort.Float64s(buckets)
	}
	m := &HTTPMetrics{
		ReqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled by the server.",
		}, []string{"method", "route", "status"}),
		ReqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency distribution in milliseconds.",
			Buckets:   buckets,
		}, []string{"method", "route"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
	}
	m.ReqTotal = registerOrReuse(reg, m.ReqTotal).(*prometheus.CounterVec)
	m.ReqDur = registerOrReuse(reg, m.ReqDur).(*prometheus.HistogramVec)
	m.InFlight = registerOrReuse(reg, m.InFlight).(prometheus.Gauge)
	return m
}

// ParseBucketsCSV converts a comma-separated list of bucket boundaries in
// milliseconds into floats, skipping malformed entries.
func ParseBucketsCSV(csv string) []float64 {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || v <= 0 {
			continue
		}
		out = append(out, v)
	}
	return out
}

// DurationMillis converts a duration to milliseconds for metric observation.
func DurationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

var (
	domainOnce sync.Once

	// RecalcTotal counts base-price recalculation outcomes.
	RecalcTotal *prometheus.CounterVec
	// OverridesPreservedTotal counts recalculations that kept a manual total.
	OverridesPreservedTotal prometheus.Counter
	// DriftWarningsTotal counts catalog drift advisories by code.
	DriftWarningsTotal *prometheus.CounterVec
	// HistoryEntriesTotal counts appended price history entries by reason.
	HistoryEntriesTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers the quote engine's
// Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		RecalcTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recalculations_total",
			Help:      "Count of base-price recalculation outcomes.",
		}, []string{"result"})
		OverridesPreservedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overrides_preserved_total",
			Help:      "Recalculations that preserved an operator override.",
		})
		DriftWarningsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drift_warnings_total",
			Help:      "Catalog drift advisories surfaced to operators.",
		}, []string{"code"})
		HistoryEntriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_entries_total",
			Help:      "Price history entries appended by reason.",
		}, []string{"reason"})

		RecalcTotal = registerOrReuse(reg, RecalcTotal).(*prometheus.CounterVec)
		OverridesPreservedTotal = registerOrReuse(reg, OverridesPreservedTotal).(prometheus.Counter)
		DriftWarningsTotal = registerOrReuse(reg, DriftWarningsTotal).(*prometheus.CounterVec)
		HistoryEntriesTotal = registerOrReuse(reg, HistoryEntriesTotal).(*prometheus.CounterVec)
	})
}

// ObserveRecalc records one recalculation outcome. Safe to call before the
// domain metrics are registered.
func ObserveRecalc(result string) {
	if RecalcTotal != nil {
		RecalcTotal.WithLabelValues(result).Inc()
	}
}

// ObserveOverridePreserved records a recalculation that kept a manual total.
func ObserveOverridePreserved() {
	if OverridesPreservedTotal != nil {
		OverridesPreservedTotal.Inc()
	}
}

// ObserveDriftWarning records a catalog drift advisory.
func ObserveDriftWarning(code string) {
	if DriftWarningsTotal != nil {
		DriftWarningsTotal.WithLabelValues(code).Inc()
	}
}

// ObserveHistoryEntry records an appended price history entry.
func ObserveHistoryEntry(reason string) {
	if HistoryEntriesTotal != nil {
		HistoryEntriesTotal.WithLabelValues(reason).Inc()
	}
}

func registerOrReuse(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		panic(fmt.Errorf("register collector: %w", err))
	}
	return c
}
