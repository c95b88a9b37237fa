package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "balance_engine_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	reconcileTotal   *prometheus.CounterVec
	reconcileLatency *prometheus.HistogramVec

	duplicateConflicts prometheus.Counter

	gapScanTotal prometheus.Counter
	gapsDetected prometheus.Gauge

	rederiveApplied  prometheus.Counter
	rederiveRejected prometheus.Counter

	collectionCycles  *prometheus.CounterVec
	collectionLatency *prometheus.HistogramVec

	feedFetchTotal *prometheus.CounterVec
)

// Init registers engine metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		reconcileTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "reconcile_total",
				Help: "Total interval reconciliations by result or reject reason",
			},
			[]string{"result"},
		)
		reconcileLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "reconcile_latency_seconds",
				Help:    "Interval reconciliation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		duplicateConflicts = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "duplicate_slot_conflicts_total",
				Help: "Total duplicate slot conflicts resolved",
			},
		)

		gapScanTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "gap_scans_total",
				Help: "Total gap detection scans",
			},
		)
		gapsDetected = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "gaps_detected",
				Help: "Missing slots reported by the most recent gap scan",
			},
		)

		rederiveApplied = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "rederive_applied_total",
				Help: "Total slots applied by bulk re-derivation",
			},
		)
		rederiveRejected = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "rederive_rejected_total",
				Help: "Total slots rejected by bulk re-derivation",
			},
		)

		collectionCycles = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "collection_cycles_total",
				Help: "Total scheduled collection cycles by result",
			},
			[]string{"result"},
		)
		collectionLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "collection_cycle_latency_seconds",
				Help:    "Collection cycle latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		feedFetchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "feed_fetch_total",
				Help: "Total upstream feed fetches by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			reconcileTotal,
			reconcileLatency,
			duplicateConflicts,
			gapScanTotal,
			gapsDetected,
			rederiveApplied,
			rederiveRejected,
			collectionCycles,
			collectionLatency,
			feedFetchTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveReconcile records one reconciliation result and its latency.
func ObserveReconcile(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if reconcileTotal != nil {
		reconcileTotal.WithLabelValues(result).Inc()
	}
	if reconcileLatency != nil {
		reconcileLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncDuplicateConflict increments the duplicate conflict counter.
func IncDuplicateConflict() {
	if duplicateConflicts != nil {
		duplicateConflicts.Inc()
	}
}

// ObserveGapScan records the result of a gap detection scan.
func ObserveGapScan(missing int) {
	if gapScanTotal != nil {
		gapScanTotal.Inc()
	}
	if gapsDetected != nil {
		gapsDetected.Set(float64(missing))
	}
}

// ObserveRederive records bulk re-derivation totals.
func ObserveRederive(applied, rejected int) {
	if rederiveApplied != nil && applied > 0 {
		rederiveApplied.Add(float64(applied))
	}
	if rederiveRejected != nil && rejected > 0 {
		rederiveRejected.Add(float64(rejected))
	}
}

// ObserveCollectionCycle records one scheduled collection cycle.
func ObserveCollectionCycle(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if collectionCycles != nil {
		collectionCycles.WithLabelValues(result).Inc()
	}
	if collectionLatency != nil {
		collectionLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncFeedFetch counts one upstream feed fetch.
func IncFeedFetch(result string) {
	if result == "" {
		result = resultSuccess
	}
	if feedFetchTotal != nil {
		feedFetchTotal.WithLabelValues(result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
