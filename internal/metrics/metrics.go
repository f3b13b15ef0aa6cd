// Package metrics exposes the Prometheus instruments of the scan engine.
// Collectors work unregistered, so unit tests can exercise code that
// records metrics without touching the default registry; Register is
// called once by the binary.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ScanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scanpulse",
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Wall time of a full scan or backfill run",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	TickersScanned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanpulse",
			Subsystem: "scan",
			Name:      "tickers_scanned_total",
			Help:      "Tickers that produced an evaluated summary",
		},
		[]string{"mode"},
	)

	IssuesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanpulse",
			Subsystem: "scan",
			Name:      "issues_total",
			Help:      "Recoverable run issues by kind",
		},
		[]string{"kind"},
	)

	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanpulse",
			Subsystem: "scan",
			Name:      "signals_total",
			Help:      "Crossover signals by state",
		},
		[]string{"state"},
	)

	RowsChanged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scanpulse",
			Subsystem: "store",
			Name:      "aggregate_rows_changed_total",
			Help:      "Aggregate rows inserted or updated to a new value",
		},
	)
)

// Register installs the collectors on the default registry.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(ScanDuration, TickersScanned, IssuesTotal, SignalsTotal, RowsChanged)
	})
}
