// Package metrics provides Prometheus metrics for Tidemark: rows read,
// batch spans produced, high-water-mark commits, and read latency.
//
// Metrics are registered automatically via promauto. Typical usage:
//
//	metrics.RowsRead.WithLabelValues("postgres", "public.orders").Add(1000)
//
//	timer := metrics.NewTimer()
//	rs, err := source.RunBoundedQuery(ctx, table, columns, predicate)
//	metrics.ReadLatency.WithLabelValues("postgres", table).Observe(timer.Stop().Seconds())
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsRead counts rows returned by bounded reads.
	// Labels: source (connector name), entity (table or path)
	RowsRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tidemark_rows_read_total",
			Help: "Total number of rows returned by bounded reads",
		},
		[]string{"source", "entity"},
	)

	// SpansProduced counts boundary spans produced by strategies.
	// Labels: strategy (snapshot, incremental, snapshot_batch, incremental_batch)
	SpansProduced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tidemark_spans_produced_total",
			Help: "Total number of boundary spans produced by strategies",
		},
		[]string{"strategy"},
	)

	// StrategyScopes counts completed strategy scopes.
	// Labels: strategy, status (success/failure)
	StrategyScopes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tidemark_strategy_scopes_total",
			Help: "Total number of completed strategy scopes",
		},
		[]string{"strategy", "status"},
	)

	// HWMCommits counts successful high-water-mark commits.
	// Labels: kind (integer/date/timestamp)
	HWMCommits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tidemark_hwm_commits_total",
			Help: "Total number of committed high-water-marks",
		},
		[]string{"kind"},
	)

	// HWMCommitFailures counts failed high-water-mark commits. A failed
	// commit after a successful read scope is surfaced to the caller, so a
	// non-zero value here deserves attention.
	HWMCommitFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tidemark_hwm_commit_failures_total",
			Help: "Total number of failed high-water-mark commits",
		},
		[]string{"kind"},
	)

	// ReadLatency tracks bounded read latency in seconds.
	// Labels: source, entity
	ReadLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tidemark_read_latency_seconds",
			Help:    "Bounded read latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"source", "entity"},
	)
)

// Timer measures elapsed time for histogram observations
type Timer struct {
	start time.Time
}

// NewTimer starts a timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed time since the timer started
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
