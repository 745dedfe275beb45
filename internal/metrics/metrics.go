// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScanCells counts individual query×provider calls by outcome.
	ScanCells = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_scan_cells_total",
		Help: "Fan-out cells executed, by provider and status.",
	}, []string{"provider", "status"})

	// ScanCycles counts completed scan cycles per brand outcome.
	ScanCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_scan_cycles_total",
		Help: "Scan cycles run, by status.",
	}, []string{"status"})

	// Transitions counts detected state transitions by kind.
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_transitions_total",
		Help: "Citation state transitions detected, by kind.",
	}, []string{"kind"})

	// DispatchDecisions counts budget-gate outcomes.
	DispatchDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_dispatch_decisions_total",
		Help: "Budget-gated dispatch decisions, by decision and reason.",
	}, []string{"decision", "reason"})

	// DedupSuppressed counts downstream actions suppressed by the guard.
	DedupSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_dedup_suppressed_total",
		Help: "Downstream actions suppressed by the idempotency guard.",
	})

	// ObservationCost tracks per-observation provider spend in dollars.
	ObservationCost = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "beacon_observation_cost_dollars",
		Help:    "Cost of individual scan observations.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"provider"})
)
