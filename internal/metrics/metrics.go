// Package metrics provides Prometheus metrics for the import pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ImportsTotal counts pipeline operations by phase and outcome.
	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "takeoff_imports_total",
			Help: "Total number of import operations",
		},
		[]string{"phase", "status"},
	)

	// RowsClassified counts rows by validation status across all previews.
	RowsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "takeoff_rows_classified_total",
			Help: "Total number of rows classified during preview",
		},
		[]string{"status"},
	)

	// RowsCommitted counts component rows persisted by successful commits.
	RowsCommitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "takeoff_rows_committed_total",
			Help: "Total number of component rows committed",
		},
	)

	// ReferencesCreated counts reference rows created per category type.
	ReferencesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "takeoff_references_created_total",
			Help: "Total number of reference rows created during commits",
		},
		[]string{"type"},
	)

	// CommitDuration observes commit transaction time.
	CommitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "takeoff_commit_duration_seconds",
			Help:    "Time taken by the commit transaction",
			Buckets: prometheus.DefBuckets,
		},
	)
)
