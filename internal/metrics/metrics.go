// Package metrics defines the Prometheus instruments exported by the
// service. All metrics are registered with the default registry via
// promauto and served from the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsProcessedTotal counts terminal job outcomes by status
	// (completed/failed).
	JobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_jobs_processed_total",
			Help: "Total number of background jobs that reached a terminal outcome.",
		},
		[]string{"status"},
	)

	// JobRetriesTotal counts inline retry attempts (attempts beyond the
	// first for a single job execution).
	JobRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recall_job_retries_total",
			Help: "Total number of inline job retry attempts.",
		},
	)

	// JobReplaysTotal counts failed jobs resubmitted via manual replay.
	JobReplaysTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recall_job_replays_total",
			Help: "Total number of failed jobs resubmitted for replay.",
		},
	)

	// BatchesDispatchedTotal counts batches sent to the vision processor
	// by outcome (ok/error).
	BatchesDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_batches_dispatched_total",
			Help: "Total number of frame batches dispatched to the vision processor.",
		},
		[]string{"outcome"},
	)

	// BatchDispatchDuration observes wall time of a single batch send.
	BatchDispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recall_batch_dispatch_duration_seconds",
			Help:    "Duration of individual batch sends to the vision processor.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// VideosIndexedTotal counts videos that finished the indexing pipeline
	// by final status (ready/failed).
	VideosIndexedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_videos_indexed_total",
			Help: "Total number of videos that finished the indexing pipeline.",
		},
		[]string{"status"},
	)
)
