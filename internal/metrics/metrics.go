// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// WorkerJobs counts derived-artifact attempts by result
	// (completed, failed, exhausted, skipped).
	WorkerJobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vibeyard",
		Subsystem: "worker",
		Name:      "jobs_total",
		Help:      "Derived-artifact job attempts by result",
	}, []string{"result"})

	// WorkerSweepDuration observes the wall time of one sweep.
	WorkerSweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "vibeyard",
		Subsystem: "worker",
		Name:      "sweep_seconds",
		Help:      "Duration of a worker sweep in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 16), // 10ms to ~5m
	})

	// WorkerQueueDepth is the number of eligible items seen by the last sweep.
	WorkerQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "vibeyard",
		Subsystem: "worker",
		Name:      "queue_depth",
		Help:      "Applications eligible for derivation at the last sweep",
	})

	// WorkerReclaimed counts stale in-progress items moved back to failed.
	WorkerReclaimed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vibeyard",
		Subsystem: "worker",
		Name:      "reclaimed_total",
		Help:      "Stale in-progress items reclaimed",
	})

	// GenerationRequests counts model calls by task and outcome.
	GenerationRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vibeyard",
		Subsystem: "generation",
		Name:      "requests_total",
		Help:      "Model generation calls by task and outcome",
	}, []string{"task", "outcome"})

	// GenerationDuration observes model call latency by task.
	GenerationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vibeyard",
		Subsystem: "generation",
		Name:      "duration_seconds",
		Help:      "Duration of model generation calls in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17m
	}, []string{"task"})
)

func init() {
	prometheus.MustRegister(WorkerJobs)
	prometheus.MustRegister(WorkerSweepDuration)
	prometheus.MustRegister(WorkerQueueDepth)
	prometheus.MustRegister(WorkerReclaimed)
	prometheus.MustRegister(GenerationRequests)
	prometheus.MustRegister(GenerationDuration)
}
