package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "automl"

var (
	JobTransitionCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "job",
		Name:      "transition_total",
		Help:      "Counter of job status transitions.",
	}, []string{"status"})

	SubmissionFailureCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "job",
		Name:      "submission_failure_total",
		Help:      "Counter of jobs failed at executor handoff.",
	})

	ArtifactPurgeFailureCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "job",
		Name:      "artifact_purge_failure_total",
		Help:      "Counter of artifacts that could not be removed on delete.",
	})

	ModelCacheHitCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "inference",
		Name:      "model_cache_hit_total",
		Help:      "Counter of predictions served by a loaded model.",
	})

	ModelCacheMissCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "inference",
		Name:      "model_cache_miss_total",
		Help:      "Counter of predictions that had to load the model artifact.",
	})

	ModelLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "inference",
		Name:      "model_load_duration_seconds",
		Help:      "Histogram of model artifact load duration.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	StreamSessionCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "session_total",
		Help:      "Counter of status stream sessions by how they ended.",
	}, []string{"reason"})
)
