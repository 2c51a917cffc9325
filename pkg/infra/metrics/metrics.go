package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ValidationVerdicts counts validator outcomes per guard.
	ValidationVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docgate_validation_verdicts_total",
			Help: "Validator verdicts by guard, validator and outcome",
		},
		[]string{"guard", "validator", "verdict"},
	)

	// Rejections counts requests blocked by a guard, per category.
	Rejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docgate_rejections_total",
			Help: "Requests rejected by content validation, per category",
		},
		[]string{"guard", "category"},
	)

	// ClassifierDuration observes topic classifier round trips.
	ClassifierDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docgate_topic_classifier_duration_seconds",
			Help:    "Latency of topic classifier calls",
			Buckets: prometheus.DefBuckets,
		},
	)

	// StreamChunks counts chunks forwarded by the streaming adapter.
	StreamChunks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docgate_stream_chunks_total",
			Help: "Chunks forwarded to clients on the streaming endpoint",
		},
	)

	// StreamViolations counts post-hoc violations found by deferred stream
	// validation.
	StreamViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docgate_stream_violations_total",
			Help: "Violations detected after a stream completed, per category",
		},
		[]string{"category"},
	)
)

const (
	VerdictPass    = "pass"
	VerdictRewrite = "rewrite"
	VerdictFail    = "fail"
	VerdictError   = "error"
)
