// Package observability exposes Prometheus metrics for the HTTP surface and
// the question-answering pipeline.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askdb_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	classificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_classifications_total",
			Help: "Total number of classified questions by type and retrieval outcome.",
		},
		[]string{"question_type", "retrieval"},
	)

	classifierFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_classifier_fallbacks_total",
			Help: "Total number of pipeline layer fallbacks.",
		},
		[]string{"layer"},
	)

	sqlGenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_sql_generations_total",
			Help: "Total number of SQL generation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	sqlExecutionLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askdb_sql_execution_latency_ms",
			Help:    "SQL execution latency in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2000, 5000},
		},
	)

	llmInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "askdb_llm_in_flight",
			Help: "Current number of streaming completions holding a semaphore slot.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		classificationsTotal,
		classifierFallbacksTotal,
		sqlGenerationsTotal,
		sqlExecutionLatencyMs,
		llmInFlight,
	)
}

// ObserveClassification records one pipeline outcome.
func ObserveClassification(questionType string, retrieval bool) {
	outcome := "skip"
	if retrieval {
		outcome = "retrieve"
	}
	classificationsTotal.WithLabelValues(questionType, outcome).Inc()
}

// IncrementFallback records one layer falling back to its deterministic rule.
// Layer is "analyze" or "decide".
func IncrementFallback(layer string) {
	classifierFallbacksTotal.WithLabelValues(layer).Inc()
}

// ObserveSQLGeneration records one generation attempt. Outcome is "ok",
// "rejected" or "error".
func ObserveSQLGeneration(outcome string) {
	sqlGenerationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSQLExecution records the latency of one executed statement.
func ObserveSQLExecution(elapsed time.Duration) {
	sqlExecutionLatencyMs.Observe(float64(elapsed.Milliseconds()))
}

// StreamStarted marks one semaphore slot taken; the returned func releases
// the gauge when the stream finishes.
func StreamStarted() func() {
	llmInFlight.Inc()
	return llmInFlight.Dec
}
