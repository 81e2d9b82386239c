// Package observability defines the Prometheus metrics exported by the service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// QueryBuckets covers sandbox runs from a millisecond up to the statement timeout range.
var QueryBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10}

var (
	// RequestsTotal counts HTTP requests by method, route template, and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ciphersql_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ciphersql_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// SandboxRunsTotal counts run attempts by outcome
	// (ok, invalid, not_found, forbidden, query_error, error).
	SandboxRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ciphersql_sandbox_runs_total",
			Help: "Sandbox query runs",
		},
		[]string{"outcome"},
	)

	SandboxRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ciphersql_sandbox_run_duration_seconds",
			Help:    "Time spent inside the sandbox transaction",
			Buckets: QueryBuckets,
		},
	)

	// SandboxVerdictsTotal counts grading results (correct, incorrect, ungraded).
	SandboxVerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ciphersql_sandbox_verdicts_total",
			Help: "Correctness verdicts",
		},
		[]string{"verdict"},
	)

	// HintsTotal counts hints by source (llm, static, cache).
	HintsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ciphersql_hints_total",
			Help: "Hints served",
		},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		SandboxRunsTotal,
		SandboxRunDuration,
		SandboxVerdictsTotal,
		HintsTotal,
	)
}
