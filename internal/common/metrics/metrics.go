// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_router_queries_total",
			Help: "Total number of queries handled, by resolved intent and detection tier",
		},
		[]string{"intent", "source"},
	)

	QueriesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "query_router_queries_in_flight",
			Help: "Number of queries currently being processed",
		},
	)

	PlannerCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_router_planner_calls_total",
			Help: "Total number of language-model planning calls by outcome",
		},
		[]string{"outcome"},
	)

	BackendCallAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_router_backend_call_attempts_total",
			Help: "Total number of backend call attempts, retries included",
		},
		[]string{"backend", "outcome"},
	)

	BackendCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "query_router_backend_call_duration_seconds",
			Help:    "Duration of a backend call including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	EngineFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_router_engine_fallbacks_total",
			Help: "Number of times the search chain moved past an engine",
		},
		[]string{"from", "reason"},
	)

	SearchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_router_search_failures_total",
			Help: "Terminal search failures by intent and kind",
		},
		[]string{"intent", "kind"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)
