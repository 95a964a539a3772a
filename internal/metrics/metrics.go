// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RunsTotal counts finished runs by outcome ("completed", "failed").
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeagent_runs_total",
			Help: "Total number of prompt-on-repo runs by outcome",
		},
		[]string{"outcome"},
	)

	// RunsRejected counts runs refused before starting.
	RunsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeagent_runs_rejected_total",
			Help: "Total number of runs rejected by admission control",
		},
		[]string{"reason"},
	)

	RunsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codeagent_runs_in_flight",
			Help: "Number of runs currently executing",
		},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "codeagent_run_duration_seconds",
			Help:    "Wall-clock duration of a run from start to cleanup",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// StageFailures counts fatal stage failures.
	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeagent_stage_failures_total",
			Help: "Total number of fatal failures by workflow stage",
		},
		[]string{"stage"},
	)

	// FileOutcomes counts per-file results of the edit, create and delete loops.
	FileOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeagent_file_outcomes_total",
			Help: "Total number of per-file operations by action and status",
		},
		[]string{"action", "status"},
	)

	// PlanTiers counts which parse tier produced each change plan.
	PlanTiers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeagent_plan_tiers_total",
			Help: "Total number of change plans by parse tier",
		},
		[]string{"tier"},
	)

	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeagent_llm_requests_total",
			Help: "Total number of LLM completion calls by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	LLMLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codeagent_llm_request_duration_seconds",
			Help:    "Latency of LLM completion calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
