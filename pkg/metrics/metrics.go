package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socialink_auth_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"},
	)

	// TokenRejections counts bearer or confirmation tokens refused by reason code.
	TokenRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socialink_token_rejections_total",
			Help: "Total number of rejected tokens",
		},
		[]string{"reason"},
	)

	// EnrichmentRuns counts image enrichment outcomes (completed|generation_failed|persist_failed|notify_failed).
	EnrichmentRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socialink_enrichment_runs_total",
			Help: "Total number of post enrichment runs by outcome",
		},
		[]string{"result"},
	)

	// BackgroundTasks counts detached tasks by lifecycle result (submitted|dropped|succeeded|failed|panicked).
	BackgroundTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socialink_background_tasks_total",
			Help: "Total number of background tasks by result",
		},
		[]string{"task", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "socialink_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
