package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "testpilot_executions_total",
			Help: "Total number of plan executions by terminal status and trigger",
		},
		[]string{"status", "trigger"},
	)

	ExecutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "testpilot_execution_duration_seconds",
			Help:    "Plan execution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	StepsHealed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "testpilot_steps_healed_total",
			Help: "Total number of steps recovered by locator self-healing",
		},
	)

	ScheduleFires = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "testpilot_schedule_fires_total",
			Help: "Total number of schedule firings",
		},
	)

	SessionsLaunched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "testpilot_sessions_launched_total",
			Help: "Total number of browser sessions launched",
		},
	)

	SessionsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "testpilot_sessions_evicted_total",
			Help: "Total number of browser sessions evicted",
		},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "testpilot_sessions_active",
			Help: "Number of browser sessions currently registered in the pool",
		},
	)
)
