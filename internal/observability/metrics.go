package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Guide metrics. Label values are drawn from small fixed sets (operation
// names, orchestrator states, outcomes, modes) so cardinality stays bounded.
var (
	guideStates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guide_state_transitions_total",
			Help: "Orchestrator state transitions by operation and state.",
		},
		[]string{"op", "state"},
	)

	guideGenerations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guide_generations_total",
			Help: "Model generations by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	guideGenLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guide_generation_duration_seconds",
			Help:    "Duration of model generations in seconds.",
			Buckets: []float64{.25, .5, 1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"op"},
	)

	guideHints = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guide_hints_total",
			Help: "Hint requests by difficulty mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(guideStates, guideGenerations, guideGenLatency, guideHints)
}

// ObserveState counts entry into an orchestrator state.
func ObserveState(op, state string) {
	guideStates.WithLabelValues(op, state).Inc()
}

// ObserveGeneration records one model call and its duration.
func ObserveGeneration(op, outcome string, d time.Duration) {
	guideGenerations.WithLabelValues(op, outcome).Inc()
	guideGenLatency.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveHint counts a hint request outcome ("issued", "duplicate", "failed").
func ObserveHint(mode, outcome string) {
	guideHints.WithLabelValues(mode, outcome).Inc()
}
