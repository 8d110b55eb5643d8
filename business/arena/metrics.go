package arena

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TrialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_trials_total",
			Help: "Count of evaluated repeats by variant and outcome.",
		},
		[]string{"variant", "outcome"},
	)

	OracleFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_oracle_failures_total",
			Help: "Count of failed strategy attempts by strategy.",
		},
		[]string{"strategy"},
	)

	DegenerateTrialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_degenerate_trials_total",
			Help: "Count of sleeping trials that never had an available option.",
		},
		[]string{"variant"},
	)

	TrialDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arena_trial_duration_seconds",
			Help:    "Wall time to evaluate both strategies on one repeat.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
		[]string{"variant"},
	)
)

func init() {
	prometheus.MustRegister(TrialsTotal, OracleFailuresTotal, DegenerateTrialsTotal, TrialDuration)
}
