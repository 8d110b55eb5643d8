package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Latency of chat completion calls made by the strategies
	LLMRequestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arena_llm_request_latency_seconds",
		Help:    "Latency of chat completion requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	// Total number of chat completion requests by outcome
	LLMRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_llm_requests_total",
		Help: "Total number of chat completion requests",
	}, []string{"model", "outcome"})

	// Rounds decided by a strategy's fallback instead of the model
	StrategyFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_strategy_fallbacks_total",
		Help: "Rounds decided by the fallback policy",
	}, []string{"strategy"})
)

var registerOnce sync.Once

// Init registers the metrics with the default registry. Later calls are no-ops.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			LLMRequestLatency,
			LLMRequests,
			StrategyFallbacks,
		)
	})
}
