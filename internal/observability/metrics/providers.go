package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var breakerStates = []string{"closed", "half-open", "open"}

// ProviderMetrics tracks the outbound provider layer: embedding cache
// lookups and circuit breaker transitions.
type ProviderMetrics struct {
	service string

	embeddingCacheTotal *prometheus.CounterVec
	breakerState        *prometheus.GaugeVec
	breakerTransitions  *prometheus.CounterVec
}

func newProviderMetrics(service string, registry prometheus.Registerer) *ProviderMetrics {
	embeddingCacheTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ga",
			Subsystem: "embedding_cache",
			Name:      "lookups_total",
			Help:      "Embedding cache lookups by result.",
		},
		[]string{"service", "result"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ga",
			Subsystem: "breaker",
			Name:      "state",
			Help:      "Current circuit breaker state per operation (1 for the active state).",
		},
		[]string{"service", "operation", "state"},
	)
	breakerTransitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ga",
			Subsystem: "breaker",
			Name:      "transitions_total",
			Help:      "Circuit breaker transitions by target state.",
		},
		[]string{"service", "operation", "state"},
	)
	registry.MustRegister(embeddingCacheTotal, breakerState, breakerTransitions)

	return &ProviderMetrics{
		service:             service,
		embeddingCacheTotal: embeddingCacheTotal,
		breakerState:        breakerState,
		breakerTransitions:  breakerTransitions,
	}
}

// RecordEmbeddingCache counts one cache lookup by result.
func (m *ProviderMetrics) RecordEmbeddingCache(result string) {
	if m == nil {
		return
	}
	if result == "" {
		result = "unknown"
	}
	m.embeddingCacheTotal.WithLabelValues(m.service, result).Inc()
}

// ObserveBreakerState matches resilience.StateObserver.
func (m *ProviderMetrics) ObserveBreakerState(operation, state string) {
	if m == nil {
		return
	}
	for _, s := range breakerStates {
		value := 0.0
		if s == state {
			value = 1
		}
		m.breakerState.WithLabelValues(m.service, operation, s).Set(value)
	}
	m.breakerTransitions.WithLabelValues(m.service, operation, state).Inc()
}
