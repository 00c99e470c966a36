package resilience

import (
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "geoippro",
		Name:      "circuit_breaker_state",
		Help:      "Breaker state per upstream (0 closed, 0.5 half-open, 1 open)",
	}, []string{"breaker"})

	breakerCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoippro",
		Name:      "circuit_breaker_calls_total",
		Help:      "Calls routed through a breaker by result (success, failure, rejected)",
	}, []string{"breaker", "result"})

	breakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoippro",
		Name:      "circuit_breaker_transitions_total",
		Help:      "Breaker state transitions",
	}, []string{"breaker", "to"})

	anonymousBreakers uint64
)

func nextBreakerName(base string) string {
	if base != "" {
		return base
	}
	return "breaker-" + strconv.FormatUint(atomic.AddUint64(&anonymousBreakers, 1), 10)
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 0.5
	default:
		return 1
	}
}

func recordBreakerState(name string, state gobreaker.State) {
	breakerState.WithLabelValues(name).Set(stateValue(state))
}

func recordBreakerStateChange(name string, _, to gobreaker.State) {
	breakerTransitions.WithLabelValues(name, to.String()).Inc()
	recordBreakerState(name, to)
}

func recordBreakerCall(name, result string) {
	breakerCalls.WithLabelValues(name, result).Inc()
}
