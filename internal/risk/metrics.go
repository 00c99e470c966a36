package risk

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeClear   = "clear"
	outcomeFlagged = "flagged"
	outcomeSkipped = "skipped"
	outcomeError   = "error"
)

var (
	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoippro_risk_evaluations_total",
		Help: "Total number of risk evaluations by verdict",
	}, []string{"verdict"})

	evaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "geoippro_risk_evaluation_duration_seconds",
		Help:    "End-to-end risk evaluation latency",
		Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2, 5},
	})

	checkOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoippro_risk_check_outcomes_total",
		Help: "Signal check outcomes (clear, flagged, skipped, error)",
	}, []string{"check", "outcome"})

	checkErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoippro_risk_check_errors_total",
		Help: "Capability failures that were treated as no evidence",
	}, []string{"check"})

	checkDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geoippro_risk_check_duration_seconds",
		Help:    "Latency of individual signal checks",
		Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2},
	}, []string{"check"})

	evaluationPanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geoippro_risk_evaluation_panics_total",
		Help: "Evaluations that panicked and were returned as clear",
	})
)

func verdictLabel(v Verdict) string {
	if v.IsFraud {
		return "fraud"
	}
	return "clear"
}
