package fraud

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	detectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "risk_engine",
		Subsystem: "fraud",
		Name:      "detection_duration_seconds",
		Help:      "Fraud detection latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	})

	// alertsRaised counts alerts by fraud type and severity.
	// Labels: fraud_type, severity
	alertsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "risk_engine",
		Subsystem: "fraud",
		Name:      "alerts_total",
		Help:      "Total fraud alerts raised",
	}, []string{"fraud_type", "severity"})

	// heuristicFailures counts isolated heuristic errors and panics.
	// Labels: heuristic
	heuristicFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "risk_engine",
		Subsystem: "fraud",
		Name:      "heuristic_failures_total",
		Help:      "Total heuristic evaluations that failed",
	}, []string{"heuristic"})

	alertSaveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "risk_engine",
		Subsystem: "fraud",
		Name:      "alert_save_failures_total",
		Help:      "Total alerts that could not be persisted",
	})
)
