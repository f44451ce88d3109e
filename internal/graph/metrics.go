package graph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "risk_engine",
		Subsystem: "graph",
		Name:      "query_duration_seconds",
		Help:      "Duration of graph traversals by analysis",
		Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 15},
	}, []string{"op"})

	queryFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "risk_engine",
		Subsystem: "graph",
		Name:      "query_failures_total",
		Help:      "Graph traversals that failed or timed out",
	}, []string{"op"})

	patternsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "risk_engine",
		Subsystem: "graph",
		Name:      "patterns_detected_total",
		Help:      "Fraud patterns found in the graph by type",
	}, []string{"type"})

	propagationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "risk_engine",
		Subsystem: "graph",
		Name:      "propagation_simulations_total",
		Help:      "Stress propagation simulations by shock type",
	}, []string{"shock_type"})
)
