package scoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// profilesScored counts persisted profiles.
	// Labels: entity_type, risk_level
	profilesScored = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "risk_engine",
		Subsystem: "scoring",
		Name:      "profiles_scored_total",
		Help:      "Total risk profiles scored and persisted",
	}, []string{"entity_type", "risk_level"})

	riskScoreHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "risk_engine",
		Subsystem: "scoring",
		Name:      "risk_score",
		Help:      "Distribution of composite risk scores",
		Buckets:   []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	}, []string{"entity_type"})

	scoringErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "risk_engine",
		Subsystem: "scoring",
		Name:      "errors_total",
		Help:      "Total scoring calls that failed to persist",
	})
)
