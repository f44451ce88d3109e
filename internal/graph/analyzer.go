package graph

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/banking/risk-analytics/internal/config"
	"github.com/banking/risk-analytics/internal/pkg/logger"
)

var graphTracer = otel.Tracer("risk-engine.graph")

// Level buckets systemic analysis results
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

var levelRank = map[Level]int{LevelLow: 0, LevelMedium: 1, LevelHigh: 2, LevelCritical: 3}

// AtLeast reports whether l is as severe as other
func (l Level) AtLeast(other Level) bool {
	return levelRank[l] >= levelRank[other]
}

// bucket maps value onto a level using inclusive lower bounds
func bucket(value, medium, high, critical float64) Level {
	switch {
	case value >= critical:
		return LevelCritical
	case value >= high:
		return LevelHigh
	case value >= medium:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Analyzer runs network-level risk analyses over a graph Store.
// It keeps no analytic state between calls; every operation re-reads the graph.
type Analyzer struct {
	store      Store
	cfg        *config.GraphConfig
	centrality CentralityProvider
	log        *logger.Logger
	now        func() time.Time
}

// AnalyzerOption configures an Analyzer
type AnalyzerOption func(*Analyzer)

// WithCentralityProvider sets the exact centrality facility
func WithCentralityProvider(p CentralityProvider) AnalyzerOption {
	return func(a *Analyzer) {
		a.centrality = p
	}
}

// WithClock overrides the analyzer clock
func WithClock(now func() time.Time) AnalyzerOption {
	return func(a *Analyzer) {
		a.now = now
	}
}

// NewAnalyzer creates a new graph risk analyzer. When exact centrality is
// enabled and no provider is given, the built-in algorithms are used.
func NewAnalyzer(store Store, cfg *config.GraphConfig, log *logger.Logger, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		store: store,
		cfg:   cfg,
		log:   log.Named("graph_analyzer"),
		now:   time.Now,
	}
	if cfg.ExactCentrality {
		a.centrality = NewAlgorithmProvider(nil)
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Store returns the underlying graph store
func (a *Analyzer) Store() Store {
	return a.store
}

// read runs a traversal with the configured query timeout. Failures are
// logged and reported as false so callers return empty results.
func (a *Analyzer) read(ctx context.Context, op string, fn func(g *Graph) error) bool {
	if a.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.QueryTimeout)
		defer cancel()
	}

	start := time.Now()
	err := a.store.View(ctx, fn)
	queryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		queryFailures.WithLabelValues(op).Inc()
		a.log.WithContext(ctx).Warn("graph traversal failed",
			logger.StringField("analysis", op),
			logger.ErrorField(err),
		)
		return false
	}
	return true
}

func (a *Analyzer) maxPatterns() int {
	if a.cfg.MaxPatterns <= 0 {
		return 100
	}
	return a.cfg.MaxPatterns
}

func (a *Analyzer) done(op string, results int, start time.Time) {
	a.log.AnalysisCompleted(op, results, time.Since(start))
}
