// Package fraud implements the statistical fraud anomaly detector.
package fraud

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/banking/risk-analytics/internal/config"
	"github.com/banking/risk-analytics/internal/domain"
	"github.com/banking/risk-analytics/internal/pkg/logger"
	"github.com/banking/risk-analytics/internal/pkg/mathx"
	"github.com/banking/risk-analytics/internal/pkg/normalize"
)

var fraudTracer = otel.Tracer("risk-engine.fraud")

// heuristicOrder fixes the order alerts are returned in
var heuristicOrder = map[string]int{
	HeuristicAmount:     0,
	HeuristicTemporal:   1,
	HeuristicVelocity:   2,
	HeuristicGeographic: 3,
	HeuristicLaundering: 4,
}

// Detector evaluates single transactions against five independent heuristics
type Detector struct {
	history HistoryProvider
	alerts  domain.FraudAlertStore

	cfg               *config.FraudConfig
	thresholds        map[domain.FraudType]float64
	highRiskProvinces map[string]bool
	log               *logger.Logger

	// Metrics
	detectionCount int64
	avgLatencyMs   float64
	latencyMu      sync.RWMutex
}

// NewDetector creates a new fraud anomaly detector
func NewDetector(
	history HistoryProvider,
	alerts domain.FraudAlertStore,
	cfg *config.FraudConfig,
	log *logger.Logger,
) *Detector {
	thresholds := make(map[domain.FraudType]float64, len(cfg.Thresholds))
	for k, v := range cfg.Thresholds {
		thresholds[domain.FraudType(k)] = v
	}

	highRisk := make(map[string]bool, len(cfg.HighRiskProvinces))
	for _, p := range cfg.HighRiskProvinces {
		highRisk[normalize.Province(p)] = true
	}

	return &Detector{
		history:           history,
		alerts:            alerts,
		cfg:               cfg,
		thresholds:        thresholds,
		highRiskProvinces: highRisk,
		log:               log.Named("fraud_detector"),
	}
}

// detectionContext holds intermediate results during detection
type detectionContext struct {
	tx *domain.Transaction

	amounts   []float64
	recent    []*domain.Transaction
	locations []string
	results   []Result

	mu sync.Mutex
}

func (d *detectionContext) addResult(r Result) {
	d.mu.Lock()
	d.results = append(d.results, r)
	d.mu.Unlock()
}

// Analyze evaluates a transaction and returns the alerts it raised, which
// may be empty. Invalid transactions are rejected before any heuristic runs.
func (d *Detector) Analyze(ctx context.Context, tx *domain.Transaction) ([]*domain.FraudAlert, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	startTime := time.Now()
	ctx, span := fraudTracer.Start(ctx, "fraud.Analyze")
	defer span.End()
	span.SetAttributes(
		attribute.String("transaction.id", tx.ID),
		attribute.String("entity.id", tx.EntityID),
	)

	log := d.log.WithContext(ctx)
	log.DetectionStarted(tx.ID, tx.EntityID)

	dctx, err := d.loadHistory(ctx, tx)
	if err != nil {
		return nil, err
	}

	results := d.evaluate(ctx, dctx)

	alerts := make([]*domain.FraudAlert, 0, len(results))
	for _, r := range results {
		if !r.Anomalous {
			continue
		}
		alert := d.buildAlert(tx, r)
		alerts = append(alerts, d.persist(ctx, alert))
	}

	durationMs := time.Since(startTime).Milliseconds()
	d.recordLatency(durationMs)
	detectionDuration.Observe(time.Since(startTime).Seconds())
	span.SetAttributes(attribute.Int("alerts", len(alerts)))

	if d.cfg.MaxDetectionLatency > 0 && durationMs > d.cfg.MaxDetectionLatency.Milliseconds() {
		log.LatencyWarning("fraud_detection", durationMs, d.cfg.MaxDetectionLatency.Milliseconds())
	}
	log.DetectionCompleted(tx.ID, len(alerts), durationMs)

	return alerts, nil
}

// loadHistory fetches the three history views in parallel. A failed lookup
// leaves its view empty so the dependent heuristic reports low confidence.
func (d *Detector) loadHistory(ctx context.Context, tx *domain.Transaction) (*detectionContext, error) {
	dctx := &detectionContext{tx: tx}

	loadCtx := ctx
	if d.cfg.MaxDetectionLatency > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, d.cfg.MaxDetectionLatency)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(loadCtx)

	g.Go(func() error {
		amounts, err := d.history.RecentAmounts(gctx, tx.EntityID)
		if err != nil {
			d.log.Warn("failed to load recent amounts", logger.ErrorField(err))
			return nil
		}
		dctx.mu.Lock()
		dctx.amounts = amounts
		dctx.mu.Unlock()
		return nil
	})

	g.Go(func() error {
		recent, err := d.history.RecentTransactions(gctx, tx.EntityID, d.cfg.HistoryHoursBack)
		if err != nil {
			d.log.Warn("failed to load recent transactions", logger.ErrorField(err))
			return nil
		}
		dctx.mu.Lock()
		dctx.recent = recent
		dctx.mu.Unlock()
		return nil
	})

	g.Go(func() error {
		locations, err := d.history.RecentLocations(gctx, tx.EntityID)
		if err != nil {
			d.log.Debug("no recent locations available", logger.ErrorField(err))
			return nil
		}
		dctx.mu.Lock()
		dctx.locations = locations
		dctx.mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load history for %s: %w", tx.EntityID, err)
	}
	return dctx, nil
}

// evaluate runs all heuristics concurrently. Each one is isolated: a failing
// heuristic is logged and dropped while the others still report.
func (d *Detector) evaluate(ctx context.Context, dctx *detectionContext) []Result {
	tx := dctx.tx
	act := newActivity(tx, dctx.recent)

	heuristics := map[string]func() Result{
		HeuristicAmount: func() Result {
			return amountAnomaly(tx, dctx.amounts, d.cfg.MinAmountHistory)
		},
		HeuristicTemporal: func() Result {
			return temporalAnomaly(tx, act)
		},
		HeuristicVelocity: func() Result {
			return velocityAnomaly(tx, act)
		},
		HeuristicGeographic: func() Result {
			return geographicAnomaly(tx, dctx.locations, d.highRiskProvinces)
		},
		HeuristicLaundering: func() Result {
			return launderingPattern(tx, act, d.cfg.DeclarationThreshold)
		},
	}

	var g errgroup.Group
	for name, fn := range heuristics {
		name, fn := name, fn
		g.Go(func() error {
			r, err := runIsolated(fn)
			if err != nil {
				heuristicFailures.WithLabelValues(name).Inc()
				d.log.WithContext(ctx).HeuristicFailed(name, tx.ID, err)
				return nil
			}
			dctx.addResult(r)
			return nil
		})
	}
	// Heuristic goroutines never return errors
	_ = g.Wait()

	results := dctx.results
	sort.Slice(results, func(i, j int) bool {
		return heuristicOrder[results[i].Heuristic] < heuristicOrder[results[j].Heuristic]
	})
	return results
}

// runIsolated converts a heuristic panic into an error
func runIsolated(fn func() Result) (r Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("heuristic panic: %v", rec)
		}
	}()
	return fn(), nil
}

func (d *Detector) buildAlert(tx *domain.Transaction, r Result) *domain.FraudAlert {
	severity := domain.DetermineSeverity(r.Score)
	return domain.NewFraudAlert(domain.NewAlertParams{
		EntityID:      tx.EntityID,
		EntityType:    tx.EntityType,
		TransactionID: tx.ID,
		FraudType:     r.FraudType,
		RiskScore:     mathx.Round(r.Score, 3),
		Threshold:     d.thresholds[r.FraudType],
		Evidence: domain.Evidence{
			Indicators:      r.Indicators,
			Confidence:      mathx.Round(r.Confidence, 2),
			DetectionMethod: r.Method,
			AnomalyScore:    r.Score,
		},
		Province:           tx.Province(),
		RecommendedActions: recommendedActions(r.FraudType, severity),
		DetectedAt:         tx.Timestamp,
	})
}

// persist saves the alert best-effort. A store failure is logged and the
// unsaved alert is still returned to the caller.
func (d *Detector) persist(ctx context.Context, alert *domain.FraudAlert) *domain.FraudAlert {
	alertsRaised.WithLabelValues(string(alert.FraudType), string(alert.Severity)).Inc()

	saved, err := d.alerts.Save(ctx, alert)
	if err != nil {
		alertSaveFailures.Inc()
		d.log.Warn("failed to persist fraud alert",
			logger.StringField("alert_id", alert.ID.String()),
			logger.ErrorField(err),
		)
		saved = alert
	}

	d.log.AlertCreated(saved.ID.String(), string(saved.FraudType), saved.EntityID, string(saved.Severity), saved.RiskScore)
	return saved
}

// recordLatency records detection latency for metrics
func (d *Detector) recordLatency(durationMs int64) {
	d.latencyMu.Lock()
	defer d.latencyMu.Unlock()

	d.detectionCount++
	// Exponential moving average
	d.avgLatencyMs = d.avgLatencyMs*0.9 + float64(durationMs)*0.1
}

// Stats summarizes detector activity since start
type Stats struct {
	Detections   int64   `json:"detections"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// Stats returns the detection count and average latency
func (d *Detector) Stats() Stats {
	d.latencyMu.RLock()
	defer d.latencyMu.RUnlock()
	return Stats{Detections: d.detectionCount, AvgLatencyMs: d.avgLatencyMs}
}
