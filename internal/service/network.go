package service

import (
	"context"
	"math"

	"github.com/banking/risk-analytics/internal/graph"
	"github.com/banking/risk-analytics/internal/pkg/logger"
)

// PatternReport holds detected patterns and the propagation simulations
// triggered by the high-risk ones
type PatternReport struct {
	Patterns     []graph.RiskPattern   `json:"patterns"`
	Propagations []*PatternPropagation `json:"propagations,omitempty"`
}

// PatternPropagation is the stress simulation run for one pattern
type PatternPropagation struct {
	PatternID string              `json:"pattern_id"`
	Result    *graph.StressResult `json:"result"`
}

// AnalyzeSystemicRisks refreshes concentration points when configured and
// returns the four systemic analyses
func (s *Service) AnalyzeSystemicRisks(ctx context.Context) *graph.SystemicRiskReport {
	if s.cfg.MaintainConcentration {
		if n, err := s.graph.MaintainConcentrationPoints(ctx); err != nil {
			s.log.WithContext(ctx).Warn("failed to maintain concentration points", logger.ErrorField(err))
		} else {
			s.log.Debug("concentration points maintained", logger.IntField("points", n))
		}
	}
	return s.graph.AnalyzeSystemicRisks(ctx)
}

// DetectFraudPatterns runs the pattern detectors. Every pattern scoring at
// or above the high-risk threshold triggers a fraud exposure propagation
// over its entities.
func (s *Service) DetectFraudPatterns(ctx context.Context) *PatternReport {
	ctx, span := serviceTracer.Start(ctx, "service.DetectFraudPatterns")
	defer span.End()

	report := &PatternReport{Patterns: s.graph.DetectFraudPatterns(ctx)}
	for _, p := range report.Patterns {
		if s.cfg.HighRiskPatternScore <= 0 || p.RiskScore < s.cfg.HighRiskPatternScore {
			continue
		}
		scenario := graph.StressScenario{
			ShockType:      graph.ShockFraudExposure,
			Magnitude:      propagationMagnitude(p.RiskScore),
			TargetEntities: p.Entities,
		}
		result, err := s.graph.SimulateRiskPropagation(ctx, scenario)
		if err != nil {
			s.log.WithContext(ctx).Warn("pattern propagation failed",
				logger.StringField("pattern_id", p.PatternID),
				logger.ErrorField(err),
			)
			continue
		}
		report.Propagations = append(report.Propagations, &PatternPropagation{
			PatternID: p.PatternID,
			Result:    result,
		})
	}
	return report
}

// propagationMagnitude maps a pattern score onto the 1-10 shock scale
func propagationMagnitude(score float64) float64 {
	return math.Max(1, math.Min(score/2, 10))
}

// SimulateRiskPropagation runs a stress scenario. Invalid scenarios return
// domain.ErrInvalidInput.
func (s *Service) SimulateRiskPropagation(ctx context.Context, scenario graph.StressScenario) (*graph.StressResult, error) {
	return s.graph.SimulateRiskPropagation(ctx, scenario)
}

// FindContagionPaths searches contagion paths from a seed entity
func (s *Service) FindContagionPaths(ctx context.Context, seedID string, maxHops int) []graph.ContagionPath {
	return s.graph.FindContagionPaths(ctx, seedID, maxHops)
}

// CalculateCentrality ranks the most central entities
func (s *Service) CalculateCentrality(ctx context.Context, limit int) []graph.CentralityScore {
	return s.graph.CalculateCentrality(ctx, limit)
}

// DetectCommunities groups SMEs by geography and sector
func (s *Service) DetectCommunities(ctx context.Context) []graph.Community {
	return s.graph.DetectCommunities(ctx)
}

// AnalyzeResilience scores the institutions' capacity to absorb shocks
func (s *Service) AnalyzeResilience(ctx context.Context) *graph.ResilienceReport {
	return s.graph.AnalyzeResilience(ctx)
}

// RegisterSME adds or updates an SME node
func (s *Service) RegisterSME(ctx context.Context, sme graph.SMERecord) error {
	return s.graph.UpsertSME(ctx, sme)
}

// RecordCredit links a credit between a lender and a borrower
func (s *Service) RecordCredit(ctx context.Context, c graph.CreditRecord) error {
	return s.graph.RecordCredit(ctx, c)
}
