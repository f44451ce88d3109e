// Package scoring implements the rule-based multi-factor risk scoring model.
package scoring

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/banking/risk-analytics/internal/config"
	"github.com/banking/risk-analytics/internal/domain"
	"github.com/banking/risk-analytics/internal/pkg/mathx"
)

// Logistic parameters mapping the composite score onto a default probability
const (
	defaultSteepness = 0.8
	defaultOffset    = 5.0
)

// Recovery rate parameters
const (
	baseRecoveryRate  = 0.6
	minRecoveryRate   = 0.1
	maxRecoveryRate   = 0.9
	lowRiskRecovery   = 0.2
	highRiskRecovery  = -0.2
	minPaymentRecords = 5
)

// profileNamespace seeds deterministic profile ids per (entity type, entity id)
var profileNamespace = uuid.MustParse("6f1f3a0e-8d47-4c55-9a55-1f0c2a7d9b10")

// Model computes composite risk profiles from scoring inputs.
// It holds only immutable configuration and is safe for concurrent use.
type Model struct {
	modelID      string
	weights      config.FactorWeights
	sectorRisk   map[string]float64
	provinceRisk map[string]float64
	recoveryAdj  map[string]float64
	now          func() time.Time
}

// Option configures a Model
type Option func(*Model)

// WithClock overrides the clock used for company age and timestamps
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		m.now = now
	}
}

// NewModel creates a new scoring model from the scoring configuration
func NewModel(cfg *config.ScoringConfig, opts ...Option) *Model {
	m := &Model{
		modelID:      cfg.ModelID,
		weights:      cfg.Weights,
		sectorRisk:   normalizeTable(cfg.SectorRisk, sectorKey),
		provinceRisk: normalizeTable(cfg.ProvinceRisk, provinceKey),
		recoveryAdj:  normalizeTable(cfg.RecoveryAdjustments, sectorKey),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ModelID returns the identifier recorded on every profile
func (m *Model) ModelID() string {
	return m.modelID
}

// Factors computes the five 0-10 sub-scores
func (m *Model) Factors(in Inputs) domain.RiskFactors {
	return domain.RiskFactors{
		Financial:   financialScore(in.Accounting),
		Operational: operationalScore(in.Business, m.now()),
		Market:      lookupScore(m.sectorRisk, sectorKey(in.sector()), unknownSectorScore),
		Geographic:  lookupScore(m.provinceRisk, provinceKey(in.province()), unknownProvinceScore),
		Behavioral:  behavioralScore(in.Payments),
	}
}

// Calculate builds the risk profile of an entity. It has no side effects.
func (m *Model) Calculate(entityID string, entityType domain.EntityType, in Inputs) *domain.RiskProfile {
	now := m.now()
	factors := m.Factors(in)
	score := m.composite(factors)

	profile := &domain.RiskProfile{
		ID:                 uuid.NewSHA1(profileNamespace, []byte(domain.ProfileKey(entityType, entityID))),
		EntityType:         entityType,
		EntityID:           entityID,
		RiskScore:          score,
		RiskLevel:          domain.RiskLevelFromScore(score),
		DefaultProbability: DefaultProbability(score),
		RecoveryRate:       m.recoveryRate(score, in.sector()),
		RiskFactors:        factors,
		Calculation: domain.CalculationMetadata{
			ModelID:      m.modelID,
			Confidence:   confidence(in),
			DataPoints:   in.dataPoints(),
			CalculatedAt: now,
		},
		Province:  in.province(),
		Sector:    in.sector(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return profile
}

// composite is the weighted factor sum clamped to [0,10] with 2 decimals
func (m *Model) composite(f domain.RiskFactors) float64 {
	total := mathx.Sum(
		f.Financial*m.weights.Financial,
		f.Operational*m.weights.Operational,
		f.Market*m.weights.Market,
		f.Geographic*m.weights.Geographic,
		f.Behavioral*m.weights.Behavioral,
	)
	return mathx.Round(mathx.Clamp(total, 0, 10), 2)
}

func (m *Model) recoveryRate(score float64, sector string) float64 {
	parts := []float64{baseRecoveryRate}
	switch {
	case score < 4:
		parts = append(parts, lowRiskRecovery)
	case score > 7:
		parts = append(parts, highRiskRecovery)
	}
	if adj, ok := m.recoveryAdj[sectorKey(sector)]; ok && sector != "" {
		parts = append(parts, adj)
	}
	return mathx.Round(mathx.Clamp(mathx.Sum(parts...), minRecoveryRate, maxRecoveryRate), 2)
}

// DefaultProbability maps a 0-10 score onto a default probability with a
// logistic curve centered on 5.0. Rounded to 4 decimals.
func DefaultProbability(score float64) float64 {
	p := 1 / (1 + math.Exp(-defaultSteepness*(score-defaultOffset)))
	return mathx.Round(p, 4)
}

// confidence rewards the presence of each data section, capped at 1.0
func confidence(in Inputs) float64 {
	parts := make([]float64, 0, 4)
	if in.Accounting != nil {
		parts = append(parts, 0.3)
	}
	if in.Business != nil {
		parts = append(parts, 0.2)
	}
	if in.Location != nil {
		parts = append(parts, 0.1)
	}
	if len(in.Payments) >= minPaymentRecords {
		parts = append(parts, 0.2)
	}
	return mathx.Round(math.Min(mathx.Sum(parts...), 1.0), 2)
}
