package graph

import (
	"context"
	"time"

	"github.com/banking/risk-analytics/internal/pkg/mathx"
)

// Resilience criteria for institutions
const (
	wellCapitalizedRatio = 20.0
	diversifiedSectors   = 5
	lowCompositeRisk     = 5.0
)

// Resilience levels
const (
	ResilienceStrong   = "STRONG"
	ResilienceAdequate = "ADEQUATE"
	ResilienceWeak     = "WEAK"
)

// ResilienceReport measures the system capacity to absorb shocks
type ResilienceReport struct {
	Institutions    int       `json:"institutions"`
	WellCapitalized int       `json:"well_capitalized"`
	WellDiversified int       `json:"well_diversified"`
	LowRisk         int       `json:"low_risk"`
	ResilienceScore float64   `json:"resilience_score"` // 0-10
	ResilienceLevel string    `json:"resilience_level"`
	Weaknesses      []string  `json:"weaknesses"`
	CalculatedAt    time.Time `json:"calculated_at"`
}

// AnalyzeResilience averages the share of well-capitalized, diversified and
// low-risk institutions and scales it to 0-10.
func (a *Analyzer) AnalyzeResilience(ctx context.Context) *ResilienceReport {
	ctx, span := graphTracer.Start(ctx, "graph.AnalyzeResilience")
	defer span.End()
	start := time.Now()

	report := &ResilienceReport{ResilienceLevel: ResilienceWeak, Weaknesses: []string{}}
	a.read(ctx, "resilience", func(g *Graph) error {
		report = resilience(g)
		return nil
	})
	report.CalculatedAt = a.now()
	a.done("resilience", report.Institutions, start)
	return report
}

func resilience(g *Graph) *ResilienceReport {
	r := &ResilienceReport{Weaknesses: []string{}}
	for _, inst := range g.Nodes(LabelInstitution) {
		r.Institutions++
		if inst.Props.Float(PropCapitalRatio) > wellCapitalizedRatio {
			r.WellCapitalized++
		}
		sectors := make(map[string]bool)
		for _, cl := range CreditsFrom(g, inst.ID) {
			if s := SectorOf(g, cl.Borrower.ID); s != "" {
				sectors[s] = true
			}
		}
		if len(sectors) > diversifiedSectors {
			r.WellDiversified++
		}
		if inst.RiskScore() < lowCompositeRisk {
			r.LowRisk++
		}
	}

	if r.Institutions == 0 {
		r.ResilienceLevel = ResilienceWeak
		r.Weaknesses = append(r.Weaknesses, "no_institutions_in_graph")
		return r
	}

	n := float64(r.Institutions)
	capital := float64(r.WellCapitalized) / n
	diversified := float64(r.WellDiversified) / n
	lowRisk := float64(r.LowRisk) / n
	r.ResilienceScore = mathx.Round((capital+diversified+lowRisk)/3*10, 2)

	switch {
	case r.ResilienceScore >= 7:
		r.ResilienceLevel = ResilienceStrong
	case r.ResilienceScore >= 4:
		r.ResilienceLevel = ResilienceAdequate
	default:
		r.ResilienceLevel = ResilienceWeak
	}

	if capital < 0.5 {
		r.Weaknesses = append(r.Weaknesses, "insufficient_capitalization")
	}
	if diversified < 0.5 {
		r.Weaknesses = append(r.Weaknesses, "sector_concentration")
	}
	if lowRisk < 0.5 {
		r.Weaknesses = append(r.Weaknesses, "elevated_institution_risk")
	}
	return r
}
