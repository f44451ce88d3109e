package graph

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banking/risk-analytics/internal/pkg/mathx"
)

// InterconnectionRisk measures how many other institutions share clients
// with an institution.
type InterconnectionRisk struct {
	InstitutionID         string  `json:"institution_id"`
	Name                  string  `json:"name"`
	ConnectedInstitutions int     `json:"connected_institutions"`
	SharedClients         int     `json:"shared_clients"`
	InterconnectionRate   float64 `json:"interconnection_rate"` // percent
	RiskLevel             Level   `json:"risk_level"`
}

// ConcentrationRisk is an institution's market share within a sector
type ConcentrationRisk struct {
	SectorID      string  `json:"sector_id"`
	InstitutionID string  `json:"institution_id"`
	ClientCount   int     `json:"client_count"`
	SectorSMEs    int     `json:"sector_smes"`
	MarketShare   float64 `json:"market_share"` // percent
	Exposure      float64 `json:"exposure"`
	RiskLevel     Level   `json:"risk_level"`
}

// CascadeRisk is a distressed borrower whose lender also serves healthy ones
type CascadeRisk struct {
	SourceID            string   `json:"source_id"`
	SourceRisk          float64  `json:"source_risk"`
	InstitutionID       string   `json:"institution_id"`
	InstitutionExposure float64  `json:"institution_exposure"`
	Targets             []string `json:"targets"`
	RiskLevel           Level    `json:"risk_level"`
}

// SectoralRisk aggregates member risk and lending concentration per sector
type SectoralRisk struct {
	SectorID           string  `json:"sector_id"`
	Name               string  `json:"name"`
	EntityCount        int     `json:"entity_count"`
	AverageRisk        float64 `json:"average_risk"`
	DefaultRate        float64 `json:"default_rate"`
	TotalExposure      float64 `json:"total_exposure"`
	LenderCount        int     `json:"lender_count"`
	RiskLevel          Level   `json:"risk_level"`
	ConcentrationLevel Level   `json:"concentration_level"`
}

// SystemicRiskReport bundles the four systemic analyses
type SystemicRiskReport struct {
	Interconnection []InterconnectionRisk `json:"interconnection"`
	Concentration   []ConcentrationRisk   `json:"concentration"`
	Cascade         []CascadeRisk         `json:"cascade"`
	Sectoral        []SectoralRisk        `json:"sectoral"`
	CriticalCount   int                   `json:"critical_count"`
	GeneratedAt     time.Time             `json:"generated_at"`
}

// Interconnection rate boundaries, percent
const (
	interconnectionHigh     = 30.0
	interconnectionCritical = 70.0
)

// interconnectionLevel buckets a shared-client rate. Reaching 30% of peers
// is already HIGH; any link below that is MEDIUM.
func interconnectionLevel(rate float64) Level {
	switch {
	case rate >= interconnectionCritical:
		return LevelCritical
	case rate >= interconnectionHigh:
		return LevelHigh
	case rate > 0:
		return LevelMedium
	default:
		return LevelLow
	}
}

// InterconnectionRisk follows Institution -> Credit -> SME -> Credit -> Institution
// paths and rates each institution by the share of peers it is linked to.
func (a *Analyzer) InterconnectionRisk(ctx context.Context) []InterconnectionRisk {
	start := time.Now()
	var out []InterconnectionRisk
	ok := a.read(ctx, "interconnection", func(g *Graph) error {
		out = interconnection(g)
		return nil
	})
	if !ok {
		return []InterconnectionRisk{}
	}
	a.done("interconnection", len(out), start)
	return out
}

func interconnection(g *Graph) []InterconnectionRisk {
	institutions := g.Nodes(LabelInstitution)
	out := make([]InterconnectionRisk, 0, len(institutions))
	total := len(institutions)

	for _, inst := range institutions {
		connected := make(map[string]bool)
		shared := make(map[string]bool)
		for _, cl := range CreditsFrom(g, inst.ID) {
			for _, other := range CreditsOf(g, cl.Borrower.ID) {
				if other.Lender.ID == inst.ID || other.Lender.Label != LabelInstitution {
					continue
				}
				connected[other.Lender.ID] = true
				shared[cl.Borrower.ID] = true
			}
		}

		var rate float64
		if total > 1 {
			rate = mathx.Round(float64(len(connected))/float64(total-1)*100, 2)
		}
		out = append(out, InterconnectionRisk{
			InstitutionID:         inst.ID,
			Name:                  inst.Name(),
			ConnectedInstitutions: len(connected),
			SharedClients:         len(shared),
			InterconnectionRate:   rate,
			RiskLevel:             interconnectionLevel(rate),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].InterconnectionRate != out[j].InterconnectionRate {
			return out[i].InterconnectionRate > out[j].InterconnectionRate
		}
		return out[i].InstitutionID < out[j].InstitutionID
	})
	return out
}

// ConcentrationRisk computes each institution's share of a sector's SMEs
func (a *Analyzer) ConcentrationRisk(ctx context.Context) []ConcentrationRisk {
	start := time.Now()
	out := make([]ConcentrationRisk, 0)
	ok := a.read(ctx, "concentration", func(g *Graph) error {
		out = concentration(g)
		return nil
	})
	if !ok {
		return []ConcentrationRisk{}
	}
	a.done("concentration", len(out), start)
	return out
}

func concentration(g *Graph) []ConcentrationRisk {
	out := make([]ConcentrationRisk, 0)
	for _, sector := range g.Nodes(LabelSector) {
		members := g.In(sector.ID, RelOperatesIn)
		if len(members) == 0 {
			continue
		}

		clients := make(map[string]map[string]bool)
		exposure := make(map[string]float64)
		for _, m := range members {
			for _, cl := range CreditsOf(g, m.From) {
				if cl.Lender.Label != LabelInstitution {
					continue
				}
				if clients[cl.Lender.ID] == nil {
					clients[cl.Lender.ID] = make(map[string]bool)
				}
				clients[cl.Lender.ID][m.From] = true
				exposure[cl.Lender.ID] += cl.Credit.Props.Float(PropAmount)
			}
		}

		for instID, set := range clients {
			share := mathx.Round(float64(len(set))/float64(len(members))*100, 2)
			out = append(out, ConcentrationRisk{
				SectorID:      sector.ID,
				InstitutionID: instID,
				ClientCount:   len(set),
				SectorSMEs:    len(members),
				MarketShare:   share,
				Exposure:      exposure[instID],
				RiskLevel:     bucket(share, 15, 25, 40),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MarketShare != out[j].MarketShare {
			return out[i].MarketShare > out[j].MarketShare
		}
		if out[i].SectorID != out[j].SectorID {
			return out[i].SectorID < out[j].SectorID
		}
		return out[i].InstitutionID < out[j].InstitutionID
	})
	return out
}

// CascadeRisk finds chains source(risk>8) -> institution -> target(risk<5)
func (a *Analyzer) CascadeRisk(ctx context.Context) []CascadeRisk {
	start := time.Now()
	out := make([]CascadeRisk, 0)
	ok := a.read(ctx, "cascade", func(g *Graph) error {
		out = cascade(g)
		return nil
	})
	if !ok {
		return []CascadeRisk{}
	}
	a.done("cascade", len(out), start)
	return out
}

func cascade(g *Graph) []CascadeRisk {
	out := make([]CascadeRisk, 0)
	exposureCache := make(map[string]float64)
	exposureOf := func(instID string) float64 {
		if v, ok := exposureCache[instID]; ok {
			return v
		}
		var total float64
		for _, cl := range CreditsFrom(g, instID) {
			total += cl.Credit.Props.Float(PropAmount)
		}
		exposureCache[instID] = total
		return total
	}

	for _, source := range g.Nodes(LabelSME) {
		risk := source.RiskScore()
		if risk <= 8 {
			continue
		}

		seenInst := make(map[string]bool)
		for _, cl := range CreditsOf(g, source.ID) {
			inst := cl.Lender
			if inst.Label != LabelInstitution || seenInst[inst.ID] {
				continue
			}
			seenInst[inst.ID] = true

			targets := make(map[string]bool)
			for _, other := range CreditsFrom(g, inst.ID) {
				b := other.Borrower
				if b.ID != source.ID && b.RiskScore() < 5 {
					targets[b.ID] = true
				}
			}
			if len(targets) == 0 {
				continue
			}

			exposure := exposureOf(inst.ID)
			out = append(out, CascadeRisk{
				SourceID:            source.ID,
				SourceRisk:          risk,
				InstitutionID:       inst.ID,
				InstitutionExposure: exposure,
				Targets:             sortedKeys(targets),
				RiskLevel:           cascadeLevel(risk, exposure),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SourceRisk != out[j].SourceRisk {
			return out[i].SourceRisk > out[j].SourceRisk
		}
		if out[i].SourceID != out[j].SourceID {
			return out[i].SourceID < out[j].SourceID
		}
		return out[i].InstitutionID < out[j].InstitutionID
	})
	return out
}

func cascadeLevel(sourceRisk, exposure float64) Level {
	switch {
	case sourceRisk >= 9 && exposure > 1e9:
		return LevelCritical
	case exposure > 5e8:
		return LevelHigh
	case exposure > 1e8:
		return LevelMedium
	default:
		return LevelLow
	}
}

// SectoralRisk aggregates average member risk and default rate per sector
func (a *Analyzer) SectoralRisk(ctx context.Context) []SectoralRisk {
	start := time.Now()
	out := make([]SectoralRisk, 0)
	ok := a.read(ctx, "sectoral", func(g *Graph) error {
		out = sectoral(g)
		return nil
	})
	if !ok {
		return []SectoralRisk{}
	}
	a.done("sectoral", len(out), start)
	return out
}

func sectoral(g *Graph) []SectoralRisk {
	out := make([]SectoralRisk, 0)
	for _, sector := range g.Nodes(LabelSector) {
		members := g.In(sector.ID, RelOperatesIn)
		if len(members) == 0 {
			continue
		}

		var riskSum, exposure float64
		lenders := make(map[string]bool)
		for _, m := range members {
			n, _ := g.Node(m.From)
			riskSum += n.RiskScore()
			for _, cl := range CreditsOf(g, n.ID) {
				exposure += cl.Credit.Props.Float(PropAmount)
				if cl.Lender.Label == LabelInstitution {
					lenders[cl.Lender.ID] = true
				}
			}
		}

		avg := mathx.Round(riskSum/float64(len(members)), 2)
		defaultRate := sector.Props.Float(PropDefaultRate)
		out = append(out, SectoralRisk{
			SectorID:           sector.ID,
			Name:               sector.Name(),
			EntityCount:        len(members),
			AverageRisk:        avg,
			DefaultRate:        defaultRate,
			TotalExposure:      exposure,
			LenderCount:        len(lenders),
			RiskLevel:          sectorLevel(avg, defaultRate),
			ConcentrationLevel: lenderConcentration(len(lenders)),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AverageRisk != out[j].AverageRisk {
			return out[i].AverageRisk > out[j].AverageRisk
		}
		return out[i].SectorID < out[j].SectorID
	})
	return out
}

func sectorLevel(avgRisk, defaultRate float64) Level {
	switch {
	case avgRisk >= 8 || defaultRate >= 15:
		return LevelCritical
	case avgRisk >= 6.5 || defaultRate >= 10:
		return LevelHigh
	case avgRisk >= 5 || defaultRate >= 7:
		return LevelMedium
	default:
		return LevelLow
	}
}

func lenderConcentration(lenders int) Level {
	switch {
	case lenders < 2:
		return LevelHigh
	case lenders < 4:
		return LevelMedium
	default:
		return LevelLow
	}
}

// AnalyzeSystemicRisks runs the four systemic analyses concurrently
func (a *Analyzer) AnalyzeSystemicRisks(ctx context.Context) *SystemicRiskReport {
	ctx, span := graphTracer.Start(ctx, "graph.AnalyzeSystemicRisks")
	defer span.End()

	report := &SystemicRiskReport{GeneratedAt: a.now()}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r := a.InterconnectionRisk(gctx)
		mu.Lock()
		report.Interconnection = r
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		r := a.ConcentrationRisk(gctx)
		mu.Lock()
		report.Concentration = r
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		r := a.CascadeRisk(gctx)
		mu.Lock()
		report.Cascade = r
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		r := a.SectoralRisk(gctx)
		mu.Lock()
		report.Sectoral = r
		mu.Unlock()
		return nil
	})
	// Each analysis degrades to an empty slice instead of failing
	_ = g.Wait()

	for _, r := range report.Interconnection {
		if r.RiskLevel == LevelCritical {
			report.CriticalCount++
		}
	}
	for _, r := range report.Concentration {
		if r.RiskLevel == LevelCritical {
			report.CriticalCount++
		}
	}
	for _, r := range report.Cascade {
		if r.RiskLevel == LevelCritical {
			report.CriticalCount++
		}
	}
	for _, r := range report.Sectoral {
		if r.RiskLevel == LevelCritical {
			report.CriticalCount++
		}
	}
	return report
}
