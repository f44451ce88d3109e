// Package microrel analyzes credit portfolios for concentration and product mix.
package microrel

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/banking/risk-analytics/internal/config"
	"github.com/banking/risk-analytics/internal/graph"
	"github.com/banking/risk-analytics/internal/pkg/logger"
	"github.com/banking/risk-analytics/internal/pkg/mathx"
)

var microrelTracer = otel.Tracer("risk-engine.microrel")

const (
	unknownKey      = "unknown"
	unspecifiedType = "unspecified"
	topShares       = 5
)

// Share is the exposure held by one key of a breakdown
type Share struct {
	Key     string  `json:"key"`
	Amount  float64 `json:"amount"`
	Percent float64 `json:"percent"`
}

// PortfolioConcentration is the Herfindahl-Hirschman breakdown of a lender's book
type PortfolioConcentration struct {
	InstitutionID string      `json:"institution_id"`
	Credits       int         `json:"credits"`
	TotalExposure float64     `json:"total_exposure"`
	BorrowerHHI   float64     `json:"borrower_hhi"`
	SectorHHI     float64     `json:"sector_hhi"`
	ProvinceHHI   float64     `json:"province_hhi"`
	BorrowerLevel graph.Level `json:"borrower_level"`
	SectorLevel   graph.Level `json:"sector_level"`
	ProvinceLevel graph.Level `json:"province_level"`
	OverallLevel  graph.Level `json:"overall_level"`
	TopBorrowers  []Share     `json:"top_borrowers"`
	TopSectors    []Share     `json:"top_sectors"`
	CalculatedAt  time.Time   `json:"calculated_at"`
}

// maxHHI returns the largest of the three indices
func (p *PortfolioConcentration) maxHHI() float64 {
	m := p.BorrowerHHI
	if p.SectorHHI > m {
		m = p.SectorHHI
	}
	if p.ProvinceHHI > m {
		m = p.ProvinceHHI
	}
	return m
}

// ProductMix describes how diversified a lender's products are
type ProductMix struct {
	InstitutionID        string    `json:"institution_id"`
	Products             []Share   `json:"products"`
	DiversificationIndex float64   `json:"diversification_index"` // 0-1
	DominantProduct      string    `json:"dominant_product"`
	DominantShare        float64   `json:"dominant_share"`
	CalculatedAt         time.Time `json:"calculated_at"`
}

// BorrowerDependency measures how dependent an SME is on its lenders
type BorrowerDependency struct {
	SMEID     string      `json:"sme_id"`
	TotalDebt float64     `json:"total_debt"`
	Lenders   []Share     `json:"lenders"`
	HHI       float64     `json:"hhi"`
	Level     graph.Level `json:"level"`
}

// Analyzer computes portfolio metrics from the risk graph
type Analyzer struct {
	store graph.Store
	cfg   *config.MicroRelConfig
	log   *logger.Logger
	now   func() time.Time
}

// NewAnalyzer creates a portfolio analyzer
func NewAnalyzer(store graph.Store, cfg *config.MicroRelConfig, log *logger.Logger) *Analyzer {
	return &Analyzer{
		store: store,
		cfg:   cfg,
		log:   log.Named("microrel"),
		now:   time.Now,
	}
}

// Level classifies an HHI on the 0-10000 scale
func (a *Analyzer) Level(hhi float64) graph.Level {
	medium, high := a.cfg.MediumHHI, a.cfg.HighHHI
	if medium <= 0 {
		medium = 1500
	}
	if high <= 0 {
		high = 2500
	}
	switch {
	case hhi >= high:
		return graph.LevelHigh
	case hhi >= medium:
		return graph.LevelMedium
	default:
		return graph.LevelLow
	}
}

// PortfolioConcentration computes borrower, sector and province HHI for a
// lender. Unknown institutions return graph.ErrNodeNotFound.
func (a *Analyzer) PortfolioConcentration(ctx context.Context, institutionID string) (*PortfolioConcentration, error) {
	ctx, span := microrelTracer.Start(ctx, "microrel.PortfolioConcentration",
		trace.WithAttributes(attribute.String("institution_id", institutionID)),
	)
	defer span.End()

	var out *PortfolioConcentration
	err := a.store.View(ctx, func(g *graph.Graph) error {
		if _, ok := g.Node(institutionID); !ok {
			return fmt.Errorf("%w: %s", graph.ErrNodeNotFound, institutionID)
		}
		out = a.concentration(g, institutionID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Analyzer) concentration(g *graph.Graph, institutionID string) *PortfolioConcentration {
	borrowers := newBreakdown()
	sectors := newBreakdown()
	provinces := newBreakdown()

	credits := graph.CreditsFrom(g, institutionID)
	for _, cl := range credits {
		amount := cl.Credit.Props.Float(graph.PropAmount)
		borrowers.add(cl.Borrower.ID, amount)
		sectors.add(orUnknown(graph.SectorOf(g, cl.Borrower.ID)), amount)
		provinces.add(orUnknown(graph.ProvinceOf(g, cl.Borrower.ID)), amount)
	}

	p := &PortfolioConcentration{
		InstitutionID: institutionID,
		Credits:       len(credits),
		TotalExposure: borrowers.total,
		BorrowerHHI:   borrowers.hhi(),
		SectorHHI:     sectors.hhi(),
		ProvinceHHI:   provinces.hhi(),
		TopBorrowers:  borrowers.top(topShares),
		TopSectors:    sectors.top(topShares),
		CalculatedAt:  a.now(),
	}
	p.BorrowerLevel = a.Level(p.BorrowerHHI)
	p.SectorLevel = a.Level(p.SectorHHI)
	p.ProvinceLevel = a.Level(p.ProvinceHHI)
	p.OverallLevel = a.Level(p.maxHHI())
	return p
}

// AllPortfolioConcentrations computes concentration for every institution,
// most concentrated first. Traversal failures yield an empty result.
func (a *Analyzer) AllPortfolioConcentrations(ctx context.Context) []*PortfolioConcentration {
	ctx, span := microrelTracer.Start(ctx, "microrel.AllPortfolioConcentrations")
	defer span.End()
	start := time.Now()

	out := make([]*PortfolioConcentration, 0)
	err := a.store.View(ctx, func(g *graph.Graph) error {
		for _, inst := range g.Nodes(graph.LabelInstitution) {
			out = append(out, a.concentration(g, inst.ID))
		}
		return nil
	})
	if err != nil {
		a.log.WithContext(ctx).Warn("portfolio traversal failed", logger.ErrorField(err))
		return []*PortfolioConcentration{}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].maxHHI() != out[j].maxHHI() {
			return out[i].maxHHI() > out[j].maxHHI()
		}
		return out[i].InstitutionID < out[j].InstitutionID
	})
	a.log.AnalysisCompleted("portfolio_concentration", len(out), time.Since(start))
	return out
}

// ProductMix breaks a lender's exposure down by product type
func (a *Analyzer) ProductMix(ctx context.Context, institutionID string) (*ProductMix, error) {
	ctx, span := microrelTracer.Start(ctx, "microrel.ProductMix",
		trace.WithAttributes(attribute.String("institution_id", institutionID)),
	)
	defer span.End()

	products := newBreakdown()
	err := a.store.View(ctx, func(g *graph.Graph) error {
		if _, ok := g.Node(institutionID); !ok {
			return fmt.Errorf("%w: %s", graph.ErrNodeNotFound, institutionID)
		}
		for _, cl := range graph.CreditsFrom(g, institutionID) {
			product := cl.Credit.Props.String(graph.PropProductType)
			if product == "" {
				product = unspecifiedType
			}
			products.add(product, cl.Credit.Props.Float(graph.PropAmount))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	mix := &ProductMix{
		InstitutionID: institutionID,
		Products:      products.top(0),
		CalculatedAt:  a.now(),
	}
	if len(mix.Products) > 0 {
		mix.DiversificationIndex = products.diversification()
		mix.DominantProduct = mix.Products[0].Key
		mix.DominantShare = mix.Products[0].Percent
	}
	return mix, nil
}

// BorrowerDependency computes the lender HHI of an SME's debt
func (a *Analyzer) BorrowerDependency(ctx context.Context, smeID string) (*BorrowerDependency, error) {
	ctx, span := microrelTracer.Start(ctx, "microrel.BorrowerDependency",
		trace.WithAttributes(attribute.String("sme_id", smeID)),
	)
	defer span.End()

	lenders := newBreakdown()
	err := a.store.View(ctx, func(g *graph.Graph) error {
		if _, ok := g.Node(smeID); !ok {
			return fmt.Errorf("%w: %s", graph.ErrNodeNotFound, smeID)
		}
		for _, cl := range graph.CreditsOf(g, smeID) {
			lenders.add(cl.Lender.ID, cl.Credit.Props.Float(graph.PropAmount))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	hhi := lenders.hhi()
	return &BorrowerDependency{
		SMEID:     smeID,
		TotalDebt: lenders.total,
		Lenders:   lenders.top(0),
		HHI:       hhi,
		Level:     a.Level(hhi),
	}, nil
}

func orUnknown(key string) string {
	if key == "" {
		return unknownKey
	}
	return key
}

// breakdown accumulates exposure per key
type breakdown struct {
	amounts map[string]float64
	total   float64
}

func newBreakdown() *breakdown {
	return &breakdown{amounts: make(map[string]float64)}
}

func (b *breakdown) add(key string, amount float64) {
	if amount <= 0 {
		return
	}
	b.amounts[key] += amount
	b.total += amount
}

func (b *breakdown) fractions() []float64 {
	out := make([]float64, 0, len(b.amounts))
	if b.total == 0 {
		return out
	}
	for _, v := range b.amounts {
		out = append(out, v/b.total)
	}
	return out
}

// hhi is the sum of squared percentage shares, 0-10000
func (b *breakdown) hhi() float64 {
	squares := make([]float64, 0, len(b.amounts))
	for _, s := range b.fractions() {
		squares = append(squares, s*100*s*100)
	}
	return mathx.Round(mathx.Sum(squares...), 2)
}

// diversification is 1 minus the sum of squared fractional shares
func (b *breakdown) diversification() float64 {
	squares := make([]float64, 0, len(b.amounts))
	for _, s := range b.fractions() {
		squares = append(squares, s*s)
	}
	return mathx.Round(1-mathx.Sum(squares...), 4)
}

// top returns the largest shares first; n <= 0 returns all
func (b *breakdown) top(n int) []Share {
	out := make([]Share, 0, len(b.amounts))
	for k, v := range b.amounts {
		out = append(out, Share{Key: k, Amount: v, Percent: mathx.Round(v/b.total*100, 2)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Key < out[j].Key
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
