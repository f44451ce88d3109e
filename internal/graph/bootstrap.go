package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/banking/risk-analytics/internal/domain"
	"github.com/banking/risk-analytics/internal/pkg/logger"
	"github.com/banking/risk-analytics/internal/pkg/normalize"
)

// GeographyRef is a reference province or city
type GeographyRef struct {
	ID       string  `json:"id" yaml:"id"`
	Name     string  `json:"name" yaml:"name"`
	Country  string  `json:"country" yaml:"country"`
	Province string  `json:"province" yaml:"province"`
	City     string  `json:"city,omitempty" yaml:"city,omitempty"`
	Risk     float64 `json:"risk_score,omitempty" yaml:"risk_score,omitempty"`
}

// SectorRef is a reference economic sector
type SectorRef struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	DefaultRate float64 `json:"default_rate" yaml:"default_rate"`
	Risk        float64 `json:"risk_score,omitempty" yaml:"risk_score,omitempty"`
}

// InstitutionRef is a reference financial institution
type InstitutionRef struct {
	ID           string  `json:"id" yaml:"id"`
	Name         string  `json:"name" yaml:"name"`
	Type         string  `json:"type" yaml:"type"`
	CapitalRatio float64 `json:"capital_ratio" yaml:"capital_ratio"`
	TotalAssets  float64 `json:"total_assets" yaml:"total_assets"`
	RiskScore    float64 `json:"risk_score" yaml:"risk_score"`
	GeographyID  string  `json:"geography_id,omitempty" yaml:"geography_id,omitempty"`
	ReportsTo    string  `json:"reports_to,omitempty" yaml:"reports_to,omitempty"`
}

// ReferenceCatalog is the reference data the ecosystem is seeded from
type ReferenceCatalog struct {
	Geographies  []GeographyRef   `json:"geographies" yaml:"geographies"`
	Sectors      []SectorRef      `json:"sectors" yaml:"sectors"`
	Institutions []InstitutionRef `json:"institutions" yaml:"institutions"`
}

// InitSchema installs the relationship schema. Unlike analyses, schema
// errors are returned to the caller.
func (a *Analyzer) InitSchema(ctx context.Context) error {
	return a.store.Update(ctx, func(g *Graph) error {
		return g.ApplySchema(DefaultSchema())
	})
}

// Bootstrap upserts the reference nodes and their relationships.
// Re-running it with the same catalog is a no-op apart from property merges.
func (a *Analyzer) Bootstrap(ctx context.Context, catalog ReferenceCatalog) error {
	ctx, span := graphTracer.Start(ctx, "graph.Bootstrap")
	defer span.End()
	start := time.Now()

	err := a.store.Update(ctx, func(g *Graph) error {
		for _, geo := range catalog.Geographies {
			province := geo.Province
			if province == "" {
				province = geo.Name
			}
			if _, _, err := g.UpsertNode(LabelGeographic, geo.ID, Properties{
				PropName:      geo.Name,
				PropCountry:   geo.Country,
				PropProvince:  normalize.Province(province),
				PropCity:      geo.City,
				PropRiskScore: geo.Risk,
			}); err != nil {
				return fmt.Errorf("geography %s: %w", geo.ID, err)
			}
		}

		for _, s := range catalog.Sectors {
			if _, _, err := g.UpsertNode(LabelSector, s.ID, Properties{
				PropName:        s.Name,
				PropDefaultRate: s.DefaultRate,
				PropRiskScore:   s.Risk,
			}); err != nil {
				return fmt.Errorf("sector %s: %w", s.ID, err)
			}
		}

		for _, inst := range catalog.Institutions {
			if _, _, err := g.UpsertNode(LabelInstitution, inst.ID, Properties{
				PropName:         inst.Name,
				PropType:         inst.Type,
				PropCapitalRatio: inst.CapitalRatio,
				PropTotalAssets:  inst.TotalAssets,
				PropRiskScore:    inst.RiskScore,
				PropRiskLevel:    string(domain.RiskLevelFromScore(inst.RiskScore)),
			}); err != nil {
				return fmt.Errorf("institution %s: %w", inst.ID, err)
			}
		}

		// Relationships once every endpoint exists
		for _, inst := range catalog.Institutions {
			if inst.GeographyID != "" {
				if err := link(g, inst.ID, inst.GeographyID, RelLocatedIn, nil); err != nil {
					return err
				}
			}
			if inst.ReportsTo != "" {
				if err := link(g, inst.ID, inst.ReportsTo, RelReportsTo, nil); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		a.log.WithContext(ctx).Error("graph bootstrap failed", logger.ErrorField(err))
		return err
	}
	a.done("bootstrap", len(catalog.Geographies)+len(catalog.Sectors)+len(catalog.Institutions), start)
	return nil
}

// link adds an edge unless the same relationship already exists
func link(g *Graph, from, to string, rel RelType, props Properties) error {
	if g.HasEdge(from, to, rel) {
		return nil
	}
	if _, err := g.AddEdge(from, to, rel, props); err != nil {
		return fmt.Errorf("%s -%s-> %s: %w", from, rel, to, err)
	}
	return nil
}

// SMERecord describes an SME registered in the graph
type SMERecord struct {
	ID            string  `json:"id" yaml:"id"`
	Name          string  `json:"name" yaml:"name"`
	Revenue       float64 `json:"revenue" yaml:"revenue"`
	EmployeeCount int     `json:"employee_count" yaml:"employee_count"`
	FoundingYear  int     `json:"founding_year" yaml:"founding_year"`
	RiskScore     float64 `json:"risk_score" yaml:"risk_score"`
	SectorID      string  `json:"sector_id,omitempty" yaml:"sector_id,omitempty"`
	GeographyID   string  `json:"geography_id,omitempty" yaml:"geography_id,omitempty"`
}

// UpsertSME creates or updates an SME with its sector and location
func (a *Analyzer) UpsertSME(ctx context.Context, sme SMERecord) error {
	return a.store.Update(ctx, func(g *Graph) error {
		if _, _, err := g.UpsertNode(LabelSME, sme.ID, Properties{
			PropName:          sme.Name,
			PropRevenue:       sme.Revenue,
			PropEmployeeCount: sme.EmployeeCount,
			PropFoundingYear:  sme.FoundingYear,
			PropRiskScore:     sme.RiskScore,
			PropRiskLevel:     string(domain.RiskLevelFromScore(sme.RiskScore)),
			PropStatus:        "active",
		}); err != nil {
			return err
		}
		if sme.SectorID != "" {
			if err := link(g, sme.ID, sme.SectorID, RelOperatesIn, nil); err != nil {
				return err
			}
		}
		if sme.GeographyID != "" {
			if err := link(g, sme.ID, sme.GeographyID, RelLocatedIn, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreditRecord describes a credit between a lender and a borrower
type CreditRecord struct {
	ID          string    `json:"id" yaml:"id"`
	LenderID    string    `json:"lender_id" yaml:"lender_id"`
	BorrowerID  string    `json:"borrower_id" yaml:"borrower_id"`
	Amount      float64   `json:"amount" yaml:"amount"`
	Rate        float64   `json:"rate,omitempty" yaml:"rate,omitempty"`
	TermMonths  int       `json:"term_months,omitempty" yaml:"term_months,omitempty"`
	ProductType string    `json:"product_type,omitempty" yaml:"product_type,omitempty"`
	RiskGrade   string    `json:"risk_grade,omitempty" yaml:"risk_grade,omitempty"`
	StartDate   time.Time `json:"start_date" yaml:"start_date"`
}

// RecordCredit adds a Credit node linked to its lender and borrower
func (a *Analyzer) RecordCredit(ctx context.Context, c CreditRecord) error {
	return a.store.Update(ctx, func(g *Graph) error {
		return addCredit(g, c)
	})
}

func addCredit(g *Graph, c CreditRecord) error {
	if _, ok := g.Node(c.LenderID); !ok {
		return fmt.Errorf("%w: lender %s", ErrNodeNotFound, c.LenderID)
	}
	if _, ok := g.Node(c.BorrowerID); !ok {
		return fmt.Errorf("%w: borrower %s", ErrNodeNotFound, c.BorrowerID)
	}
	props := Properties{
		PropAmount:    c.Amount,
		PropStartDate: c.StartDate.UTC().Format(time.RFC3339),
		PropStatus:    "active",
	}
	if c.Rate > 0 {
		props[PropRate] = c.Rate
	}
	if c.TermMonths > 0 {
		props[PropTerm] = c.TermMonths
	}
	if c.ProductType != "" {
		props[PropProductType] = c.ProductType
	}
	if c.RiskGrade != "" {
		props[PropRiskGrade] = c.RiskGrade
	}
	if _, _, err := g.UpsertNode(LabelCredit, c.ID, props); err != nil {
		return err
	}
	if err := link(g, c.LenderID, c.ID, RelProvidesCredit, nil); err != nil {
		return err
	}
	return link(g, c.BorrowerID, c.ID, RelHasCredit, nil)
}

// RecordTransfer adds a TRANSFERS_TO relationship between two entities
func (a *Analyzer) RecordTransfer(ctx context.Context, fromID, toID string, amount float64, at time.Time) error {
	return a.store.Update(ctx, func(g *Graph) error {
		_, err := g.AddEdge(fromID, toID, RelTransfersTo, Properties{
			PropAmount:    amount,
			PropTimestamp: at.UTC().Format(time.RFC3339),
		})
		return err
	})
}

// UpdateEntityRisk writes a new score and level onto an entity node
func (a *Analyzer) UpdateEntityRisk(ctx context.Context, id string, score float64) error {
	return a.store.Update(ctx, func(g *Graph) error {
		if _, ok := g.Node(id); !ok {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
		}
		if err := g.SetProperty(id, PropRiskScore, score); err != nil {
			return err
		}
		if err := g.SetProperty(id, PropRiskLevel, string(domain.RiskLevelFromScore(score))); err != nil {
			return err
		}
		return g.SetProperty(id, PropUpdatedAt, a.now().UTC().Format(time.RFC3339))
	})
}

// EntitySnapshot is a copy of an entity node with its resolved context
type EntitySnapshot struct {
	ID       string     `json:"id"`
	Label    Label      `json:"label"`
	Props    Properties `json:"props"`
	Province string     `json:"province,omitempty"`
	Country  string     `json:"country,omitempty"`
	City     string     `json:"city,omitempty"`
	Sector   string     `json:"sector,omitempty"`
	Credits  int        `json:"credits"`
}

// EntitySnapshot returns ErrNodeNotFound for unknown ids
func (a *Analyzer) EntitySnapshot(ctx context.Context, id string) (*EntitySnapshot, error) {
	var snap *EntitySnapshot
	err := a.store.View(ctx, func(g *Graph) error {
		n, ok := g.Node(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
		}
		snap = &EntitySnapshot{
			ID:      n.ID,
			Label:   n.Label,
			Props:   n.Props.clone(),
			Credits: len(g.Out(id, RelHasCredit)),
		}
		if geo := geographyOf(g, id); geo != nil {
			snap.Province = ProvinceOf(g, id)
			snap.Country = geo.Props.String(PropCountry)
			snap.City = geo.Props.String(PropCity)
		}
		if sectorID := SectorOf(g, id); sectorID != "" {
			if s, ok := g.Node(sectorID); ok {
				snap.Sector = s.Name()
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
