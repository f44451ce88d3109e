package service

import (
	"context"
	"errors"
	"time"

	"github.com/banking/risk-analytics/internal/domain"
	"github.com/banking/risk-analytics/internal/graph"
	"github.com/banking/risk-analytics/internal/scoring"
)

// InputsProvider assembles scoring inputs for an entity
type InputsProvider interface {
	Inputs(ctx context.Context, entityID string, entityType domain.EntityType) (scoring.Inputs, error)
}

// Accounting property keys read from SME nodes
const (
	propCurrentAssets      = "currentAssets"
	propCurrentLiabilities = "currentLiabilities"
	propTotalDebt          = "totalDebt"
	propOperatingIncome    = "operatingIncome"
	propNetIncome          = "netIncome"
)

// GraphInputsProvider derives inputs from the entity's graph node, its
// sector and its location
type GraphInputsProvider struct {
	graph *graph.Analyzer
}

// NewGraphInputsProvider creates a provider over the graph analyzer
func NewGraphInputsProvider(a *graph.Analyzer) *GraphInputsProvider {
	return &GraphInputsProvider{graph: a}
}

// Inputs returns empty inputs for entities absent from the graph
func (p *GraphInputsProvider) Inputs(ctx context.Context, entityID string, _ domain.EntityType) (scoring.Inputs, error) {
	snap, err := p.graph.EntitySnapshot(ctx, entityID)
	if errors.Is(err, graph.ErrNodeNotFound) {
		return scoring.Inputs{}, nil
	}
	if err != nil {
		return scoring.Inputs{}, err
	}
	return inputsFromSnapshot(snap), nil
}

func inputsFromSnapshot(snap *graph.EntitySnapshot) scoring.Inputs {
	var in scoring.Inputs
	props := snap.Props

	if props.Has(graph.PropTotalAssets) && props.Has(propCurrentAssets) && props.Has(propCurrentLiabilities) {
		in.Accounting = &scoring.AccountingData{
			CurrentAssets:      props.Float(propCurrentAssets),
			CurrentLiabilities: props.Float(propCurrentLiabilities),
			TotalAssets:        props.Float(graph.PropTotalAssets),
			TotalDebt:          props.Float(propTotalDebt),
			Revenue:            props.Float(graph.PropRevenue),
			OperatingIncome:    props.Float(propOperatingIncome),
			NetIncome:          props.Float(propNetIncome),
		}
	}

	if snap.Sector != "" || props.Has(graph.PropFoundingYear) || props.Has(graph.PropEmployeeCount) {
		b := &scoring.BusinessData{
			Sector:        snap.Sector,
			EmployeeCount: props.Int(graph.PropEmployeeCount),
		}
		if year := props.Int(graph.PropFoundingYear); year > 0 {
			b.FoundedAt = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		}
		in.Business = b
	}

	if snap.Province != "" {
		in.Location = &scoring.LocationData{
			Country:  snap.Country,
			Province: snap.Province,
			City:     snap.City,
		}
	}
	return in
}
