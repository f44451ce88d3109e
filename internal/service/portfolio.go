package service

import (
	"context"

	"github.com/banking/risk-analytics/internal/microrel"
)

// PortfolioConcentration returns the HHI breakdown of an institution
func (s *Service) PortfolioConcentration(ctx context.Context, institutionID string) (*microrel.PortfolioConcentration, error) {
	return s.portfolio.PortfolioConcentration(ctx, institutionID)
}

// AllPortfolioConcentrations ranks every institution by concentration
func (s *Service) AllPortfolioConcentrations(ctx context.Context) []*microrel.PortfolioConcentration {
	return s.portfolio.AllPortfolioConcentrations(ctx)
}

// ProductMix returns the product diversification of an institution
func (s *Service) ProductMix(ctx context.Context, institutionID string) (*microrel.ProductMix, error) {
	return s.portfolio.ProductMix(ctx, institutionID)
}

// BorrowerDependency returns how concentrated an SME's lenders are
func (s *Service) BorrowerDependency(ctx context.Context, smeID string) (*microrel.BorrowerDependency, error) {
	return s.portfolio.BorrowerDependency(ctx, smeID)
}
