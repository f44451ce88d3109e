package service

import (
	"context"
	"errors"

	"github.com/banking/risk-analytics/internal/domain"
	"github.com/banking/risk-analytics/internal/graph"
	"github.com/banking/risk-analytics/internal/pkg/logger"
	"github.com/banking/risk-analytics/internal/scoring"
)

// ScoreEntity scores an entity and stores its profile. With nil inputs the
// configured InputsProvider supplies them.
func (s *Service) ScoreEntity(ctx context.Context, entityID string, entityType domain.EntityType, in *scoring.Inputs) (*domain.RiskProfile, error) {
	if in != nil {
		return s.score(ctx, entityID, entityType, *in)
	}
	provided, err := s.inputs.Inputs(ctx, entityID, entityType)
	if err != nil {
		return nil, err
	}
	return s.score(ctx, entityID, entityType, provided)
}

// score writes the profile and pushes the new score onto the entity's graph
// node. The graph write-back is best effort.
func (s *Service) score(ctx context.Context, entityID string, entityType domain.EntityType, in scoring.Inputs) (*domain.RiskProfile, error) {
	profile, err := s.scorer.Score(ctx, entityID, entityType, in)
	if err != nil {
		return nil, err
	}

	if entityType == domain.EntitySME || entityType == domain.EntityInstitution {
		err := s.graph.UpdateEntityRisk(ctx, entityID, profile.RiskScore)
		if err != nil && !errors.Is(err, graph.ErrNodeNotFound) {
			s.log.WithContext(ctx).Warn("failed to update graph risk score",
				logger.StringField("entity_id", entityID),
				logger.ErrorField(err),
			)
		}
	}
	return profile, nil
}

// GetProfile returns domain.ErrProfileNotFound for unscored entities
func (s *Service) GetProfile(ctx context.Context, entityType domain.EntityType, entityID string) (*domain.RiskProfile, error) {
	return s.profiles.Get(ctx, entityType, entityID)
}

// ProfilesByLevel lists stored profiles at a risk level
func (s *Service) ProfilesByLevel(ctx context.Context, level domain.RiskLevel) ([]*domain.RiskProfile, error) {
	return s.profiles.ListByLevel(ctx, level)
}

// ProfilesByProvince lists stored profiles in a province
func (s *Service) ProfilesByProvince(ctx context.Context, province string) ([]*domain.RiskProfile, error) {
	return s.profiles.ListByProvince(ctx, province)
}
