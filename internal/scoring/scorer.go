package scoring

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/banking/risk-analytics/internal/domain"
	"github.com/banking/risk-analytics/internal/pkg/logger"
)

var scoringTracer = otel.Tracer("risk-engine.scoring")

// Scorer computes a profile and writes it through the profile store
type Scorer struct {
	model *Model
	store domain.RiskProfileStore
	log   *logger.Logger
}

// NewScorer creates a new scorer
func NewScorer(model *Model, store domain.RiskProfileStore, log *logger.Logger) *Scorer {
	return &Scorer{
		model: model,
		store: store,
		log:   log.Named("risk_scorer"),
	}
}

// Model returns the underlying scoring model
func (s *Scorer) Model() *Model {
	return s.model
}

// Score calculates the entity profile and upserts it.
// Concurrent calls for the same entity are last-write-wins.
func (s *Scorer) Score(ctx context.Context, entityID string, entityType domain.EntityType, in Inputs) (*domain.RiskProfile, error) {
	ctx, span := scoringTracer.Start(ctx, "scoring.Score")
	defer span.End()
	span.SetAttributes(
		attribute.String("entity.id", entityID),
		attribute.String("entity.type", string(entityType)),
	)

	if entityID == "" || !entityType.Valid() {
		return nil, fmt.Errorf("%w: entity id and a known entity type are required", domain.ErrInvalidInput)
	}

	profile := s.model.Calculate(entityID, entityType, in)

	saved, err := s.store.Upsert(ctx, profile)
	if err != nil {
		span.RecordError(err)
		scoringErrors.Inc()
		s.log.WithContext(ctx).WithEntity(string(entityType), entityID).
			Error("failed to persist risk profile", logger.ErrorField(err))
		return nil, fmt.Errorf("upsert risk profile %s: %w", profile.Key(), err)
	}

	profilesScored.WithLabelValues(string(entityType), string(saved.RiskLevel)).Inc()
	riskScoreHistogram.WithLabelValues(string(entityType)).Observe(saved.RiskScore)

	s.log.WithContext(ctx).ProfileScored(
		string(entityType),
		entityID,
		saved.RiskScore,
		string(saved.RiskLevel),
		saved.Calculation.Confidence,
	)

	return saved, nil
}
