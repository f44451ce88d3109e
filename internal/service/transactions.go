package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/banking/risk-analytics/internal/domain"
	"github.com/banking/risk-analytics/internal/graph"
	"github.com/banking/risk-analytics/internal/pkg/logger"
	"github.com/banking/risk-analytics/internal/scoring"
)

// TransactionResult is the outcome of processing one transaction
type TransactionResult struct {
	TransactionID string               `json:"transaction_id"`
	Alerts        []*domain.FraudAlert `json:"alerts"`
	Profile       *domain.RiskProfile  `json:"profile"`
}

// AnalyzeTransaction runs fraud detection only. Alerts are persisted by the
// detector; the entity profile is left untouched.
func (s *Service) AnalyzeTransaction(ctx context.Context, tx *domain.Transaction) ([]*domain.FraudAlert, error) {
	return s.detector.Analyze(ctx, tx)
}

// ProcessTransaction runs the full flow for an incoming transaction: fraud
// detection, history and graph bookkeeping, alert publication, then a
// rescore of the entity. Only invalid input and scoring failures are
// returned as errors; bookkeeping and publication are best effort.
func (s *Service) ProcessTransaction(ctx context.Context, tx *domain.Transaction) (*TransactionResult, error) {
	ctx, span := serviceTracer.Start(ctx, "service.ProcessTransaction")
	defer span.End()

	alerts, err := s.detector.Analyze(ctx, tx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("transaction.id", tx.ID),
		attribute.Int("alerts", len(alerts)),
	)
	log := s.log.WithContext(ctx).WithTransaction(tx.ID, tx.EntityID)

	if s.history != nil {
		if err := s.history.Record(ctx, tx); err != nil {
			log.Warn("failed to record transaction history", logger.ErrorField(err))
		}
	}

	if tx.CounterpartyID != "" {
		err := s.graph.RecordTransfer(ctx, tx.EntityID, tx.CounterpartyID, tx.Amount, tx.Timestamp)
		if err != nil && !errors.Is(err, graph.ErrNodeNotFound) {
			log.Warn("failed to record transfer in graph", logger.ErrorField(err))
		}
	}

	s.publish(ctx, alerts)

	profile, err := s.rescore(ctx, tx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return &TransactionResult{
		TransactionID: tx.ID,
		Alerts:        alerts,
		Profile:       profile,
	}, nil
}

func (s *Service) publish(ctx context.Context, alerts []*domain.FraudAlert) {
	if s.publisher == nil {
		return
	}
	for _, alert := range alerts {
		if err := s.publisher.PublishAlert(ctx, alert); err != nil {
			s.log.WithContext(ctx).Warn("failed to publish alert",
				logger.StringField("alert_id", alert.ID.String()),
				logger.ErrorField(err),
			)
		}
	}
}

// rescore recomputes the transacting entity's profile. Missing inputs are
// completed from the transaction location.
func (s *Service) rescore(ctx context.Context, tx *domain.Transaction) (*domain.RiskProfile, error) {
	in, err := s.inputs.Inputs(ctx, tx.EntityID, tx.EntityType)
	if err != nil {
		s.log.WithContext(ctx).Warn("scoring inputs unavailable, scoring from transaction only",
			logger.StringField("entity_id", tx.EntityID),
			logger.ErrorField(err),
		)
		in = scoring.Inputs{}
	}
	if in.Location == nil && tx.Location != nil {
		in.Location = &scoring.LocationData{
			Country:  tx.Location.Country,
			Province: tx.Location.Province,
			City:     tx.Location.City,
		}
	}

	profile, err := s.score(ctx, tx.EntityID, tx.EntityType, in)
	if err != nil {
		return nil, fmt.Errorf("rescore %s: %w", tx.EntityID, err)
	}
	return profile, nil
}
