package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/banking/risk-analytics/internal/domain"
)

// GetAlert returns domain.ErrAlertNotFound for unknown ids
func (s *Service) GetAlert(ctx context.Context, id uuid.UUID) (*domain.FraudAlert, error) {
	return s.alerts.Get(ctx, id)
}

// ListActiveAlerts returns active alert summaries with the expiry flag set.
// Expired alerts stay active until an operator moves them.
func (s *Service) ListActiveAlerts(ctx context.Context, limit int) ([]*domain.AlertSummary, error) {
	alerts, err := s.alerts.ListActive(ctx, limit)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]*domain.AlertSummary, len(alerts))
	for i, a := range alerts {
		out[i] = a.ToSummary(now)
	}
	return out, nil
}

// UpdateAlertStatus applies an operator transition. Transitions outside the
// alert lifecycle return domain.ErrInvalidTransition.
func (s *Service) UpdateAlertStatus(ctx context.Context, id uuid.UUID, status domain.AlertStatus, actorID string) (*domain.FraudAlert, error) {
	current, err := s.alerts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.CanTransition(status) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current.Status, status)
	}
	return s.alerts.UpdateStatus(ctx, id, status, actorID)
}
