package domain

import (
	"context"

	"github.com/google/uuid"
)

// RiskProfileStore persists risk profiles keyed by (entity type, entity id)
type RiskProfileStore interface {
	// Get returns ErrProfileNotFound when no profile exists
	Get(ctx context.Context, entityType EntityType, entityID string) (*RiskProfile, error)
	Upsert(ctx context.Context, profile *RiskProfile) (*RiskProfile, error)
	ListByLevel(ctx context.Context, level RiskLevel) ([]*RiskProfile, error)
	ListByProvince(ctx context.Context, province string) ([]*RiskProfile, error)
}

// FraudAlertStore persists fraud alerts
type FraudAlertStore interface {
	Save(ctx context.Context, alert *FraudAlert) (*FraudAlert, error)
	// Get returns ErrAlertNotFound when the id is unknown
	Get(ctx context.Context, id uuid.UUID) (*FraudAlert, error)
	ListActive(ctx context.Context, limit int) ([]*FraudAlert, error)
	// UpdateStatus returns ErrAlertNotFound when the id is unknown
	UpdateStatus(ctx context.Context, id uuid.UUID, status AlertStatus, actorID string) (*FraudAlert, error)
}
