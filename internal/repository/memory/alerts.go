package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banking/risk-analytics/internal/domain"
)

// AlertStore keeps fraud alerts in a map keyed by id
type AlertStore struct {
	mu     sync.RWMutex
	alerts map[uuid.UUID]*domain.FraudAlert
	now    func() time.Time
}

var _ domain.FraudAlertStore = (*AlertStore)(nil)

// NewAlertStore creates an empty alert store
func NewAlertStore() *AlertStore {
	return &AlertStore{alerts: make(map[uuid.UUID]*domain.FraudAlert), now: time.Now}
}

// WithClock sets the clock used for review timestamps
func (s *AlertStore) WithClock(now func() time.Time) *AlertStore {
	s.now = now
	return s
}

// Save stores a copy of alert
func (s *AlertStore) Save(_ context.Context, alert *domain.FraudAlert) (*domain.FraudAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := copyAlert(alert)
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	s.alerts[cp.ID] = cp
	return copyAlert(cp), nil
}

// Get returns the alert or domain.ErrAlertNotFound
func (s *AlertStore) Get(_ context.Context, id uuid.UUID) (*domain.FraudAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.alerts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAlertNotFound, id)
	}
	return copyAlert(a), nil
}

// ListActive returns up to limit active alerts, highest risk first
func (s *AlertStore) ListActive(_ context.Context, limit int) ([]*domain.FraudAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.FraudAlert
	for _, a := range s.alerts {
		if a.Status == domain.AlertStatusActive {
			out = append(out, copyAlert(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RiskScore != out[j].RiskScore {
			return out[i].RiskScore > out[j].RiskScore
		}
		return out[i].DetectedAt.After(out[j].DetectedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateStatus applies a lifecycle transition
func (s *AlertStore) UpdateStatus(_ context.Context, id uuid.UUID, status domain.AlertStatus, actorID string) (*domain.FraudAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.alerts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAlertNotFound, id)
	}
	if !a.CanTransition(status) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, a.Status, status)
	}

	now := s.now().UTC()
	a.Status = status
	a.ReviewedBy = actorID
	a.ReviewedAt = &now
	a.UpdatedAt = now
	return copyAlert(a), nil
}

func copyAlert(a *domain.FraudAlert) *domain.FraudAlert {
	cp := *a
	cp.Evidence.Indicators = append([]string(nil), a.Evidence.Indicators...)
	cp.RecommendedActions = append([]string(nil), a.RecommendedActions...)
	if a.ReviewedAt != nil {
		t := *a.ReviewedAt
		cp.ReviewedAt = &t
	}
	return &cp
}
