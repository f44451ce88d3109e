// Package memory provides in-process implementations of the profile, alert
// and history stores for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/banking/risk-analytics/internal/domain"
)

// ProfileStore keeps risk profiles in a map keyed by domain.ProfileKey
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]*domain.RiskProfile
}

var _ domain.RiskProfileStore = (*ProfileStore)(nil)

// NewProfileStore creates an empty profile store
func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: make(map[string]*domain.RiskProfile)}
}

// Get returns a copy of the stored profile
func (s *ProfileStore) Get(_ context.Context, entityType domain.EntityType, entityID string) (*domain.RiskProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := domain.ProfileKey(entityType, entityID)
	p, ok := s.profiles[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, key)
	}
	cp := *p
	return &cp, nil
}

// Upsert stores the profile, keeping the id and creation time of an
// existing profile for the same entity
func (s *ProfileStore) Upsert(_ context.Context, profile *domain.RiskProfile) (*domain.RiskProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *profile
	if existing, ok := s.profiles[cp.Key()]; ok {
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
	}
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	s.profiles[cp.Key()] = &cp

	out := cp
	return &out, nil
}

// ListByLevel returns profiles at level, riskiest first
func (s *ProfileStore) ListByLevel(_ context.Context, level domain.RiskLevel) ([]*domain.RiskProfile, error) {
	return s.filter(func(p *domain.RiskProfile) bool { return p.RiskLevel == level }), nil
}

// ListByProvince returns profiles in province, riskiest first
func (s *ProfileStore) ListByProvince(_ context.Context, province string) ([]*domain.RiskProfile, error) {
	return s.filter(func(p *domain.RiskProfile) bool { return p.Province == province }), nil
}

func (s *ProfileStore) filter(keep func(*domain.RiskProfile) bool) []*domain.RiskProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.RiskProfile
	for _, p := range s.profiles {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RiskScore != out[j].RiskScore {
			return out[i].RiskScore > out[j].RiskScore
		}
		return out[i].EntityID < out[j].EntityID
	})
	return out
}
