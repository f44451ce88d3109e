package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/banking/risk-analytics/internal/domain"
	"github.com/banking/risk-analytics/internal/pkg/logger"
)

type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) Get(ctx context.Context, entityType domain.EntityType, entityID string) (*domain.RiskProfile, error) {
	args := m.Called(ctx, entityType, entityID)
	if p, ok := args.Get(0).(*domain.RiskProfile); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProfileStore) Upsert(ctx context.Context, profile *domain.RiskProfile) (*domain.RiskProfile, error) {
	args := m.Called(ctx, profile)
	if fn, ok := args.Get(0).(func(*domain.RiskProfile) *domain.RiskProfile); ok {
		return fn(profile), args.Error(1)
	}
	if p, ok := args.Get(0).(*domain.RiskProfile); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProfileStore) ListByLevel(ctx context.Context, level domain.RiskLevel) ([]*domain.RiskProfile, error) {
	args := m.Called(ctx, level)
	return args.Get(0).([]*domain.RiskProfile), args.Error(1)
}

func (m *MockProfileStore) ListByProvince(ctx context.Context, province string) ([]*domain.RiskProfile, error) {
	args := m.Called(ctx, province)
	return args.Get(0).([]*domain.RiskProfile), args.Error(1)
}

func TestScorer_Score(t *testing.T) {
	tests := []struct {
		name       string
		entityID   string
		entityType domain.EntityType
		setupMock  func(*MockProfileStore)
		wantErr    error
	}{
		{
			name:       "persists calculated profile",
			entityID:   "SME-1",
			entityType: domain.EntitySME,
			setupMock: func(s *MockProfileStore) {
				s.On("Upsert", mock.Anything, mock.MatchedBy(func(p *domain.RiskProfile) bool {
					return p.EntityID == "SME-1" && p.RiskScore == 2.38
				})).Return(func(p *domain.RiskProfile) *domain.RiskProfile {
					return p
				}, nil)
			},
		},
		{
			name:       "store failure propagates",
			entityID:   "SME-1",
			entityType: domain.EntitySME,
			setupMock: func(s *MockProfileStore) {
				s.On("Upsert", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
			},
			wantErr: errors.New("connection refused"),
		},
		{
			name:       "unknown entity type rejected",
			entityID:   "X-1",
			entityType: domain.EntityType("Planet"),
			wantErr:    domain.ErrInvalidInput,
		},
		{
			name:       "missing entity id rejected",
			entityType: domain.EntitySME,
			wantErr:    domain.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockProfileStore)
			if tt.setupMock != nil {
				tt.setupMock(store)
			}
			s := NewScorer(newTestModel(), store, logger.NewNop())

			profile, err := s.Score(context.Background(), tt.entityID, tt.entityType, healthyInputs())

			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, domain.ErrInvalidInput) {
					assert.ErrorIs(t, err, domain.ErrInvalidInput)
					store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
				} else {
					assert.Contains(t, err.Error(), tt.wantErr.Error())
				}
				assert.Nil(t, profile)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, domain.RiskLevelLow, profile.RiskLevel)
			store.AssertExpectations(t)
		})
	}
}

func TestScorer_Score_LogsEntityOnStoreFailure(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	store := &MockProfileStore{}
	store.On("Upsert", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	s := NewScorer(newTestModel(), store, &logger.Logger{Logger: zap.New(core)})
	_, err := s.Score(context.Background(), "SME-9", domain.EntitySME, Inputs{})
	require.Error(t, err)

	entries := logs.FilterMessage("failed to persist risk profile").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "SME", fields["entity_type"])
	assert.Equal(t, "SME-9", fields["entity_id"])
	assert.Equal(t, "connection refused", fields["error"])
}
