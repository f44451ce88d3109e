package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/risk-analytics/internal/domain"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestProfileStore(t *testing.T) {
	ctx := context.Background()
	s := NewProfileStore()

	_, err := s.Get(ctx, domain.EntitySME, "SME-1")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)

	first, err := s.Upsert(ctx, &domain.RiskProfile{
		EntityType: domain.EntitySME,
		EntityID:   "SME-1",
		RiskScore:  6.5,
		RiskLevel:  domain.RiskLevelHigh,
		Province:   "Kinshasa",
		CreatedAt:  testNow,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, first.ID)

	second, err := s.Upsert(ctx, &domain.RiskProfile{
		ID:         uuid.New(),
		EntityType: domain.EntitySME,
		EntityID:   "SME-1",
		RiskScore:  3.1,
		RiskLevel:  domain.RiskLevelLow,
		Province:   "Kinshasa",
		CreatedAt:  testNow.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, testNow, second.CreatedAt)

	got, err := s.Get(ctx, domain.EntitySME, "SME-1")
	require.NoError(t, err)
	assert.Equal(t, 3.1, got.RiskScore)

	_, err = s.Upsert(ctx, &domain.RiskProfile{
		EntityType: domain.EntityInstitution,
		EntityID:   "BANK-1",
		RiskScore:  4.2,
		RiskLevel:  domain.RiskLevelMedium,
		Province:   "Kinshasa",
	})
	require.NoError(t, err)

	low, err := s.ListByLevel(ctx, domain.RiskLevelLow)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "SME-1", low[0].EntityID)

	kin, err := s.ListByProvince(ctx, "Kinshasa")
	require.NoError(t, err)
	require.Len(t, kin, 2)
	assert.Equal(t, "BANK-1", kin[0].EntityID)
	assert.Equal(t, "SME-1", kin[1].EntityID)
}

func newAlert(score float64, detected time.Time) *domain.FraudAlert {
	return domain.NewFraudAlert(domain.NewAlertParams{
		EntityID:           "SME-1",
		EntityType:         domain.EntitySME,
		FraudType:          domain.FraudUnusualTransaction,
		RiskScore:          score,
		Threshold:          0.6,
		Evidence:           domain.Evidence{Indicators: []string{"high_z_score"}},
		RecommendedActions: []string{"review_transaction"},
		DetectedAt:         detected,
	})
}

func TestAlertStore_ListActive(t *testing.T) {
	ctx := context.Background()
	s := NewAlertStore()

	low, _ := s.Save(ctx, newAlert(0.6, testNow))
	high, _ := s.Save(ctx, newAlert(0.95, testNow))
	mid, _ := s.Save(ctx, newAlert(0.7, testNow))
	_, err := s.UpdateStatus(ctx, mid.ID, domain.AlertStatusInvestigating, "analyst-1")
	require.NoError(t, err)

	active, err := s.ListActive(ctx, 10)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, high.ID, active[0].ID)
	assert.Equal(t, low.ID, active[1].ID)

	limited, err := s.ListActive(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestAlertStore_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	s := NewAlertStore().WithClock(func() time.Time { return testNow })
	saved, err := s.Save(ctx, newAlert(0.8, testNow))
	require.NoError(t, err)

	tests := []struct {
		name    string
		id      uuid.UUID
		status  domain.AlertStatus
		wantErr error
	}{
		{"unknown id", uuid.New(), domain.AlertStatusInvestigating, domain.ErrAlertNotFound},
		{"skip investigation", saved.ID, domain.AlertStatusConfirmed, domain.ErrInvalidTransition},
		{"start investigation", saved.ID, domain.AlertStatusInvestigating, nil},
		{"confirm", saved.ID, domain.AlertStatusConfirmed, nil},
		{"reopen resolved", saved.ID, domain.AlertStatusActive, domain.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.UpdateStatus(ctx, tt.id, tt.status, "analyst-1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, "analyst-1", got.ReviewedBy)
			require.NotNil(t, got.ReviewedAt)
			assert.Equal(t, testNow, *got.ReviewedAt)
		})
	}

	stored, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertStatusConfirmed, stored.Status)
	assert.True(t, stored.IsResolved())
}

func TestAlertStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewAlertStore()
	saved, err := s.Save(ctx, newAlert(0.8, testNow))
	require.NoError(t, err)

	saved.Evidence.Indicators[0] = "tampered"
	got, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"high_z_score"}, got.Evidence.Indicators)
}

func tx(id string, amount float64, at time.Time, province string) *domain.Transaction {
	t := &domain.Transaction{
		ID:         id,
		EntityID:   "SME-1",
		EntityType: domain.EntitySME,
		Amount:     amount,
		Timestamp:  at,
	}
	if province != "" {
		t.Location = &domain.Location{Province: province}
	}
	return t
}

func TestHistoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewHistoryStore(3).WithClock(func() time.Time { return testNow })

	records := []*domain.Transaction{
		tx("t1", 100, testNow.Add(-48*time.Hour), "Kinshasa"),
		tx("t3", 300, testNow.Add(-2*time.Hour), "Katanga"),
		tx("t2", 200, testNow.Add(-30*time.Hour), "Kinshasa"),
		tx("t4", 400, testNow.Add(-time.Hour), ""),
		tx("t4", 400, testNow.Add(-time.Hour), ""),
	}
	for _, r := range records {
		require.NoError(t, s.Record(ctx, r))
	}
	assert.ErrorIs(t, s.Record(ctx, &domain.Transaction{ID: "bad"}), domain.ErrInvalidTransaction)

	amounts, err := s.RecentAmounts(ctx, "SME-1")
	require.NoError(t, err)
	assert.Equal(t, []float64{400, 300, 200}, amounts)

	recent, err := s.RecentTransactions(ctx, "SME-1", 24)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "t3", recent[0].ID)
	assert.Equal(t, "t4", recent[1].ID)

	locations, err := s.RecentLocations(ctx, "SME-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Katanga", "Kinshasa"}, locations)

	empty, err := s.RecentAmounts(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
