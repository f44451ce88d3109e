package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetermineSeverity(t *testing.T) {
	tests := []struct {
		score float64
		want  AlertSeverity
	}{
		{0.95, SeverityCritical},
		{0.9, SeverityCritical},
		{0.75, SeverityHigh},
		{0.7, SeverityHigh},
		{0.55, SeverityMedium},
		{0.5, SeverityMedium},
		{0.2, SeverityLow},
		{0, SeverityLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetermineSeverity(tt.score), "score %v", tt.score)
	}
}

func TestNewFraudAlert(t *testing.T) {
	detected := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	alert := NewFraudAlert(NewAlertParams{
		EntityID:   "SME-1",
		EntityType: EntitySME,
		FraudType:  FraudMoneyLaundering,
		RiskScore:  0.92,
		Threshold:  0.7,
		DetectedAt: detected,
	})

	require.NotNil(t, alert)
	assert.Equal(t, SeverityCritical, alert.Severity)
	assert.Equal(t, AlertStatusActive, alert.Status)
	assert.Equal(t, detected, alert.DetectedAt)
	assert.NotEqual(t, alert.ID.String(), "00000000-0000-0000-0000-000000000000")
}

func TestFraudAlert_IsExpired(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		severity AlertSeverity
		status   AlertStatus
		age      time.Duration
		want     bool
	}{
		{"critical within window", SeverityCritical, AlertStatusActive, 23 * time.Hour, false},
		{"critical past window", SeverityCritical, AlertStatusActive, 25 * time.Hour, true},
		{"high within window", SeverityHigh, AlertStatusActive, 48 * time.Hour, false},
		{"high past window", SeverityHigh, AlertStatusActive, 73 * time.Hour, true},
		{"investigating never expires", SeverityCritical, AlertStatusInvestigating, 100 * time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &FraudAlert{Severity: tt.severity, Status: tt.status, CreatedAt: created}
			assert.Equal(t, tt.want, a.IsExpired(created.Add(tt.age)))
			assert.Equal(t, tt.status, a.Status)
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to AlertStatus
		want     bool
	}{
		{AlertStatusActive, AlertStatusInvestigating, true},
		{AlertStatusActive, AlertStatusEscalated, true},
		{AlertStatusActive, AlertStatusConfirmed, false},
		{AlertStatusInvestigating, AlertStatusConfirmed, true},
		{AlertStatusInvestigating, AlertStatusFalsePositive, true},
		{AlertStatusInvestigating, AlertStatusResolved, true},
		{AlertStatusEscalated, AlertStatusResolved, true},
		{AlertStatusResolved, AlertStatusActive, false},
		{AlertStatusConfirmed, AlertStatusInvestigating, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}
