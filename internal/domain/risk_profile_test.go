package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskLevelFromScore(t *testing.T) {
	tests := []struct {
		score float64
		want  RiskLevel
	}{
		{0, RiskLevelVeryLow},
		{1.99, RiskLevelVeryLow},
		{2, RiskLevelLow},
		{3.99, RiskLevelLow},
		{4, RiskLevelMedium},
		{5.99, RiskLevelMedium},
		{6, RiskLevelHigh},
		{7.99, RiskLevelHigh},
		{8, RiskLevelVeryHigh},
		{10, RiskLevelVeryHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskLevelFromScore(tt.score), "score %v", tt.score)
	}
}

func TestEntityType_Valid(t *testing.T) {
	assert.True(t, EntitySME.Valid())
	assert.True(t, EntityCustomer.Valid())
	assert.False(t, EntityType("Geographic").Valid())
	assert.False(t, EntityType("").Valid())
}

func TestTransaction_Validate(t *testing.T) {
	valid := func() *Transaction {
		return &Transaction{
			ID:         "TX-1",
			EntityID:   "SME-1",
			EntityType: EntitySME,
			Amount:     1000,
			Timestamp:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(tx *Transaction)
	}{
		{"missing id", func(tx *Transaction) { tx.ID = "" }},
		{"missing entity", func(tx *Transaction) { tx.EntityID = "" }},
		{"unknown entity type", func(tx *Transaction) { tx.EntityType = "Bank" }},
		{"zero amount", func(tx *Transaction) { tx.Amount = 0 }},
		{"negative amount", func(tx *Transaction) { tx.Amount = -5 }},
		{"NaN amount", func(tx *Transaction) { tx.Amount = math.NaN() }},
		{"infinite amount", func(tx *Transaction) { tx.Amount = math.Inf(1) }},
		{"negative infinite amount", func(tx *Transaction) { tx.Amount = math.Inf(-1) }},
		{"missing timestamp", func(tx *Transaction) { tx.Timestamp = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid()
			tt.mutate(tx)
			assert.ErrorIs(t, tx.Validate(), ErrInvalidTransaction)
		})
	}

	var nilTx *Transaction
	assert.ErrorIs(t, nilTx.Validate(), ErrInvalidTransaction)
}
