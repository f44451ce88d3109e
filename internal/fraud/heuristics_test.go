package fraud

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/risk-analytics/internal/domain"
)

// Friday 2024-03-01 12:00 UTC
var weekdayNoon = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

var exampleHistory = []float64{100000, 150000, 120000, 200000, 180000, 90000, 300000}

func newTx(id string, amount float64, at time.Time) *domain.Transaction {
	return &domain.Transaction{
		ID:         id,
		EntityID:   "SME-1",
		EntityType: domain.EntitySME,
		Amount:     amount,
		Timestamp:  at,
	}
}

func burst(n int, amount float64, start time.Time, step time.Duration) []*domain.Transaction {
	out := make([]*domain.Transaction, n)
	for i := range out {
		out[i] = newTx(fmt.Sprintf("H-%d", i), amount, start.Add(-time.Duration(i+1)*step))
	}
	return out
}

func TestSummarize(t *testing.T) {
	s := summarize(exampleHistory)

	assert.InDelta(t, 162857.14, s.Mean, 0.01)
	assert.Equal(t, 150000.0, s.Median)
	assert.Equal(t, 190000.0, s.P75)
	assert.InDelta(t, 270000.0, s.P95, 1e-6)
	assert.InDelta(t, 67340, s.StdDev, 5)
}

func TestAmountAnomaly(t *testing.T) {
	t.Run("large round amount against modest history", func(t *testing.T) {
		r := amountAnomaly(newTx("TX-1", 2000000, weekdayNoon), exampleHistory, 5)

		assert.True(t, r.Anomalous)
		assert.Equal(t, 0.9, r.Score)
		assert.ElementsMatch(t, []string{"extreme_z_score", "far_above_p95", "suspicious_round_amount"}, r.Indicators)
		assert.Equal(t, domain.FraudUnusualTransaction, r.FraudType)
	})

	t.Run("typical amount", func(t *testing.T) {
		r := amountAnomaly(newTx("TX-2", 160000, weekdayNoon), exampleHistory, 5)

		assert.False(t, r.Anomalous)
		assert.Equal(t, 0.0, r.Score)
	})

	t.Run("insufficient history", func(t *testing.T) {
		r := amountAnomaly(newTx("TX-3", 2000000, weekdayNoon), exampleHistory[:4], 5)

		assert.False(t, r.Anomalous)
		assert.Equal(t, 0.1, r.Confidence)
		assert.Contains(t, r.Indicators, "insufficient_history")
	})
}

func TestTemporalAnomaly(t *testing.T) {
	sundayNight := time.Date(2024, 3, 3, 23, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		tx        *domain.Transaction
		recent    []*domain.Transaction
		wantScore float64
		anomalous bool
	}{
		{"weekday business hours", newTx("TX-1", 5000, weekdayNoon), nil, 0, false},
		{"sunday night large amount", newTx("TX-2", 2000000, sundayNight), nil, 0.8, true},
		{"sunday small amount", newTx("TX-3", 500, sundayNight.Add(-10*time.Hour)), nil, 0.2, false},
		{"busy day", newTx("TX-4", 500, weekdayNoon), burst(10, 500, weekdayNoon, time.Hour), 0.4, false},
		{"busy night", newTx("TX-5", 500, weekdayNoon.Add(11*time.Hour)), burst(10, 500, weekdayNoon.Add(11*time.Hour), time.Hour), 0.7, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := temporalAnomaly(tt.tx, newActivity(tt.tx, tt.recent))
			assert.Equal(t, tt.wantScore, r.Score)
			assert.Equal(t, tt.anomalous, r.Anomalous)
		})
	}
}

func TestVelocityAnomaly(t *testing.T) {
	t.Run("hourly burst alone stays below cutoff", func(t *testing.T) {
		tx := newTx("TX-1", 100, weekdayNoon)
		r := velocityAnomaly(tx, newActivity(tx, burst(5, 100, weekdayNoon, time.Minute)))

		assert.Equal(t, 0.5, r.Score)
		assert.False(t, r.Anomalous)
	})

	t.Run("hourly burst with amount spike", func(t *testing.T) {
		tx := newTx("TX-2", 100000, weekdayNoon)
		recent := append(burst(5, 100, weekdayNoon, time.Minute),
			newTx("OLD-1", 1000, weekdayNoon.Add(-72*time.Hour)))
		r := velocityAnomaly(tx, newActivity(tx, recent))

		assert.Equal(t, 0.9, r.Score)
		assert.True(t, r.Anomalous)
		assert.Contains(t, r.Indicators, "daily_amount_spike")
		assert.Equal(t, domain.FraudPayment, r.FraudType)
	})

	t.Run("no prior baseline ignores spike rule", func(t *testing.T) {
		tx := newTx("TX-3", 100000, weekdayNoon)
		r := velocityAnomaly(tx, newActivity(tx, nil))

		assert.Equal(t, 0.0, r.Score)
	})

	t.Run("score capped at one", func(t *testing.T) {
		tx := newTx("TX-4", 100000, weekdayNoon)
		recent := append(burst(25, 100, weekdayNoon, 2*time.Minute),
			newTx("OLD-1", 1000, weekdayNoon.Add(-72*time.Hour)))
		r := velocityAnomaly(tx, newActivity(tx, recent))

		assert.Equal(t, 1.0, r.Score)
	})
}

func TestGeographicAnomaly(t *testing.T) {
	highRisk := map[string]bool{"ituri": true, "nord-kivu": true}
	located := func(province string) *domain.Transaction {
		tx := newTx("TX-1", 1000, weekdayNoon)
		tx.Location = &domain.Location{Country: "CD", Province: province}
		return tx
	}

	t.Run("skipped without location", func(t *testing.T) {
		r := geographicAnomaly(newTx("TX-0", 1000, weekdayNoon), []string{"kinshasa"}, highRisk)
		assert.True(t, r.Skipped)
		assert.False(t, r.Anomalous)
	})

	tests := []struct {
		name      string
		province  string
		locations []string
		wantScore float64
		anomalous bool
	}{
		{"high risk and unfamiliar", "Ituri", []string{"Kinshasa"}, 0.7, true},
		{"high risk but familiar", "Nord Kivu", []string{"nord-kivu"}, 0.3, false},
		{"high risk without history", "Ituri", nil, 0.3, false},
		{"unfamiliar low risk", "Lualaba", []string{"Kinshasa"}, 0.4, false},
		{"home province", "Kinshasa", []string{"KINSHASA"}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := geographicAnomaly(located(tt.province), tt.locations, highRisk)
			assert.Equal(t, tt.wantScore, r.Score)
			assert.Equal(t, tt.anomalous, r.Anomalous)
		})
	}
}

func TestLaunderingPattern(t *testing.T) {
	const threshold = 10000000.0

	t.Run("structuring alone", func(t *testing.T) {
		tx := newTx("TX-1", 9500000, weekdayNoon)
		r := launderingPattern(tx, newActivity(tx, nil), threshold)

		assert.Equal(t, 0.4, r.Score)
		assert.False(t, r.Anomalous)
	})

	t.Run("structuring with smurfing", func(t *testing.T) {
		tx := newTx("TX-2", 9500000, weekdayNoon)
		r := launderingPattern(tx, newActivity(tx, burst(11, 95000, weekdayNoon, time.Hour)), threshold)

		require.True(t, r.Anomalous)
		assert.Equal(t, 0.9, r.Score)
		assert.Contains(t, r.Indicators, "smurfing")
		assert.Equal(t, domain.FraudMoneyLaundering, r.FraudType)
	})

	t.Run("round amounts with smurfing capped", func(t *testing.T) {
		tx := newTx("TX-3", 9900000, weekdayNoon)
		r := launderingPattern(tx, newActivity(tx, burst(12, 200000, weekdayNoon, time.Hour)), threshold)

		assert.Equal(t, 1.0, r.Score)
		assert.ElementsMatch(t, []string{"structuring_below_threshold", "repeated_round_amounts", "smurfing"}, r.Indicators)
	})

	t.Run("at threshold is not structuring", func(t *testing.T) {
		tx := newTx("TX-4", threshold, weekdayNoon)
		r := launderingPattern(tx, newActivity(tx, nil), threshold)

		assert.NotContains(t, r.Indicators, "structuring_below_threshold")
	})
}

func TestRecommendedActions(t *testing.T) {
	critical := recommendedActions(domain.FraudMoneyLaundering, domain.SeverityCritical)
	assert.Equal(t, []string{
		"review_transaction_details",
		"verify_entity_identity",
		"file_suspicious_activity_report",
		"review_counterparty_relationships",
		"escalate_immediately",
	}, critical)

	high := recommendedActions(domain.FraudPayment, domain.SeverityHigh)
	assert.Contains(t, high, "priority_handling")

	medium := recommendedActions(domain.FraudUnusualTransaction, domain.SeverityMedium)
	assert.NotContains(t, medium, "priority_handling")
	assert.NotContains(t, medium, "escalate_immediately")
}
