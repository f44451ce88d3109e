package scoring

import (
	"time"

	"github.com/banking/risk-analytics/internal/pkg/mathx"
	"github.com/banking/risk-analytics/internal/pkg/normalize"
)

// Scores used when a data section is missing. Missing data is treated as
// elevated risk, not as unknown.
const (
	missingAccountingScore = 8.0
	missingBusinessScore   = 7.0
	unknownSectorScore     = 6.0
	unknownProvinceScore   = 6.0
	missingHistoryScore    = 7.0

	baseFactorScore = 5.0
)

// financialScore adjusts a 5.0 base by liquidity, leverage and profitability
func financialScore(a *AccountingData) float64 {
	if a == nil {
		return missingAccountingScore
	}

	adjustments := []float64{baseFactorScore}

	if a.CurrentLiabilities > 0 {
		liquidity := a.CurrentAssets / a.CurrentLiabilities
		switch {
		case liquidity < 0.5:
			adjustments = append(adjustments, 3.0)
		case liquidity < 1.0:
			adjustments = append(adjustments, 2.0)
		case liquidity < 1.5:
			adjustments = append(adjustments, 0.5)
		case liquidity >= 2.0:
			adjustments = append(adjustments, -1.0)
		}
	}

	if a.TotalAssets > 0 {
		debtRatio := a.TotalDebt / a.TotalAssets
		switch {
		case debtRatio > 0.9:
			adjustments = append(adjustments, 3.0)
		case debtRatio > 0.7:
			adjustments = append(adjustments, 2.0)
		case debtRatio > 0.5:
			adjustments = append(adjustments, 1.0)
		case debtRatio < 0.3:
			adjustments = append(adjustments, -1.0)
		}

		roa := a.NetIncome / a.TotalAssets
		switch {
		case roa < -0.1:
			adjustments = append(adjustments, 3.0)
		case roa < 0:
			adjustments = append(adjustments, 2.0)
		case roa < 0.02:
			adjustments = append(adjustments, 1.0)
		case roa > 0.10:
			adjustments = append(adjustments, -1.5)
		case roa > 0.05:
			adjustments = append(adjustments, -1.0)
		}
	}

	if a.Revenue > 0 {
		margin := a.OperatingIncome / a.Revenue
		switch {
		case margin < -0.1:
			adjustments = append(adjustments, 3.0)
		case margin < 0:
			adjustments = append(adjustments, 2.0)
		case margin < 0.05:
			adjustments = append(adjustments, 1.0)
		case margin > 0.20:
			adjustments = append(adjustments, -1.5)
		case margin > 0.10:
			adjustments = append(adjustments, -0.5)
		}
	}

	return mathx.Clamp(mathx.Sum(adjustments...), 0, 10)
}

// operationalScore adjusts a 5.0 base by company age and headcount
func operationalScore(b *BusinessData, now time.Time) float64 {
	if b == nil {
		return missingBusinessScore
	}

	adjustments := []float64{baseFactorScore}

	if !b.FoundedAt.IsZero() {
		years := now.Sub(b.FoundedAt).Hours() / (24 * 365.25)
		switch {
		case years < 1:
			adjustments = append(adjustments, 2.0)
		case years < 3:
			adjustments = append(adjustments, 1.0)
		case years > 10:
			adjustments = append(adjustments, -1.0)
		}
	}

	switch {
	case b.EmployeeCount < 5:
		adjustments = append(adjustments, 1.5)
	case b.EmployeeCount > 50:
		adjustments = append(adjustments, -0.5)
	}

	return mathx.Clamp(mathx.Sum(adjustments...), 0, 10)
}

// behavioralScore rewards punctual repayment and penalizes delays
func behavioralScore(payments []PaymentRecord) float64 {
	if len(payments) == 0 {
		return missingHistoryScore
	}

	onTime := 0
	totalDelay := 0
	for _, p := range payments {
		if p.DaysLate <= 0 {
			onTime++
			continue
		}
		totalDelay += p.DaysLate
	}
	onTimeRate := float64(onTime) / float64(len(payments))
	avgDelay := float64(totalDelay) / float64(len(payments))

	adjustments := []float64{baseFactorScore}
	switch {
	case onTimeRate >= 0.95:
		adjustments = append(adjustments, -3.0)
	case onTimeRate >= 0.85:
		adjustments = append(adjustments, -2.0)
	case onTimeRate >= 0.7:
		adjustments = append(adjustments, -1.0)
	case onTimeRate < 0.5:
		adjustments = append(adjustments, 2.0)
	}

	switch {
	case avgDelay > 60:
		adjustments = append(adjustments, 3.0)
	case avgDelay > 30:
		adjustments = append(adjustments, 2.0)
	case avgDelay > 15:
		adjustments = append(adjustments, 1.0)
	}

	return mathx.Clamp(mathx.Sum(adjustments...), 0, 10)
}

// lookupScore resolves a static risk table entry, falling back when unknown
func lookupScore(table map[string]float64, key string, fallback float64) float64 {
	if key == "" {
		return fallback
	}
	if score, ok := table[key]; ok {
		return score
	}
	return fallback
}

func normalizeTable(table map[string]float64, keyFn func(string) string) map[string]float64 {
	out := make(map[string]float64, len(table))
	for k, v := range table {
		out[keyFn(k)] = v
	}
	return out
}

var (
	sectorKey   = normalize.Sector
	provinceKey = normalize.Province
)
