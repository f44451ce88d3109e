package fraud

import (
	"math"
	"time"

	"github.com/banking/risk-analytics/internal/domain"
	"github.com/banking/risk-analytics/internal/pkg/mathx"
	"github.com/banking/risk-analytics/internal/pkg/normalize"
)

// Heuristic names
const (
	HeuristicAmount     = "amount"
	HeuristicTemporal   = "temporal"
	HeuristicVelocity   = "velocity"
	HeuristicGeographic = "geographic"
	HeuristicLaundering = "laundering"
)

// Anomaly cutoffs per heuristic
const (
	amountCutoff     = 0.6
	temporalCutoff   = 0.5
	velocityCutoff   = 0.6
	geographicCutoff = 0.5
	launderingCutoff = 0.6
)

const (
	roundAmountUnit      = 100000.0
	largeWeekendAmount   = 1000000.0
	insufficientDataConf = 0.1
)

// Result is the outcome of one heuristic on one transaction
type Result struct {
	Heuristic  string
	FraudType  domain.FraudType
	Anomalous  bool
	Skipped    bool
	Score      float64
	Confidence float64
	Indicators []string
	Method     string
}

func newResult(heuristic string, fraudType domain.FraudType, method string) Result {
	return Result{
		Heuristic:  heuristic,
		FraudType:  fraudType,
		Method:     method,
		Indicators: []string{},
	}
}

// finish sums the accumulated parts, caps at 1.0 and applies the cutoff
func (r Result) finish(parts []float64, cutoff float64) Result {
	r.Score = mathx.Round(math.Min(mathx.Sum(parts...), 1.0), 3)
	r.Anomalous = r.Score >= cutoff
	return r
}

// amountAnomaly compares the amount with the entity's historical distribution
func amountAnomaly(tx *domain.Transaction, history []float64, minHistory int) Result {
	r := newResult(HeuristicAmount, domain.FraudUnusualTransaction, "statistical_amount_analysis")
	if len(history) < minHistory {
		r.Confidence = insufficientDataConf
		r.Indicators = append(r.Indicators, "insufficient_history")
		return r
	}

	s := summarize(history)
	var parts []float64

	if s.StdDev > 0 {
		z := math.Abs(tx.Amount-s.Mean) / s.StdDev
		switch {
		case z > 3:
			parts = append(parts, 0.4)
			r.Indicators = append(r.Indicators, "extreme_z_score")
		case z > 2.5:
			parts = append(parts, 0.3)
			r.Indicators = append(r.Indicators, "high_z_score")
		}
	}

	switch {
	case tx.Amount > 2*s.P95:
		parts = append(parts, 0.3)
		r.Indicators = append(r.Indicators, "far_above_p95")
	case tx.Amount > s.P95:
		parts = append(parts, 0.2)
		r.Indicators = append(r.Indicators, "above_p95")
	}

	if isRoundAmount(tx.Amount, roundAmountUnit) && tx.Amount > 3*s.Mean {
		parts = append(parts, 0.2)
		r.Indicators = append(r.Indicators, "suspicious_round_amount")
	}

	r.Confidence = math.Min(0.5+float64(len(history))/50, 0.95)
	return r.finish(parts, amountCutoff)
}

// temporalAnomaly flags off-hours, Sunday and bursty activity
func temporalAnomaly(tx *domain.Transaction, act activity) Result {
	r := newResult(HeuristicTemporal, domain.FraudUnusualTransaction, "temporal_pattern_analysis")
	var parts []float64

	ts := tx.Timestamp
	if hour := ts.Hour(); hour < 6 || hour >= 22 {
		parts = append(parts, 0.3)
		r.Indicators = append(r.Indicators, "off_hours")
	}
	if ts.Weekday() == time.Sunday {
		parts = append(parts, 0.2)
		r.Indicators = append(r.Indicators, "sunday_transaction")
	}
	if isWeekend(ts) && tx.Amount > largeWeekendAmount {
		parts = append(parts, 0.3)
		r.Indicators = append(r.Indicators, "large_weekend_transaction")
	}
	if len(act.window(ts, 24*time.Hour)) > 10 {
		parts = append(parts, 0.4)
		r.Indicators = append(r.Indicators, "high_daily_frequency")
	}

	r.Confidence = 0.7
	return r.finish(parts, temporalCutoff)
}

// velocityAnomaly counts activity in trailing 1h, 24h and 7d windows
func velocityAnomaly(tx *domain.Transaction, act activity) Result {
	r := newResult(HeuristicVelocity, domain.FraudPayment, "velocity_analysis")
	var parts []float64

	ts := tx.Timestamp
	lastHour := act.window(ts, time.Hour)
	lastDay := act.window(ts, 24*time.Hour)
	lastWeek := act.window(ts, 7*24*time.Hour)

	if len(lastHour) > 5 {
		parts = append(parts, 0.5)
		r.Indicators = append(r.Indicators, "hourly_burst")
	}
	if len(lastDay) > 20 {
		parts = append(parts, 0.4)
		r.Indicators = append(r.Indicators, "daily_burst")
	}

	// The 7-day baseline only counts when there is activity before the last 24h
	if len(lastWeek) > len(lastDay) {
		dailyAvg := lastWeek.total() / 7
		if dailyAvg > 0 && lastDay.total() > 5*dailyAvg {
			parts = append(parts, 0.4)
			r.Indicators = append(r.Indicators, "daily_amount_spike")
		}
	}

	r.Confidence = math.Min(0.5+float64(len(lastWeek))/100, 0.9)
	return r.finish(parts, velocityCutoff)
}

// geographicAnomaly flags high-risk provinces and unfamiliar locations
func geographicAnomaly(tx *domain.Transaction, recentLocations []string, highRisk map[string]bool) Result {
	r := newResult(HeuristicGeographic, domain.FraudAccountTakeover, "geographic_analysis")
	province := normalize.Province(tx.Province())
	if province == "" {
		r.Skipped = true
		r.Indicators = append(r.Indicators, "no_location")
		return r
	}

	var parts []float64
	if highRisk[province] {
		parts = append(parts, 0.3)
		r.Indicators = append(r.Indicators, "high_risk_province")
	}

	if len(recentLocations) > 0 {
		known := false
		for _, loc := range recentLocations {
			if normalize.Province(loc) == province {
				known = true
				break
			}
		}
		if !known {
			parts = append(parts, 0.4)
			r.Indicators = append(r.Indicators, "unfamiliar_location")
		}
		r.Confidence = 0.6
	} else {
		r.Confidence = 0.4
	}

	return r.finish(parts, geographicCutoff)
}

// launderingPattern looks for structuring and smurfing around the declaration threshold
func launderingPattern(tx *domain.Transaction, act activity, threshold float64) Result {
	r := newResult(HeuristicLaundering, domain.FraudMoneyLaundering, "laundering_pattern_analysis")
	var parts []float64

	if tx.Amount >= 0.9*threshold && tx.Amount < threshold {
		parts = append(parts, 0.4)
		r.Indicators = append(r.Indicators, "structuring_below_threshold")
	}

	roundCount := act.count(func(t *domain.Transaction) bool {
		return isRoundAmount(t.Amount, roundAmountUnit)
	})
	if roundCount > 3 {
		parts = append(parts, 0.3)
		r.Indicators = append(r.Indicators, "repeated_round_amounts")
	}

	smallCount := act.count(func(t *domain.Transaction) bool {
		return t.Amount < 0.1*threshold
	})
	if smallCount > 10 {
		parts = append(parts, 0.5)
		r.Indicators = append(r.Indicators, "smurfing")
	}

	r.Confidence = 0.75
	return r.finish(parts, launderingCutoff)
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
