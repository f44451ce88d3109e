package fraud

import (
	"math"
	"sort"
)

// amountStats summarizes an entity's historical transaction amounts
type amountStats struct {
	Mean   float64
	StdDev float64
	Median float64
	P75    float64
	P95    float64
}

func summarize(amounts []float64) amountStats {
	if len(amounts) == 0 {
		return amountStats{}
	}

	sorted := make([]float64, len(amounts))
	copy(sorted, amounts)
	sort.Float64s(sorted)

	var sum float64
	for _, a := range sorted {
		sum += a
	}
	mean := sum / float64(len(sorted))

	var sq float64
	for _, a := range sorted {
		sq += (a - mean) * (a - mean)
	}

	return amountStats{
		Mean:   mean,
		StdDev: math.Sqrt(sq / float64(len(sorted))),
		Median: percentile(sorted, 0.50),
		P75:    percentile(sorted, 0.75),
		P95:    percentile(sorted, 0.95),
	}
}

// percentile uses linear interpolation between closest ranks.
// sorted must be in ascending order.
func percentile(sorted []float64, p float64) float64 {
	switch len(sorted) {
	case 0:
		return 0
	case 1:
		return sorted[0]
	}
	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (rank-float64(lo))*(sorted[hi]-sorted[lo])
}

// isRoundAmount reports whether amount is an exact multiple of unit
func isRoundAmount(amount, unit float64) bool {
	if amount <= 0 || unit <= 0 {
		return false
	}
	return math.Mod(amount, unit) == 0
}
