// Package mathx holds numeric helpers shared by the scoring and analysis packages.
package mathx

import "github.com/shopspring/decimal"

// Round rounds x half away from zero to the given number of decimal places.
// Decimal arithmetic avoids float artifacts such as 0.9000000000000001.
func Round(x float64, places int32) float64 {
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}

// Clamp bounds x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Sum adds values using decimal arithmetic.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.InexactFloat64()
}
