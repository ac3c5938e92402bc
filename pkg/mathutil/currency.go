// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/batch-cost/pkg/constants"
)

// Round rounds a value to two decimals, i.e. to represent real currency.
// Used for making logical comparisons.
func Round(val float64) float64 {
	return math.Round(val*constants.DecimalPrecision) / constants.DecimalPrecision
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// IsFinite reports whether val is neither NaN nor infinite.
func IsFinite(val float64) bool {
	return !math.IsNaN(val) && !math.IsInf(val, 0)
}

// Clamp limits val to the closed range [lo, hi].
func Clamp(val, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, val))
}

// SafeDivide returns numerator/denominator, or 0 when the denominator is zero.
func SafeDivide(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// FloorCount floors a non-negative unit count, tolerating float noise just
// below an integer. Counts beyond math.MaxInt32 are capped there.
func FloorCount(val float64) int {
	if val <= 0 || math.IsNaN(val) {
		return 0
	}
	if val >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Floor(val + constants.FloorEpsilon))
}
