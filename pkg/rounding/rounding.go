// Package rounding snaps prices to display intervals and applies charm
// pricing and tax.
//
// Interval rules are decimal literals such as "0.05" or "100". A rule that is
// empty, malformed or non-positive leaves the price unchanged: a bad display
// preference must never block a cost calculation.
package rounding

import (
	"math"
	"strings"

	"github.com/iwvelando/batch-cost/pkg/constants"
	"github.com/shopspring/decimal"
)

// Mode selects how a price is snapped to its interval.
type Mode string

const (
	// ModeNearest rounds half to even.
	ModeNearest Mode = "nearest"
	// ModeUp always rounds up to the next interval (conservative pricing).
	ModeUp Mode = "up"
	// ModeDown always rounds down to the previous interval (aggressive pricing).
	ModeDown Mode = "down"
	// ModeCharm replaces the fractional part with a psychological suffix.
	ModeCharm Mode = "charm"
)

// ParseMode maps a case-insensitive mode name to a Mode. Unknown or empty
// names resolve to ModeNearest.
func ParseMode(name string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(name))) {
	case ModeUp, "ceil", "ceiling":
		return ModeUp
	case ModeDown, "floor":
		return ModeDown
	case ModeCharm:
		return ModeCharm
	default:
		return ModeNearest
	}
}

// ParseInterval parses a rounding rule. ok is false when the rule cannot be
// used for rounding.
func ParseInterval(rule string) (interval decimal.Decimal, ok bool) {
	trimmed := strings.TrimSpace(rule)
	if trimmed == "" {
		return decimal.Zero, false
	}
	interval, err := decimal.NewFromString(trimmed)
	if err != nil || !interval.IsPositive() {
		return decimal.Zero, false
	}
	return interval, true
}

// RoundToInterval rounds price to the nearest multiple of the rule's
// interval, ties to even.
func RoundToInterval(price float64, rule string) float64 {
	return snap(price, rule, decimal.Decimal.RoundBank)
}

// CeilToInterval rounds price up to a multiple of the rule's interval.
func CeilToInterval(price float64, rule string) float64 {
	return snap(price, rule, func(d decimal.Decimal, _ int32) decimal.Decimal { return d.Ceil() })
}

// FloorToInterval rounds price down to a multiple of the rule's interval.
func FloorToInterval(price float64, rule string) float64 {
	return snap(price, rule, func(d decimal.Decimal, _ int32) decimal.Decimal { return d.Floor() })
}

func snap(price float64, rule string, fn func(decimal.Decimal, int32) decimal.Decimal) float64 {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return price
	}
	interval, ok := ParseInterval(rule)
	if !ok {
		return price
	}
	steps := fn(decimal.NewFromFloat(price).Div(interval), 0)
	return steps.Mul(interval).InexactFloat64()
}

// Apply rounds price according to mode. Charm mode ignores the interval and
// uses charmSuffix; a suffix outside [0, 1) falls back to the default.
func Apply(price float64, rule string, mode Mode, charmSuffix float64) float64 {
	switch mode {
	case ModeUp:
		return CeilToInterval(price, rule)
	case ModeDown:
		return FloorToInterval(price, rule)
	case ModeCharm:
		return Charm(price, charmSuffix)
	default:
		return RoundToInterval(price, rule)
	}
}

// Charm replaces the fractional part of price with suffix (e.g. 12.40 with
// 0.99 becomes 11.99, 12.60 becomes 12.99).
//
// The result never lands more than CharmFallbackThreshold below price: when
// the charm point under the integer part is too far down the next one up is
// used, and when the charm point above price overshoots, the one a unit lower
// is preferred only if it stays within the threshold and is not negative.
func Charm(price, suffix float64) float64 {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return price
	}
	if suffix < 0 || suffix >= 1 || math.IsNaN(suffix) {
		suffix = constants.DefaultCharmSuffix
	}

	p := decimal.NewFromFloat(price)
	threshold := decimal.NewFromFloat(constants.CharmFallbackThreshold)
	candidate := p.Floor().Add(decimal.NewFromFloat(suffix))

	switch {
	case candidate.GreaterThan(p):
		lower := candidate.Sub(decimal.NewFromInt(1))
		if !lower.IsNegative() && p.Sub(lower).LessThanOrEqual(threshold) {
			candidate = lower
		}
	case p.Sub(candidate).GreaterThan(threshold):
		candidate = candidate.Add(decimal.NewFromInt(1))
	}

	if candidate.IsNegative() {
		return price
	}
	return candidate.InexactFloat64()
}

// TaxInclusive returns price grossed up by the VAT fraction.
func TaxInclusive(price, vat float64) float64 {
	return price * (1 + vat)
}
