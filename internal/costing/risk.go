package costing

import (
	"fmt"
	"math"

	"github.com/iwvelando/batch-cost/pkg/mathutil"
)

// RiskInputs are the figures the risk model looks at.
type RiskInputs struct {
	UnitCost       float64
	SuggestedPrice float64
	Volatility     float64
	RiskAppetite   float64
	MarketPressure float64
	// CostShares is each cost category's share of total batch cost.
	CostShares map[string]float64

	SellableUnits         int
	Margin                float64
	TargetProfitPerBatch  float64
	UnitsForTargetProfit  int
	MonthlyFixedCost      float64
	MonthlyBreakEvenUnits int
}

// RiskAssessment is the risk-adjusted view of a suggested price.
type RiskAssessment struct {
	Buffer              float64
	MinimumSafePrice    float64
	RecommendedLow      float64
	RecommendedHigh     float64
	Confidence          float64
	CostVolatilityScore float64
	Warnings            []string
	Note                string
}

// RiskBuffer is volatility scaled down by risk appetite, shifted by market
// pressure and clamped to [0, ceiling]. Higher appetite always shrinks it.
func RiskBuffer(volatility, appetite, pressure, ceiling float64) float64 {
	return mathutil.Clamp(volatility*(1-appetite)-pressure, 0, ceiling)
}

// PricingConfidence falls from 1 as volatility and |market pressure| rise.
func PricingConfidence(volatility, pressure, volatilityWeight, pressureWeight float64) float64 {
	return mathutil.Clamp(1-volatilityWeight*volatility-pressureWeight*math.Abs(pressure), 0, 1)
}

// CostVolatilityScore scales input volatility by how concentrated the cost
// structure is: a batch dominated by one category is more exposed to that
// category's price swings.
func CostVolatilityScore(volatility float64, shares map[string]float64) float64 {
	largest := 0.0
	for _, share := range shares {
		largest = math.Max(largest, share)
	}
	return mathutil.Clamp(volatility*(1+largest), 0, 1)
}

// AssessRisk derives the risk buffer, minimum safe price, recommended band,
// scores, warnings and a short recommendation note.
func AssessRisk(in RiskInputs, cfg EngineConfig) RiskAssessment {
	a := RiskAssessment{
		Buffer: RiskBuffer(in.Volatility, in.RiskAppetite, in.MarketPressure, cfg.RiskBufferCeiling),
	}
	a.MinimumSafePrice = in.UnitCost * (1 + a.Buffer)
	a.RecommendedLow = math.Max(in.SuggestedPrice, a.MinimumSafePrice)
	a.RecommendedHigh = a.RecommendedLow * (1 + in.Volatility)
	a.Confidence = PricingConfidence(in.Volatility, in.MarketPressure, cfg.ConfidenceVolatilityWeight, cfg.ConfidencePressureWeight)
	a.CostVolatilityScore = CostVolatilityScore(in.Volatility, in.CostShares)

	belowSafe := in.SuggestedPrice < a.MinimumSafePrice && !mathutil.WithinTolerance(in.SuggestedPrice, a.MinimumSafePrice, 1e-9)

	if in.Margin < 0 {
		a.Warnings = append(a.Warnings, fmt.Sprintf("negative margin %.1f%% at suggested price %.2f", in.Margin*100, in.SuggestedPrice))
	}
	if belowSafe {
		a.Warnings = append(a.Warnings, fmt.Sprintf("suggested price %.2f is below minimum safe price %.2f (risk buffer %.1f%%)",
			in.SuggestedPrice, a.MinimumSafePrice, a.Buffer*100))
	}
	if in.TargetProfitPerBatch > 0 {
		switch {
		case in.UnitsForTargetProfit < 0:
			a.Warnings = append(a.Warnings, fmt.Sprintf("target profit %.2f per batch is unreachable: each unit loses money", in.TargetProfitPerBatch))
		case in.UnitsForTargetProfit > in.SellableUnits:
			a.Warnings = append(a.Warnings, fmt.Sprintf("target profit %.2f per batch needs %d units but the batch yields %d",
				in.TargetProfitPerBatch, in.UnitsForTargetProfit, in.SellableUnits))
		}
	}
	if in.MonthlyFixedCost > 0 {
		limit := cfg.BreakEvenBatchMultiple * float64(in.SellableUnits)
		switch {
		case in.MonthlyBreakEvenUnits < 0:
			a.Warnings = append(a.Warnings, fmt.Sprintf("monthly fixed cost %.2f can never be covered: contribution margin is not positive", in.MonthlyFixedCost))
		case float64(in.MonthlyBreakEvenUnits) > limit:
			a.Warnings = append(a.Warnings, fmt.Sprintf("monthly break-even needs %d units, more than %.0f batches of %d",
				in.MonthlyBreakEvenUnits, cfg.BreakEvenBatchMultiple, in.SellableUnits))
		}
	}

	switch {
	case belowSafe:
		a.Note = fmt.Sprintf("Raise the price to at least %.2f to cover a %.1f%% risk buffer; recommended range %.2f-%.2f.",
			a.MinimumSafePrice, a.Buffer*100, a.RecommendedLow, a.RecommendedHigh)
	case a.Confidence < cfg.LowConfidenceThreshold:
		a.Note = fmt.Sprintf("Price covers cost and risk buffer, but confidence is low (%.0f%%); review within %.2f-%.2f.",
			a.Confidence*100, a.RecommendedLow, a.RecommendedHigh)
	default:
		a.Note = fmt.Sprintf("Price covers cost and a %.1f%% risk buffer; recommended range %.2f-%.2f.",
			a.Buffer*100, a.RecommendedLow, a.RecommendedHigh)
	}
	if len(a.Warnings) > 0 && !belowSafe {
		a.Note += fmt.Sprintf(" %d warning(s) need attention.", len(a.Warnings))
	}

	return a
}
