package costing

import (
	"math"

	"github.com/iwvelando/batch-cost/pkg/mathutil"
)

// Profitability holds the per-unit and per-batch economics at a price.
type Profitability struct {
	Margin             float64
	ContributionMargin float64
	ProfitPerUnit      float64
	ProfitPerBatch     float64
	// UnitsForTargetProfit is 0 without a target and Unreachable when each
	// unit contributes nothing.
	UnitsForTargetProfit int
	// MonthlyBreakEvenUnits is 0 without monthly fixed cost and Unreachable
	// when each unit contributes nothing.
	MonthlyBreakEvenUnits int
}

// VariableCostPerUnit is the part of unit cost that scales with volume:
// ingredients, frying medium usage, energy, packaging and topping.
func VariableCostPerUnit(totals CostTotals, y Yield) float64 {
	units := float64(y.SellableUnits)
	variable := (totals.Ingredient + totals.MediumUsage + totals.Energy + y.Packaging) / units
	return variable + y.ToppingCostPerUnit
}

// BatchFixedCost is the part of batch cost that does not scale with volume:
// labor, overhead and the frying medium change.
func BatchFixedCost(totals CostTotals) float64 {
	return totals.Labor + totals.Overhead + totals.MediumAmortization
}

// ComputeProfitability derives margins, profit and the unit counts needed for
// the request's profit and break-even goals at price.
func ComputeProfitability(req *BatchRequest, totals CostTotals, y Yield, price float64) Profitability {
	p := Profitability{}
	cost := y.PricingCost()
	p.Margin = mathutil.SafeDivide(price-cost, price)
	p.ContributionMargin = price - VariableCostPerUnit(totals, y)
	p.ProfitPerUnit = price - cost
	p.ProfitPerBatch = p.ProfitPerUnit * float64(y.SellableUnits)

	if req.TargetProfitPerBatch > 0 {
		p.UnitsForTargetProfit = unitsToCover(BatchFixedCost(totals)+req.TargetProfitPerBatch, p.ContributionMargin)
	}
	if req.MonthlyFixedCost > 0 {
		p.MonthlyBreakEvenUnits = unitsToCover(req.MonthlyFixedCost, p.ContributionMargin)
	}
	return p
}

func unitsToCover(amount, perUnit float64) int {
	if perUnit <= 0 {
		return Unreachable
	}
	units := math.Ceil(amount/perUnit - 1e-9)
	if units > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(units)
}
