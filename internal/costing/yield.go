package costing

import (
	"github.com/iwvelando/batch-cost/pkg/mathutil"
)

// Yield holds the unit-level figures derived once sellable units are known.
type Yield struct {
	Mode OutputMode
	// TheoreticalUnits is the unit count before waste.
	TheoreticalUnits float64
	SellableUnits    int
	// DoughWeight and UnitWeight are only set in weight mode.
	DoughWeight float64
	UnitWeight  float64

	Packaging      float64
	TotalBatchCost float64
	UnitCost       float64

	HasTopping             bool
	ToppingCostPerUnit     float64
	CostPerUnitWithTopping float64
}

// PricingCost is the per-unit cost a price has to recover: unit cost plus
// topping when the batch is topped.
func (y Yield) PricingCost() float64 {
	if y.HasTopping {
		return y.CostPerUnitWithTopping
	}
	return y.UnitCost
}

// DoughWeight sums the quantities of lines flagged as contributing to dough
// weight. The batch multiplier scales ingredient cost, not quantity. Unit
// conversion is the caller's responsibility.
func DoughWeight(req *BatchRequest) float64 {
	weight := 0.0
	for _, item := range req.Items {
		if item.CountsTowardDough {
			weight += item.Quantity
		}
	}
	return weight
}

// ComputeYield determines sellable units, folds packaging into the batch
// total and derives the unit cost. Zero sellable units is a
// *ComputationError rather than an infinite unit cost.
func ComputeYield(req *BatchRequest, totals CostTotals) (Yield, error) {
	y := Yield{Mode: resolvedOutputMode(req)}

	switch y.Mode {
	case OutputByWeight:
		y.DoughWeight = DoughWeight(req)
		y.UnitWeight = req.UnitWeight
		y.TheoreticalUnits = y.DoughWeight / req.UnitWeight
	default:
		y.TheoreticalUnits = req.TheoreticalOutput
	}

	y.SellableUnits = mathutil.FloorCount(y.TheoreticalUnits * (1 - req.WasteFraction))
	if y.SellableUnits < 1 {
		return Yield{}, failed(ZeroSellableUnits,
			"%.4g theoretical units with waste %.4g leave no sellable units", y.TheoreticalUnits, req.WasteFraction)
	}

	units := float64(y.SellableUnits)
	y.Packaging = req.PackagingPerUnit * units
	y.TotalBatchCost = totals.BeforePackaging() + y.Packaging
	y.UnitCost = y.TotalBatchCost / units

	if req.HasTopping() {
		y.HasTopping = true
		y.ToppingCostPerUnit = req.ToppingPackPrice / req.ToppingPackWeight * req.ToppingWeightPerUnit
		y.CostPerUnitWithTopping = y.UnitCost + y.ToppingCostPerUnit
	}

	return y, nil
}
