package costing

// LineCost is the resolved cost of one recipe item.
type LineCost struct {
	Name string
	Mode CostMode
	Cost float64
}

// CostTotals holds the per-batch cost categories known before the number of
// sellable units is. Packaging is per unit and is added by ComputeYield.
type CostTotals struct {
	Lines              []LineCost
	Ingredient         float64
	MediumUsage        float64
	MediumAmortization float64
	Energy             float64
	Labor              float64
	Overhead           float64
}

// BeforePackaging is the sum of every category in t.
func (t CostTotals) BeforePackaging() float64 {
	return t.Ingredient + t.MediumUsage + t.MediumAmortization + t.Energy + t.Labor + t.Overhead
}

// ResolveLineCost prices one item line. Manual and unit-price costs scale
// with the batch multiplier; pack-based costs already describe the purchase
// for this batch and do not.
func ResolveLineCost(item RecipeItemLine, multiplier float64) LineCost {
	line := LineCost{Name: item.Name, Mode: item.Mode()}
	switch line.Mode {
	case CostModeManual:
		line.Cost = *item.ManualCost * multiplier
	case CostModePack:
		line.Cost = *item.PackPrice / *item.PackNetQuantity * item.Quantity
	case CostModeUnit:
		line.Cost = *item.UnitPrice * item.Quantity * multiplier
	}
	return line
}

// AggregateCosts sums every cost category of a validated request.
func AggregateCosts(req *BatchRequest) CostTotals {
	totals := CostTotals{Lines: make([]LineCost, 0, len(req.Items))}

	for _, item := range req.Items {
		line := ResolveLineCost(item, req.BatchMultiplier)
		totals.Lines = append(totals.Lines, line)
		totals.Ingredient += line.Cost
	}

	totals.MediumUsage = req.MediumUsage * req.MediumPrice
	totals.MediumAmortization = req.MediumReplacementCost / float64(req.BatchesPerMediumChange)
	totals.Energy = req.EnergyUsage * req.EnergyRate
	for _, role := range req.Labor {
		totals.Labor += role.Cost()
	}
	totals.Overhead = req.Overhead

	return totals
}
