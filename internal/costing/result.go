package costing

import "encoding/json"

// Breakdown keys. The set is fixed; every key is present in every result.
const (
	KeyIngredient         = "ingredient"
	KeyMediumUsage        = "medium_usage"
	KeyMediumAmortization = "medium_amortization"
	KeyEnergy             = "energy"
	KeyLabor              = "labor"
	KeyOverhead           = "overhead"
	KeyPackaging          = "packaging"
	KeyTotalBatchCost     = "total_batch_cost"
	KeyUnitCost           = "unit_cost"
	KeyToppingPerUnit     = "topping_per_unit"
	KeyCostWithTopping    = "cost_with_topping"
	KeySuggestedPrice     = "suggested_price"
	KeyPriceWithTax       = "price_with_tax"
	KeyMinimumSafePrice   = "minimum_safe_price"
	KeyContributionMargin = "contribution_margin"
	KeyRiskBufferPercent  = "risk_buffer_percent"
)

// BreakdownKeys lists the breakdown keys in reporting order.
var BreakdownKeys = []string{
	KeyIngredient,
	KeyMediumUsage,
	KeyMediumAmortization,
	KeyEnergy,
	KeyLabor,
	KeyOverhead,
	KeyPackaging,
	KeyTotalBatchCost,
	KeyUnitCost,
	KeyToppingPerUnit,
	KeyCostWithTopping,
	KeySuggestedPrice,
	KeyPriceWithTax,
	KeyMinimumSafePrice,
	KeyContributionMargin,
	KeyRiskBufferPercent,
}

// Unreachable marks a unit count that no volume can achieve because each
// unit does not contribute positively.
const Unreachable = -1

// BatchCostResult is the immutable outcome of one calculation. Warnings and
// Breakdown are only reachable through accessors that return copies.
type BatchCostResult struct {
	Name string `json:"name,omitempty"`

	IngredientCost         float64 `json:"ingredientCost"`
	MediumUsageCost        float64 `json:"mediumUsageCost"`
	MediumAmortizationCost float64 `json:"mediumAmortizationCost"`
	EnergyCost             float64 `json:"energyCost"`
	LaborCost              float64 `json:"laborCost"`
	OverheadCost           float64 `json:"overheadCost"`
	PackagingCost          float64 `json:"packagingCost"`
	TotalBatchCost         float64 `json:"totalBatchCost"`
	UnitCost               float64 `json:"unitCost"`

	OutputMode       OutputMode `json:"outputMode"`
	TheoreticalUnits float64    `json:"theoreticalUnits"`
	SellableUnits    int        `json:"sellableUnits"`
	DoughWeight      float64    `json:"doughWeight,omitempty"`
	UnitWeight       float64    `json:"unitWeight,omitempty"`

	ToppingCostPerUnit     float64 `json:"toppingCostPerUnit,omitempty"`
	CostPerUnitWithTopping float64 `json:"costPerUnitWithTopping,omitempty"`

	Strategy       string  `json:"strategy"`
	BasePrice      float64 `json:"basePrice"`
	RoundingRule   string  `json:"roundingRule,omitempty"`
	RoundingMode   string  `json:"roundingMode"`
	SuggestedPrice float64 `json:"suggestedPrice"`
	PriceWithTax   float64 `json:"priceWithTax"`

	Margin                float64 `json:"margin"`
	ContributionMargin    float64 `json:"contributionMargin"`
	ProfitPerUnit         float64 `json:"profitPerUnit"`
	ProfitPerBatch        float64 `json:"profitPerBatch"`
	UnitsForTargetProfit  int     `json:"unitsForTargetProfit"`
	MonthlyBreakEvenUnits int     `json:"monthlyBreakEvenUnits"`

	CostVolatilityScore  float64 `json:"costVolatilityScore"`
	PricingConfidence    float64 `json:"pricingConfidence"`
	RiskBufferPercent    float64 `json:"riskBufferPercent"`
	MinimumSafePrice     float64 `json:"minimumSafePrice"`
	RecommendedPriceLow  float64 `json:"recommendedPriceLow"`
	RecommendedPriceHigh float64 `json:"recommendedPriceHigh"`
	RecommendationNote   string  `json:"recommendationNote"`

	warnings  []string
	breakdown map[string]float64
}

// Warnings returns a copy of the informational warnings.
func (r BatchCostResult) Warnings() []string {
	if len(r.warnings) == 0 {
		return nil
	}
	return append([]string(nil), r.warnings...)
}

// Breakdown returns a copy of the named cost breakdown.
func (r BatchCostResult) Breakdown() map[string]float64 {
	out := make(map[string]float64, len(r.breakdown))
	for k, v := range r.breakdown {
		out[k] = v
	}
	return out
}

// BreakdownValue returns a single breakdown entry.
func (r BatchCostResult) BreakdownValue(key string) (float64, bool) {
	v, ok := r.breakdown[key]
	return v, ok
}

// MarshalJSON includes warnings and breakdown alongside the exported fields.
func (r BatchCostResult) MarshalJSON() ([]byte, error) {
	type plain BatchCostResult
	warnings := r.warnings
	if warnings == nil {
		warnings = []string{}
	}
	return json.Marshal(struct {
		plain
		Warnings  []string           `json:"warnings"`
		Breakdown map[string]float64 `json:"breakdown"`
	}{plain(r), warnings, r.breakdown})
}

// costShares returns each batch cost category's share of the total.
func costShares(totals CostTotals, y Yield) map[string]float64 {
	shares := make(map[string]float64, 7)
	if y.TotalBatchCost <= 0 {
		return shares
	}
	shares[KeyIngredient] = totals.Ingredient / y.TotalBatchCost
	shares[KeyMediumUsage] = totals.MediumUsage / y.TotalBatchCost
	shares[KeyMediumAmortization] = totals.MediumAmortization / y.TotalBatchCost
	shares[KeyEnergy] = totals.Energy / y.TotalBatchCost
	shares[KeyLabor] = totals.Labor / y.TotalBatchCost
	shares[KeyOverhead] = totals.Overhead / y.TotalBatchCost
	shares[KeyPackaging] = y.Packaging / y.TotalBatchCost
	return shares
}
