// Package costing computes the full production cost of a batch and turns it
// into a priced, rounded and risk-scored recommendation.
//
// The pipeline is pure and synchronous: Validate, AggregateCosts,
// ComputeYield, a PricingStrategy, rounding, AssessRisk and assembly. Engine
// wires the stages together; each stage is also usable on its own.
package costing

// OutputMode selects how the number of sellable units is determined.
type OutputMode string

const (
	// OutputExplicit uses the batch's theoretical unit count.
	OutputExplicit OutputMode = "explicit"
	// OutputByWeight divides total dough weight by the weight of one unit.
	OutputByWeight OutputMode = "weight"
)

// RecipeItemLine is one ingredient used in a batch.
//
// Cost resolves from the first mode that is set, in priority order:
// ManualCost, then pack pricing (PackPrice / PackNetQuantity * Quantity),
// then UnitPrice * Quantity.
type RecipeItemLine struct {
	Name            string   `json:"name,omitempty" yaml:"name,omitempty"`
	Quantity        float64  `json:"quantity" yaml:"quantity"`
	Unit            string   `json:"unit,omitempty" yaml:"unit,omitempty"`
	ManualCost      *float64 `json:"manualCost,omitempty" yaml:"manualCost,omitempty"`
	PackPrice       *float64 `json:"packPrice,omitempty" yaml:"packPrice,omitempty"`
	PackNetQuantity *float64 `json:"packNetQuantity,omitempty" yaml:"packNetQuantity,omitempty"`
	UnitPrice       *float64 `json:"unitPrice,omitempty" yaml:"unitPrice,omitempty"`
	// CountsTowardDough marks lines summed into total dough weight.
	CountsTowardDough bool `json:"countsTowardDough,omitempty" yaml:"countsTowardDough,omitempty"`
}

// CostMode identifies which pricing input a RecipeItemLine resolves from.
type CostMode int

const (
	// CostModeNone means the line has no cost input.
	CostModeNone CostMode = iota
	// CostModeManual is a fixed cost override for the whole line.
	CostModeManual
	// CostModePack prices the line from a purchased pack.
	CostModePack
	// CostModeUnit prices the line from a price per unit.
	CostModeUnit
)

func (m CostMode) String() string {
	switch m {
	case CostModeManual:
		return "manual"
	case CostModePack:
		return "pack"
	case CostModeUnit:
		return "unit"
	default:
		return "none"
	}
}

// Mode reports the highest-priority cost input set on the line. Pack pricing
// only counts when both pack fields are present.
func (l RecipeItemLine) Mode() CostMode {
	switch {
	case l.ManualCost != nil:
		return CostModeManual
	case l.PackPrice != nil && l.PackNetQuantity != nil:
		return CostModePack
	case l.UnitPrice != nil:
		return CostModeUnit
	default:
		return CostModeNone
	}
}

// LaborRoleLine is a role working on the batch.
type LaborRoleLine struct {
	Role       string  `json:"role" yaml:"role"`
	HourlyRate float64 `json:"hourlyRate" yaml:"hourlyRate"`
	Hours      float64 `json:"hours" yaml:"hours"`
}

// Cost returns rate times hours.
func (l LaborRoleLine) Cost() float64 {
	return l.HourlyRate * l.Hours
}

// BatchRequest describes one production run to be costed and priced.
type BatchRequest struct {
	Name            string           `json:"name,omitempty" yaml:"name,omitempty"`
	Items           []RecipeItemLine `json:"items" yaml:"items"`
	BatchMultiplier float64          `json:"batchMultiplier" yaml:"batchMultiplier"`

	// Frying medium consumed by this batch, and the periodic full change
	// amortized over BatchesPerMediumChange batches.
	MediumUsage            float64 `json:"mediumUsage,omitempty" yaml:"mediumUsage,omitempty"`
	MediumPrice            float64 `json:"mediumPrice,omitempty" yaml:"mediumPrice,omitempty"`
	MediumReplacementCost  float64 `json:"mediumReplacementCost,omitempty" yaml:"mediumReplacementCost,omitempty"`
	BatchesPerMediumChange int     `json:"batchesPerMediumChange" yaml:"batchesPerMediumChange"`

	EnergyUsage float64 `json:"energyUsage,omitempty" yaml:"energyUsage,omitempty"`
	EnergyRate  float64 `json:"energyRate,omitempty" yaml:"energyRate,omitempty"`

	Labor            []LaborRoleLine `json:"labor,omitempty" yaml:"labor,omitempty"`
	Overhead         float64         `json:"overhead,omitempty" yaml:"overhead,omitempty"`
	PackagingPerUnit float64         `json:"packagingPerUnit,omitempty" yaml:"packagingPerUnit,omitempty"`

	OutputMode        OutputMode `json:"outputMode,omitempty" yaml:"outputMode,omitempty"`
	TheoreticalOutput float64    `json:"theoreticalOutput,omitempty" yaml:"theoreticalOutput,omitempty"`
	UnitWeight        float64    `json:"unitWeight,omitempty" yaml:"unitWeight,omitempty"`
	WasteFraction     float64    `json:"wasteFraction,omitempty" yaml:"wasteFraction,omitempty"`

	ToppingPackPrice     float64 `json:"toppingPackPrice,omitempty" yaml:"toppingPackPrice,omitempty"`
	ToppingPackWeight    float64 `json:"toppingPackWeight,omitempty" yaml:"toppingPackWeight,omitempty"`
	ToppingWeightPerUnit float64 `json:"toppingWeightPerUnit,omitempty" yaml:"toppingWeightPerUnit,omitempty"`

	Markup       float64 `json:"markup,omitempty" yaml:"markup,omitempty"`
	VAT          float64 `json:"vat,omitempty" yaml:"vat,omitempty"`
	Strategy     string  `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	TargetMargin float64 `json:"targetMargin,omitempty" yaml:"targetMargin,omitempty"`

	RoundingRule string  `json:"roundingRule,omitempty" yaml:"roundingRule,omitempty"`
	RoundingMode string  `json:"roundingMode,omitempty" yaml:"roundingMode,omitempty"`
	CharmSuffix  float64 `json:"charmSuffix,omitempty" yaml:"charmSuffix,omitempty"`
	Currency     string  `json:"currency,omitempty" yaml:"currency,omitempty"`

	TargetProfitPerBatch float64 `json:"targetProfitPerBatch,omitempty" yaml:"targetProfitPerBatch,omitempty"`
	MonthlyFixedCost     float64 `json:"monthlyFixedCost,omitempty" yaml:"monthlyFixedCost,omitempty"`

	PriceVolatility float64 `json:"priceVolatility,omitempty" yaml:"priceVolatility,omitempty"`
	RiskAppetite    float64 `json:"riskAppetite,omitempty" yaml:"riskAppetite,omitempty"`
	MarketPressure  float64 `json:"marketPressure,omitempty" yaml:"marketPressure,omitempty"`
}

// HasTopping reports whether any topping input is set.
func (r *BatchRequest) HasTopping() bool {
	return r.ToppingPackPrice != 0 || r.ToppingPackWeight != 0 || r.ToppingWeightPerUnit != 0
}

// Float returns a pointer to v, for building RecipeItemLine literals.
func Float(v float64) *float64 {
	return &v
}
