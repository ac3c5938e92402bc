package costing

import (
	"fmt"

	"github.com/iwvelando/batch-cost/pkg/constants"
	"github.com/iwvelando/batch-cost/pkg/mathutil"
)

// Validate checks every precondition of the pipeline and returns the first
// violation as a *ValidationError. Nothing is computed for a request that
// fails validation.
func Validate(req *BatchRequest) error {
	if req == nil {
		return invalid(MissingOrInvalidItems, "", "request is nil")
	}

	if err := validateItems(req.Items); err != nil {
		return err
	}

	if !mathutil.IsFinite(req.BatchMultiplier) || req.BatchMultiplier <= 0 {
		return invalid(InvalidBatchMultiplier, "batchMultiplier", "must be greater than zero, got %v", req.BatchMultiplier)
	}

	if err := validateCostInputs(req); err != nil {
		return err
	}

	if err := validateOutputSource(req); err != nil {
		return err
	}

	if !inHalfOpenUnit(req.WasteFraction) {
		return invalid(InvalidWasteFraction, "wasteFraction", "must be in [0, 1), got %v", req.WasteFraction)
	}

	if !mathutil.IsFinite(req.Markup) || req.Markup < 0 {
		return invalid(InvalidMarkup, "markup", "must be non-negative, got %v", req.Markup)
	}
	if kind, _ := ParseStrategy(req.Strategy); kind.UsesMarkup() && req.Markup >= constants.MaxMarkup {
		return invalid(InvalidMarkup, "markup", "must be below %v for %s pricing, got %v", constants.MaxMarkup, kind, req.Markup)
	}

	if !inHalfOpenUnit(req.VAT) {
		return invalid(InvalidVat, "vat", "must be in [0, 1), got %v", req.VAT)
	}

	if req.HasTopping() {
		if !nonNegative(req.ToppingPackPrice) || !nonNegative(req.ToppingWeightPerUnit) ||
			!mathutil.IsFinite(req.ToppingPackWeight) || req.ToppingPackWeight <= 0 {
			return invalid(InconsistentToppingInputs, "topping",
				"pack price and weight per unit must be non-negative and pack weight positive, got price=%v packWeight=%v perUnit=%v",
				req.ToppingPackPrice, req.ToppingPackWeight, req.ToppingWeightPerUnit)
		}
	}

	if !nonNegative(req.TargetProfitPerBatch) {
		return invalid(InvalidCostInput, "targetProfitPerBatch", "must be non-negative, got %v", req.TargetProfitPerBatch)
	}
	if !nonNegative(req.MonthlyFixedCost) {
		return invalid(InvalidCostInput, "monthlyFixedCost", "must be non-negative, got %v", req.MonthlyFixedCost)
	}

	return validateRisk(req)
}

func validateItems(items []RecipeItemLine) error {
	if len(items) == 0 {
		return invalid(MissingOrInvalidItems, "items", "at least one recipe item is required")
	}
	for i, item := range items {
		if err := validateItem(item); err != nil {
			return invalid(MissingOrInvalidItems, fmt.Sprintf("items[%d]", i), "%s", err)
		}
	}
	return nil
}

func validateItem(item RecipeItemLine) error {
	if !mathutil.IsFinite(item.Quantity) || item.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %v", item.Quantity)
	}
	switch item.Mode() {
	case CostModeManual:
		if !nonNegative(*item.ManualCost) {
			return fmt.Errorf("manual cost must be non-negative, got %v", *item.ManualCost)
		}
	case CostModePack:
		if !nonNegative(*item.PackPrice) {
			return fmt.Errorf("pack price must be non-negative, got %v", *item.PackPrice)
		}
		if !mathutil.IsFinite(*item.PackNetQuantity) || *item.PackNetQuantity <= 0 {
			return fmt.Errorf("pack net quantity must be positive, got %v", *item.PackNetQuantity)
		}
	case CostModeUnit:
		if !nonNegative(*item.UnitPrice) {
			return fmt.Errorf("unit price must be non-negative, got %v", *item.UnitPrice)
		}
	default:
		if item.PackPrice != nil || item.PackNetQuantity != nil {
			return fmt.Errorf("pack pricing needs both pack price and pack net quantity")
		}
		return fmt.Errorf("no cost input: set manualCost, packPrice with packNetQuantity, or unitPrice")
	}
	return nil
}

func validateCostInputs(req *BatchRequest) error {
	if !nonNegative(req.MediumUsage) {
		return invalid(InvalidCostInput, "mediumUsage", "must be non-negative, got %v", req.MediumUsage)
	}
	if req.MediumUsage > 0 && !nonNegative(req.MediumPrice) {
		return invalid(InvalidCostInput, "mediumPrice", "must be non-negative when medium is used, got %v", req.MediumPrice)
	}
	if !nonNegative(req.MediumReplacementCost) {
		return invalid(InvalidCostInput, "mediumReplacementCost", "must be non-negative, got %v", req.MediumReplacementCost)
	}
	if req.BatchesPerMediumChange < 1 {
		return invalid(InvalidCostInput, "batchesPerMediumChange", "must be at least 1, got %d", req.BatchesPerMediumChange)
	}
	if !nonNegative(req.EnergyUsage) {
		return invalid(InvalidCostInput, "energyUsage", "must be non-negative, got %v", req.EnergyUsage)
	}
	if req.EnergyUsage > 0 && !nonNegative(req.EnergyRate) {
		return invalid(InvalidCostInput, "energyRate", "must be non-negative when energy is used, got %v", req.EnergyRate)
	}
	for i, role := range req.Labor {
		if !nonNegative(role.HourlyRate) || !nonNegative(role.Hours) {
			return invalid(InvalidCostInput, fmt.Sprintf("labor[%d]", i),
				"rate and hours must be non-negative, got rate=%v hours=%v", role.HourlyRate, role.Hours)
		}
	}
	if !nonNegative(req.Overhead) {
		return invalid(InvalidCostInput, "overhead", "must be non-negative, got %v", req.Overhead)
	}
	if !nonNegative(req.PackagingPerUnit) {
		return invalid(InvalidCostInput, "packagingPerUnit", "must be non-negative, got %v", req.PackagingPerUnit)
	}
	return nil
}

func validateOutputSource(req *BatchRequest) error {
	explicit := mathutil.IsFinite(req.TheoreticalOutput) && req.TheoreticalOutput > 0
	byWeight := mathutil.IsFinite(req.UnitWeight) && req.UnitWeight > 0

	switch req.OutputMode {
	case OutputExplicit:
		if !explicit {
			return invalid(AmbiguousOutputSource, "theoreticalOutput", "explicit mode needs a positive theoretical output, got %v", req.TheoreticalOutput)
		}
	case OutputByWeight:
		if !byWeight {
			return invalid(AmbiguousOutputSource, "unitWeight", "weight mode needs a positive unit weight, got %v", req.UnitWeight)
		}
	case "":
		if explicit == byWeight {
			return invalid(AmbiguousOutputSource, "outputMode",
				"set exactly one of theoreticalOutput or unitWeight, or choose an output mode")
		}
	default:
		return invalid(AmbiguousOutputSource, "outputMode", "unknown output mode %q", req.OutputMode)
	}
	return nil
}

func validateRisk(req *BatchRequest) error {
	if !inClosed(req.PriceVolatility, 0, 1) {
		return invalid(InvalidRiskParameter, "priceVolatility", "must be in [0, 1], got %v", req.PriceVolatility)
	}
	if !inClosed(req.RiskAppetite, 0, 1) {
		return invalid(InvalidRiskParameter, "riskAppetite", "must be in [0, 1], got %v", req.RiskAppetite)
	}
	if !inClosed(req.MarketPressure, -constants.MaxMarketPressure, constants.MaxMarketPressure) {
		return invalid(InvalidRiskParameter, "marketPressure", "must be in [-%v, %v], got %v",
			constants.MaxMarketPressure, constants.MaxMarketPressure, req.MarketPressure)
	}
	return nil
}

// resolvedOutputMode returns the mode the request actually uses. Callers must
// have validated the request.
func resolvedOutputMode(req *BatchRequest) OutputMode {
	if req.OutputMode != "" {
		return req.OutputMode
	}
	if req.TheoreticalOutput > 0 {
		return OutputExplicit
	}
	return OutputByWeight
}

func nonNegative(v float64) bool {
	return mathutil.IsFinite(v) && v >= 0
}

func inHalfOpenUnit(v float64) bool {
	return mathutil.IsFinite(v) && v >= 0 && v < 1
}

func inClosed(v, lo, hi float64) bool {
	return mathutil.IsFinite(v) && v >= lo && v <= hi
}
