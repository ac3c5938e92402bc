package costing

import "github.com/iwvelando/batch-cost/pkg/constants"

func assemble(req *BatchRequest, totals CostTotals, y Yield, quote Quote, priced pricedOutcome,
	profit Profitability, risk RiskAssessment, warnings []string) BatchCostResult {
	r := BatchCostResult{
		Name: req.Name,

		IngredientCost:         totals.Ingredient,
		MediumUsageCost:        totals.MediumUsage,
		MediumAmortizationCost: totals.MediumAmortization,
		EnergyCost:             totals.Energy,
		LaborCost:              totals.Labor,
		OverheadCost:           totals.Overhead,
		PackagingCost:          y.Packaging,
		TotalBatchCost:         y.TotalBatchCost,
		UnitCost:               y.UnitCost,

		OutputMode:       y.Mode,
		TheoreticalUnits: y.TheoreticalUnits,
		SellableUnits:    y.SellableUnits,
		DoughWeight:      y.DoughWeight,
		UnitWeight:       y.UnitWeight,

		ToppingCostPerUnit:     y.ToppingCostPerUnit,
		CostPerUnitWithTopping: y.CostPerUnitWithTopping,

		Strategy:       quote.Strategy.String(),
		BasePrice:      quote.BasePrice,
		RoundingRule:   priced.rule,
		RoundingMode:   string(priced.mode),
		SuggestedPrice: priced.suggested,
		PriceWithTax:   priced.withTax,

		Margin:                profit.Margin,
		ContributionMargin:    profit.ContributionMargin,
		ProfitPerUnit:         profit.ProfitPerUnit,
		ProfitPerBatch:        profit.ProfitPerBatch,
		UnitsForTargetProfit:  profit.UnitsForTargetProfit,
		MonthlyBreakEvenUnits: profit.MonthlyBreakEvenUnits,

		CostVolatilityScore:  risk.CostVolatilityScore,
		PricingConfidence:    risk.Confidence,
		RiskBufferPercent:    risk.Buffer * constants.PercentageMultiplier,
		MinimumSafePrice:     risk.MinimumSafePrice,
		RecommendedPriceLow:  risk.RecommendedLow,
		RecommendedPriceHigh: risk.RecommendedHigh,
		RecommendationNote:   risk.Note,
	}

	if len(warnings) > 0 {
		r.warnings = append([]string(nil), warnings...)
	}

	r.breakdown = map[string]float64{
		KeyIngredient:         r.IngredientCost,
		KeyMediumUsage:        r.MediumUsageCost,
		KeyMediumAmortization: r.MediumAmortizationCost,
		KeyEnergy:             r.EnergyCost,
		KeyLabor:              r.LaborCost,
		KeyOverhead:           r.OverheadCost,
		KeyPackaging:          r.PackagingCost,
		KeyTotalBatchCost:     r.TotalBatchCost,
		KeyUnitCost:           r.UnitCost,
		KeyToppingPerUnit:     r.ToppingCostPerUnit,
		KeyCostWithTopping:    y.PricingCost(),
		KeySuggestedPrice:     r.SuggestedPrice,
		KeyPriceWithTax:       r.PriceWithTax,
		KeyMinimumSafePrice:   r.MinimumSafePrice,
		KeyContributionMargin: r.ContributionMargin,
		KeyRiskBufferPercent:  r.RiskBufferPercent,
	}

	return r
}
