// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/batch-cost/internal/costing"
)

// UnitRequest builds a minimal valid request: one ingredient line costing
// batchCost, the given explicit output and markup, and no other cost inputs.
func UnitRequest(name string, batchCost, units, markup float64) *costing.BatchRequest {
	return &costing.BatchRequest{
		Name:                   name,
		Items:                  []costing.RecipeItemLine{{Name: "base", Quantity: 1, ManualCost: costing.Float(batchCost)}},
		BatchMultiplier:        1,
		BatchesPerMediumChange: 1,
		OutputMode:             costing.OutputExplicit,
		TheoreticalOutput:      units,
		Markup:                 markup,
	}
}

// FindResult finds a result by batch name in the results slice.
// Returns a pointer to the result if found, nil otherwise.
func FindResult(results []costing.BatchCostResult, name string) *costing.BatchCostResult {
	for i := range results {
		if results[i].Name == name {
			return &results[i]
		}
	}
	return nil
}
