package config

import (
	"fmt"
	"strings"

	"github.com/iwvelando/batch-cost/pkg/constants"
)

const (
	// OptimizerGoalSafePrice finds the smallest markup whose suggested price
	// covers the risk-adjusted minimum safe price.
	OptimizerGoalSafePrice = "safe_price"
	// OptimizerGoalTargetProfit finds the smallest markup whose profit per
	// batch reaches the batch's target profit.
	OptimizerGoalTargetProfit = "target_profit"
	// OptimizerGoalBoth requires both of the above.
	OptimizerGoalBoth = "both"

	defaultOptimizerTolerance     = 0.0001
	defaultOptimizerMaxIterations = 50
)

// OptimizerConfig defines a markup search for one batch.
type OptimizerConfig struct {
	Goal          string   `json:"goal,omitempty" yaml:"goal,omitempty" mapstructure:"goal"`
	Min           *float64 `json:"min,omitempty" yaml:"min,omitempty" mapstructure:"min"`
	Max           *float64 `json:"max,omitempty" yaml:"max,omitempty" mapstructure:"max"`
	Tolerance     float64  `json:"tolerance,omitempty" yaml:"tolerance,omitempty" mapstructure:"tolerance"`
	MaxIterations int      `json:"maxIterations,omitempty" yaml:"maxIterations,omitempty" mapstructure:"maxIterations"`
}

// CanonicalOptimizerGoal returns the canonical identifier for a goal name.
func CanonicalOptimizerGoal(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return OptimizerGoalSafePrice
	}
	switch strings.ToLower(strings.NewReplacer("-", "_", " ", "_").Replace(trimmed)) {
	case "safe_price", "safeprice", "safe":
		return OptimizerGoalSafePrice
	case "target_profit", "targetprofit", "profit":
		return OptimizerGoalTargetProfit
	case "both", "all":
		return OptimizerGoalBoth
	default:
		return strings.ToLower(trimmed)
	}
}

// Normalize ensures defaults and canonical values are applied before validation.
func (o *OptimizerConfig) Normalize() {
	if o == nil {
		return
	}
	o.Goal = CanonicalOptimizerGoal(o.Goal)
	if o.Min == nil {
		lower := 0.0
		o.Min = &lower
	}
	if o.Tolerance <= 0 {
		o.Tolerance = defaultOptimizerTolerance
	}
	if o.Max == nil {
		upper := constants.MaxMarkup - o.Tolerance
		o.Max = &upper
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = defaultOptimizerMaxIterations
	}
}

// Validate returns an error when the optimizer configuration is unsupported.
func (o *OptimizerConfig) Validate() error {
	if o == nil {
		return fmt.Errorf("optimizer configuration cannot be nil")
	}

	o.Normalize()

	switch o.Goal {
	case OptimizerGoalSafePrice, OptimizerGoalTargetProfit, OptimizerGoalBoth:
	default:
		return fmt.Errorf("optimizer goal %q is not supported", o.Goal)
	}

	if *o.Min < 0 {
		return fmt.Errorf("optimizer minimum markup %.4f must not be negative", *o.Min)
	}
	if *o.Max >= constants.MaxMarkup {
		return fmt.Errorf("optimizer maximum markup %.4f must be below %.1f", *o.Max, constants.MaxMarkup)
	}
	if *o.Min >= *o.Max {
		return fmt.Errorf("optimizer minimum %.4f must be less than maximum %.4f", *o.Min, *o.Max)
	}

	return nil
}

// WantsSafePrice reports whether the goal includes covering the minimum safe price.
func (o *OptimizerConfig) WantsSafePrice() bool {
	return o.Goal == OptimizerGoalSafePrice || o.Goal == OptimizerGoalBoth
}

// WantsTargetProfit reports whether the goal includes reaching target profit.
func (o *OptimizerConfig) WantsTargetProfit() bool {
	return o.Goal == OptimizerGoalTargetProfit || o.Goal == OptimizerGoalBoth
}
