package config

import (
	"math"
	"strings"
	"testing"
)

func TestCanonicalOptimizerGoal(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty defaults to safe price", input: "", expected: OptimizerGoalSafePrice},
		{name: "safe price casing", input: "Safe-Price", expected: OptimizerGoalSafePrice},
		{name: "profit shorthand", input: "PROFIT", expected: OptimizerGoalTargetProfit},
		{name: "target profit with space", input: "target profit", expected: OptimizerGoalTargetProfit},
		{name: "both", input: "Both", expected: OptimizerGoalBoth},
		{name: "unknown lowered", input: "Revenue", expected: "revenue"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual := CanonicalOptimizerGoal(tc.input)
			if actual != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, actual)
			}
		})
	}
}

func TestOptimizerConfigNormalize(t *testing.T) {
	cfg := &OptimizerConfig{}
	cfg.Normalize()

	if cfg.Goal != OptimizerGoalSafePrice {
		t.Fatalf("expected goal %q, got %q", OptimizerGoalSafePrice, cfg.Goal)
	}
	if *cfg.Min != 0 {
		t.Fatalf("expected minimum 0, got %v", *cfg.Min)
	}
	if math.Abs(*cfg.Max-(5-defaultOptimizerTolerance)) > 1e-12 {
		t.Fatalf("expected maximum just below 5, got %v", *cfg.Max)
	}
	if cfg.MaxIterations != defaultOptimizerMaxIterations {
		t.Fatalf("expected %d iterations, got %d", defaultOptimizerMaxIterations, cfg.MaxIterations)
	}
}

func TestOptimizerConfigValidate(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     *OptimizerConfig
		wantErr string
	}{
		{name: "defaults", cfg: &OptimizerConfig{}},
		{name: "explicit bounds", cfg: &OptimizerConfig{Goal: "both", Min: floatPtr(0.1), Max: floatPtr(2)}},
		{name: "nil", cfg: nil, wantErr: "cannot be nil"},
		{name: "unknown goal", cfg: &OptimizerConfig{Goal: "revenue"}, wantErr: "not supported"},
		{name: "negative minimum", cfg: &OptimizerConfig{Min: floatPtr(-0.1)}, wantErr: "must not be negative"},
		{name: "maximum at markup limit", cfg: &OptimizerConfig{Max: floatPtr(5)}, wantErr: "must be below"},
		{name: "inverted bounds", cfg: &OptimizerConfig{Min: floatPtr(2), Max: floatPtr(1)}, wantErr: "less than maximum"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestOptimizerGoals(t *testing.T) {
	both := &OptimizerConfig{Goal: OptimizerGoalBoth}
	if !both.WantsSafePrice() || !both.WantsTargetProfit() {
		t.Fatalf("goal both should want safe price and target profit")
	}
	profit := &OptimizerConfig{Goal: OptimizerGoalTargetProfit}
	if profit.WantsSafePrice() || !profit.WantsTargetProfit() {
		t.Fatalf("goal target_profit should only want target profit")
	}
}

func floatPtr(value float64) *float64 {
	return &value
}
