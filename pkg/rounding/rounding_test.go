package rounding

import (
	"math"
	"testing"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func TestRoundToInterval(t *testing.T) {
	tests := []struct {
		name     string
		price    float64
		rule     string
		expected float64
	}{
		{"Nickel interval", 12.348, "0.05", 12.35},
		{"Nickel interval rounds down", 12.32, "0.05", 12.30},
		{"Tie to even below", 12.325, "0.05", 12.30},
		{"Tie to even above", 12.375, "0.05", 12.40},
		{"Whole hundreds", 15049, "100", 15000},
		{"Whole hundreds up", 15051, "100", 15100},
		{"Cent interval", 166.666666, "0.01", 166.67},
		{"Padded rule", 12.348, " 0.05 ", 12.35},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nearlyEqual(t, "RoundToInterval", RoundToInterval(tt.price, tt.rule), tt.expected)
		})
	}
}

func TestCeilAndFloorToInterval(t *testing.T) {
	nearlyEqual(t, "ceil", CeilToInterval(12.342, "0.05"), 12.35)
	nearlyEqual(t, "floor", FloorToInterval(12.348, "0.05"), 12.30)
	nearlyEqual(t, "ceil exact", CeilToInterval(12.35, "0.05"), 12.35)
	nearlyEqual(t, "floor hundreds", FloorToInterval(15099, "100"), 15000)
}

func TestMalformedRulesPassThrough(t *testing.T) {
	rules := []string{"", "   ", "abc", "0", "-0.05", "0.05.1", "1e", "five"}
	for _, rule := range rules {
		t.Run(rule, func(t *testing.T) {
			nearlyEqual(t, "RoundToInterval", RoundToInterval(12.348, rule), 12.348)
			nearlyEqual(t, "CeilToInterval", CeilToInterval(12.348, rule), 12.348)
			nearlyEqual(t, "FloorToInterval", FloorToInterval(12.348, rule), 12.348)
		})
	}
}

func TestParseInterval(t *testing.T) {
	if _, ok := ParseInterval("0.05"); !ok {
		t.Fatalf("expected 0.05 to parse")
	}
	if _, ok := ParseInterval("0"); ok {
		t.Fatalf("expected zero interval to be rejected")
	}
	if _, ok := ParseInterval("x"); ok {
		t.Fatalf("expected malformed interval to be rejected")
	}
}

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"":        ModeNearest,
		"nearest": ModeNearest,
		"UP":      ModeUp,
		"ceiling": ModeUp,
		"Down":    ModeDown,
		"floor":   ModeDown,
		"charm":   ModeCharm,
		"bogus":   ModeNearest,
	}
	for input, want := range tests {
		if got := ParseMode(input); got != want {
			t.Errorf("ParseMode(%q) = %s, want %s", input, got, want)
		}
	}
}

func TestApply(t *testing.T) {
	nearlyEqual(t, "nearest", Apply(12.348, "0.05", ModeNearest, 0), 12.35)
	nearlyEqual(t, "up", Apply(12.342, "0.05", ModeUp, 0), 12.35)
	nearlyEqual(t, "down", Apply(12.348, "0.05", ModeDown, 0), 12.30)
	nearlyEqual(t, "charm", Apply(12.60, "0.05", ModeCharm, 0.99), 12.99)
}

func TestCharm(t *testing.T) {
	tests := []struct {
		name     string
		price    float64
		suffix   float64
		expected float64
	}{
		{"Overshoot within threshold uses unit lower", 12.40, 0.99, 11.99},
		{"Overshoot beyond threshold keeps charm above", 12.60, 0.99, 12.99},
		{"Already charm priced", 12.99, 0.99, 12.99},
		{"Charm too far below moves up", 12.60, 0.05, 13.05},
		{"Charm slightly below kept", 12.30, 0.05, 12.05},
		{"Unit lower would be negative", 0.30, 0.99, 0.99},
		{"Invalid suffix uses default", 12.60, 1.5, 12.99},
		{"Zero price untouched", 0, 0.99, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Charm(tt.price, tt.suffix)
			nearlyEqual(t, "Charm", got, tt.expected)
			if tt.price > 0 && tt.price-got > 0.5+1e-9 {
				t.Fatalf("Charm(%v) under-priced by %v", tt.price, tt.price-got)
			}
		})
	}
}

func TestTaxInclusive(t *testing.T) {
	nearlyEqual(t, "TaxInclusive", TaxInclusive(150, 0.16), 174)
	nearlyEqual(t, "TaxInclusive zero vat", TaxInclusive(150, 0), 150)
}

func TestCurrencyTable(t *testing.T) {
	table := DefaultCurrencyTable()

	rule, ok := table.SuggestInterval("idr")
	if !ok || rule != "100" {
		t.Fatalf("SuggestInterval(idr) = %q, %v; want 100, true", rule, ok)
	}
	if _, ok := table.SuggestInterval("XXX"); ok {
		t.Fatalf("expected unknown code to be missing")
	}

	merged := table.Merge(map[string]string{"usd": "0.05", "zzz": "bad"})
	if got, _ := merged.SuggestInterval("USD"); got != "0.05" {
		t.Fatalf("merged USD = %q, want 0.05", got)
	}
	if _, ok := merged.SuggestInterval("ZZZ"); ok {
		t.Fatalf("expected malformed override to be skipped")
	}
	if got, _ := table.SuggestInterval("USD"); got != "0.01" {
		t.Fatalf("Merge mutated the receiver: USD = %q", got)
	}

	codes := table.Codes()
	for i := 1; i < len(codes); i++ {
		if codes[i-1] > codes[i] {
			t.Fatalf("Codes() not sorted: %v", codes)
		}
	}
}
