// Package output provides utilities for formatting and displaying batch
// pricing results.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iwvelando/batch-cost/internal/costing"
	"github.com/iwvelando/batch-cost/pkg/constants"
	"github.com/iwvelando/batch-cost/pkg/format"
	"github.com/iwvelando/batch-cost/pkg/optimization"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Report is one priced batch ready for display.
type Report struct {
	Currency     string                  `json:"currency,omitempty"`
	Result       costing.BatchCostResult `json:"result"`
	Optimization *optimization.Summary   `json:"optimization,omitempty"`
}

// Write renders reports in the named output format.
func Write(w io.Writer, outputFormat string, reports []Report) error {
	switch outputFormat {
	case constants.OutputFormatPretty:
		return PrettyFormat(w, reports)
	case constants.OutputFormatCSV:
		return CsvFormat(w, reports)
	case constants.OutputFormatJSON:
		return JSONFormat(w, reports)
	default:
		return fmt.Errorf("unsupported output format %q", outputFormat)
	}
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, reports []Report) error {
	p := message.NewPrinter(language.English)
	for i, report := range reports {
		r := report.Result
		money := func(v float64) string {
			return p.Sprintf("%.2f", v)
		}

		_, _ = fmt.Fprintf(w, "--- Results for batch %s ---\n", displayName(r.Name, i))
		if report.Currency != "" {
			_, _ = fmt.Fprintf(w, "Currency: %s\n", strings.ToUpper(report.Currency))
		}
		_, _ = fmt.Fprintf(w, "Component           | Amount\n")
		_, _ = fmt.Fprintf(w, "___________________ | ______\n")
		for _, key := range costRows {
			v, _ := r.BreakdownValue(key)
			_, _ = fmt.Fprintf(w, "%-19s | %s\n", key, money(v))
		}

		_, _ = p.Fprintf(w, "Sellable units: %d (theoretical %.2f, %s mode)\n", r.SellableUnits, r.TheoreticalUnits, r.OutputMode)
		if r.DoughWeight > 0 {
			_, _ = p.Fprintf(w, "Dough weight: %.2f at %.2f per unit\n", r.DoughWeight, r.UnitWeight)
		}
		if r.CostPerUnitWithTopping > 0 {
			_, _ = fmt.Fprintf(w, "Topping: %s per unit, %s per unit with topping\n",
				money(r.ToppingCostPerUnit), money(r.CostPerUnitWithTopping))
		}

		rounding := r.RoundingMode
		if r.RoundingRule != "" {
			rounding += " " + r.RoundingRule
		}
		_, _ = fmt.Fprintf(w, "Strategy: %s (base %s, rounding %s)\n", r.Strategy, money(r.BasePrice), rounding)
		_, _ = fmt.Fprintf(w, "Suggested price: %s | with tax: %s\n", money(r.SuggestedPrice), money(r.PriceWithTax))
		_, _ = fmt.Fprintf(w, "Margin: %s | contribution margin: %s | profit per unit: %s | profit per batch: %s\n",
			format.Percent(r.Margin), money(r.ContributionMargin), money(r.ProfitPerUnit), money(r.ProfitPerBatch))
		_, _ = fmt.Fprintf(w, "Units for target profit: %s | monthly break-even units: %s\n",
			format.UnitCount(r.UnitsForTargetProfit), format.UnitCount(r.MonthlyBreakEvenUnits))
		_, _ = fmt.Fprintf(w, "Risk buffer: %.1f%% | minimum safe price: %s | recommended: %s - %s\n",
			r.RiskBufferPercent, money(r.MinimumSafePrice), money(r.RecommendedPriceLow), money(r.RecommendedPriceHigh))
		_, _ = fmt.Fprintf(w, "Confidence: %s | cost volatility: %s\n",
			format.Percent(r.PricingConfidence), format.Percent(r.CostVolatilityScore))
		_, _ = fmt.Fprintf(w, "Note: %s\n", r.RecommendationNote)

		if warnings := r.Warnings(); len(warnings) > 0 {
			_, _ = fmt.Fprintf(w, "Warnings:\n")
			for _, warning := range warnings {
				_, _ = fmt.Fprintf(w, "  - %s\n", warning)
			}
		}

		if s := report.Optimization; s != nil {
			status := "converged"
			if !s.Converged {
				status = "not converged"
			}
			_, _ = fmt.Fprintf(w, "Optimization adjustments:\n")
			markup := "unchanged at " + format.Percent(s.Markup)
			if s.Changed() {
				markup = format.Percent(s.OriginalMarkup) + " -> " + format.Percent(s.Markup)
			}
			_, _ = fmt.Fprintf(w, "  markup %s (goal %s, %d iterations, %s, headroom %s)\n",
				markup, s.Goal, s.Iterations, status, money(s.Headroom))
			for _, note := range s.Notes {
				_, _ = fmt.Fprintf(w, "  note: %s\n", note)
			}
		}

		if len(reports) > 1 && i < len(reports)-1 {
			_, _ = fmt.Fprintf(w, "\n")
		}
	}
	return nil
}

// costRows are the breakdown keys shown in the pretty cost table.
var costRows = []string{
	costing.KeyIngredient,
	costing.KeyMediumUsage,
	costing.KeyMediumAmortization,
	costing.KeyEnergy,
	costing.KeyLabor,
	costing.KeyOverhead,
	costing.KeyPackaging,
	costing.KeyTotalBatchCost,
	costing.KeyUnitCost,
}

// CsvFormat outputs in comma-separated value format with one metric per row
// and one column per batch.
func CsvFormat(w io.Writer, reports []Report) error {
	cw := csv.NewWriter(w)

	header := []string{"metric"}
	for i, report := range reports {
		header = append(header, displayName(report.Result.Name, i))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, key := range costing.BreakdownKeys {
		row := []string{key}
		for _, report := range reports {
			v, _ := report.Result.BreakdownValue(key)
			row = append(row, strconv.FormatFloat(v, 'f', 2, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	for _, metric := range csvMetrics {
		row := []string{metric.name}
		for _, report := range reports {
			row = append(row, metric.value(report.Result))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	notes := []string{"warnings"}
	for _, report := range reports {
		notes = append(notes, strings.Join(report.Result.Warnings(), "; "))
	}
	if err := cw.Write(notes); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

type csvMetric struct {
	name  string
	value func(costing.BatchCostResult) string
}

func fixed(v float64, digits int) string {
	return strconv.FormatFloat(v, 'f', digits, 64)
}

var csvMetrics = []csvMetric{
	{"sellable_units", func(r costing.BatchCostResult) string { return strconv.Itoa(r.SellableUnits) }},
	{"strategy", func(r costing.BatchCostResult) string { return r.Strategy }},
	{"margin", func(r costing.BatchCostResult) string { return fixed(r.Margin, 4) }},
	{"profit_per_unit", func(r costing.BatchCostResult) string { return fixed(r.ProfitPerUnit, 2) }},
	{"profit_per_batch", func(r costing.BatchCostResult) string { return fixed(r.ProfitPerBatch, 2) }},
	{"units_for_target_profit", func(r costing.BatchCostResult) string { return strconv.Itoa(r.UnitsForTargetProfit) }},
	{"monthly_break_even_units", func(r costing.BatchCostResult) string { return strconv.Itoa(r.MonthlyBreakEvenUnits) }},
	{"recommended_price_low", func(r costing.BatchCostResult) string { return fixed(r.RecommendedPriceLow, 2) }},
	{"recommended_price_high", func(r costing.BatchCostResult) string { return fixed(r.RecommendedPriceHigh, 2) }},
	{"pricing_confidence", func(r costing.BatchCostResult) string { return fixed(r.PricingConfidence, 4) }},
	{"cost_volatility_score", func(r costing.BatchCostResult) string { return fixed(r.CostVolatilityScore, 4) }},
}

// JSONFormat outputs the reports as an indented JSON array.
func JSONFormat(w io.Writer, reports []Report) error {
	if reports == nil {
		reports = []Report{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

func displayName(name string, index int) string {
	if name == "" {
		return fmt.Sprintf("batch %d", index+1)
	}
	return name
}
