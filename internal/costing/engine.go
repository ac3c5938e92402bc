package costing

import (
	"fmt"

	"github.com/iwvelando/batch-cost/pkg/constants"
	"github.com/iwvelando/batch-cost/pkg/rounding"
	"go.uber.org/zap"
)

// EngineConfig holds the tunable constants of the pipeline. It is passed in
// explicitly so that a calculation depends only on its inputs.
type EngineConfig struct {
	CostPlusAdder              float64
	CompetitiveDefaultMargin   float64
	DefaultCharmSuffix         float64
	RiskBufferCeiling          float64
	ConfidenceVolatilityWeight float64
	ConfidencePressureWeight   float64
	BreakEvenBatchMultiple     float64
	LowConfidenceThreshold     float64
	Currencies                 rounding.CurrencyTable
}

// DefaultEngineConfig returns the built-in pipeline constants.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		CostPlusAdder:              constants.DefaultCostPlusAdder,
		CompetitiveDefaultMargin:   constants.DefaultCompetitiveMargin,
		DefaultCharmSuffix:         constants.DefaultCharmSuffix,
		RiskBufferCeiling:          constants.RiskBufferCeiling,
		ConfidenceVolatilityWeight: constants.ConfidenceVolatilityWeight,
		ConfidencePressureWeight:   constants.ConfidencePressureWeight,
		BreakEvenBatchMultiple:     constants.BreakEvenBatchMultiple,
		LowConfidenceThreshold:     constants.LowConfidenceThreshold,
		Currencies:                 rounding.DefaultCurrencyTable(),
	}
}

// WithDefaults fills every unset (zero) field from DefaultEngineConfig.
// CostPlusAdder is left as given since zero is a meaningful adder.
func (c EngineConfig) WithDefaults() EngineConfig {
	d := DefaultEngineConfig()
	if c.CompetitiveDefaultMargin == 0 {
		c.CompetitiveDefaultMargin = d.CompetitiveDefaultMargin
	}
	if c.DefaultCharmSuffix == 0 {
		c.DefaultCharmSuffix = d.DefaultCharmSuffix
	}
	if c.RiskBufferCeiling <= 0 {
		c.RiskBufferCeiling = d.RiskBufferCeiling
	}
	if c.ConfidenceVolatilityWeight == 0 {
		c.ConfidenceVolatilityWeight = d.ConfidenceVolatilityWeight
	}
	if c.ConfidencePressureWeight == 0 {
		c.ConfidencePressureWeight = d.ConfidencePressureWeight
	}
	if c.BreakEvenBatchMultiple <= 0 {
		c.BreakEvenBatchMultiple = d.BreakEvenBatchMultiple
	}
	if c.LowConfidenceThreshold == 0 {
		c.LowConfidenceThreshold = d.LowConfidenceThreshold
	}
	if c.Currencies == nil {
		c.Currencies = d.Currencies
	}
	return c
}

// Engine runs the batch costing pipeline. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	logger *zap.Logger
	cfg    EngineConfig
}

// NewEngine creates an engine. A nil logger is replaced by a no-op logger.
func NewEngine(logger *zap.Logger, cfg EngineConfig) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger, cfg: cfg.WithDefaults()}
}

// Config returns the engine's effective configuration.
func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// Calculate validates req and runs the full pipeline. It returns a
// *ValidationError before any arithmetic for a bad request, or a
// *ComputationError when a valid request cannot be priced.
func (e *Engine) Calculate(req *BatchRequest) (BatchCostResult, error) {
	if err := Validate(req); err != nil {
		e.logger.Debug("batch request rejected",
			zap.String("op", "costing.Calculate"),
			zap.Error(err),
		)
		return BatchCostResult{}, err
	}

	totals := AggregateCosts(req)

	y, err := ComputeYield(req, totals)
	if err != nil {
		return BatchCostResult{}, err
	}

	kind, known := ParseStrategy(req.Strategy)
	quote, err := StrategyFor(kind, e.cfg).Price(y.PricingCost(), req)
	if err != nil {
		return BatchCostResult{}, fmt.Errorf("pricing with %s: %w", kind, err)
	}
	var warnings []string
	if !known && req.Strategy != "" {
		warnings = append(warnings, fmt.Sprintf("unknown pricing strategy %q; using %s", req.Strategy, kind))
	}
	warnings = append(warnings, quote.Warnings...)

	priced := e.roundPrice(req, quote.BasePrice, y.PricingCost())
	warnings = append(warnings, priced.warnings...)

	profit := ComputeProfitability(req, totals, y, priced.suggested)
	if profit.Margin >= 1 {
		return BatchCostResult{}, failed(UndefinedMargin,
			"unit cost %v is negligible against price %v; margin must stay below 100%%", y.PricingCost(), priced.suggested)
	}

	risk := AssessRisk(RiskInputs{
		UnitCost:              y.PricingCost(),
		SuggestedPrice:        priced.suggested,
		Volatility:            req.PriceVolatility,
		RiskAppetite:          req.RiskAppetite,
		MarketPressure:        req.MarketPressure,
		CostShares:            costShares(totals, y),
		SellableUnits:         y.SellableUnits,
		Margin:                profit.Margin,
		TargetProfitPerBatch:  req.TargetProfitPerBatch,
		UnitsForTargetProfit:  profit.UnitsForTargetProfit,
		MonthlyFixedCost:      req.MonthlyFixedCost,
		MonthlyBreakEvenUnits: profit.MonthlyBreakEvenUnits,
	}, e.cfg)
	warnings = append(warnings, risk.Warnings...)

	result := assemble(req, totals, y, quote, priced, profit, risk, warnings)

	e.logger.Debug("batch priced",
		zap.String("op", "costing.Calculate"),
		zap.String("batch", req.Name),
		zap.String("strategy", result.Strategy),
		zap.Int("sellableUnits", result.SellableUnits),
		zap.Float64("unitCost", result.UnitCost),
		zap.Float64("suggestedPrice", result.SuggestedPrice),
		zap.Int("warnings", len(warnings)),
	)

	return result, nil
}

type pricedOutcome struct {
	rule      string
	mode      rounding.Mode
	suggested float64
	withTax   float64
	warnings  []string
}

// roundPrice snaps the base price to the request's rounding rule. An empty
// rule falls back to the currency's standard interval. A rounded price below
// the cost it has to recover is raised back to the first interval at or
// above that cost.
func (e *Engine) roundPrice(req *BatchRequest, base, cost float64) pricedOutcome {
	out := pricedOutcome{rule: req.RoundingRule, mode: rounding.ParseMode(req.RoundingMode)}
	if out.rule == "" && req.Currency != "" {
		if rule, ok := e.cfg.Currencies.SuggestInterval(req.Currency); ok {
			out.rule = rule
		} else {
			out.warnings = append(out.warnings, fmt.Sprintf("unknown currency %q; price not rounded", req.Currency))
		}
	}
	if _, ok := rounding.ParseInterval(out.rule); !ok && out.rule != "" && out.mode != rounding.ModeCharm {
		out.warnings = append(out.warnings, fmt.Sprintf("rounding rule %q is not a positive decimal; price not rounded", out.rule))
	}

	suffix := req.CharmSuffix
	if suffix == 0 {
		suffix = e.cfg.DefaultCharmSuffix
	}
	out.suggested = rounding.Apply(base, out.rule, out.mode, suffix)

	if out.suggested < cost {
		raised := rounding.CeilToInterval(cost, out.rule)
		out.warnings = append(out.warnings, fmt.Sprintf("%s rounding gave %.2f, below cost %.2f; raised to %.2f",
			out.mode, out.suggested, cost, raised))
		out.suggested = raised
	}

	out.withTax = rounding.TaxInclusive(out.suggested, req.VAT)
	return out
}
