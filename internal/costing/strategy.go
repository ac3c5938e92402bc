package costing

import (
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/batch-cost/pkg/constants"
	"github.com/iwvelando/batch-cost/pkg/mathutil"
)

// StrategyKind identifies a pricing formula.
type StrategyKind int

const (
	FixedMarkup StrategyKind = iota
	TargetMargin
	CostPlus
	Competitive
)

// StrategyKinds lists every pricing formula.
var StrategyKinds = []StrategyKind{FixedMarkup, TargetMargin, CostPlus, Competitive}

func (k StrategyKind) String() string {
	switch k {
	case FixedMarkup:
		return "FixedMarkup"
	case TargetMargin:
		return "TargetMargin"
	case CostPlus:
		return "CostPlus"
	case Competitive:
		return "Competitive"
	default:
		return fmt.Sprintf("StrategyKind(%d)", int(k))
	}
}

// UsesMarkup reports whether the strategy prices from the request's markup.
func (k StrategyKind) UsesMarkup() bool {
	return k == FixedMarkup || k == CostPlus
}

// ParseStrategy maps a case-insensitive strategy name to its kind. Unknown
// names fall back to FixedMarkup; ok reports whether the name was recognized.
func ParseStrategy(name string) (kind StrategyKind, ok bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, k := range StrategyKinds {
		if normalized == strings.ToLower(k.String()) {
			return k, true
		}
	}
	return FixedMarkup, false
}

// Quote is the output of a pricing strategy, before rounding and tax.
type Quote struct {
	Strategy  StrategyKind
	BasePrice float64
	Warnings  []string
}

// PricingStrategy turns a unit cost into a base price.
type PricingStrategy interface {
	Kind() StrategyKind
	Price(unitCost float64, req *BatchRequest) (Quote, error)
}

// StrategyFor returns the strategy implementation for kind.
func StrategyFor(kind StrategyKind, cfg EngineConfig) PricingStrategy {
	switch kind {
	case TargetMargin:
		return TargetMarginStrategy{}
	case CostPlus:
		return CostPlusStrategy{FixedAdderPerUnit: cfg.CostPlusAdder}
	case Competitive:
		return CompetitiveStrategy{DefaultMargin: cfg.CompetitiveDefaultMargin}
	default:
		return FixedMarkupStrategy{}
	}
}

func checkInputs(unitCost float64, req *BatchRequest) error {
	if req == nil {
		return failed(MissingRequest, "pricing needs a request")
	}
	if math.IsNaN(unitCost) || unitCost < 0 {
		return failed(NegativeUnitCost, "unit cost must be non-negative, got %v", unitCost)
	}
	return nil
}

func checkMarkup(markup float64) error {
	if !mathutil.IsFinite(markup) || markup < 0 || markup >= constants.MaxMarkup {
		return invalid(InvalidMarkup, "markup", "must be in [0, %v), got %v", constants.MaxMarkup, markup)
	}
	return nil
}

// FixedMarkupStrategy prices at unitCost * (1 + markup).
type FixedMarkupStrategy struct{}

// Kind implements PricingStrategy.
func (FixedMarkupStrategy) Kind() StrategyKind { return FixedMarkup }

// Price implements PricingStrategy.
func (s FixedMarkupStrategy) Price(unitCost float64, req *BatchRequest) (Quote, error) {
	if err := checkInputs(unitCost, req); err != nil {
		return Quote{}, err
	}
	if err := checkMarkup(req.Markup); err != nil {
		return Quote{}, err
	}
	return Quote{Strategy: s.Kind(), BasePrice: unitCost * (1 + req.Markup)}, nil
}

// TargetMarginStrategy prices so that (price - cost) / price equals the
// request's target margin.
type TargetMarginStrategy struct{}

// Kind implements PricingStrategy.
func (TargetMarginStrategy) Kind() StrategyKind { return TargetMargin }

// Price implements PricingStrategy. A negative margin is priced as zero with
// a warning; a margin at or above TargetMarginCeiling is rejected.
func (s TargetMarginStrategy) Price(unitCost float64, req *BatchRequest) (Quote, error) {
	if err := checkInputs(unitCost, req); err != nil {
		return Quote{}, err
	}
	if req.TargetMargin >= constants.TargetMarginCeiling || math.IsNaN(req.TargetMargin) {
		return Quote{}, failed(MarginTooCloseToSingularity,
			"target margin %v is at or above the %v ceiling", req.TargetMargin, constants.TargetMarginCeiling)
	}

	margin, warnings := ClampTargetMargin(req.TargetMargin)
	price, err := PriceAtMargin(unitCost, margin)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Strategy: s.Kind(), BasePrice: price, Warnings: warnings}, nil
}

// CostPlusStrategy adds a fixed per-unit overhead recovery before applying
// the markup.
type CostPlusStrategy struct {
	FixedAdderPerUnit float64
}

// Kind implements PricingStrategy.
func (CostPlusStrategy) Kind() StrategyKind { return CostPlus }

// Price implements PricingStrategy.
func (s CostPlusStrategy) Price(unitCost float64, req *BatchRequest) (Quote, error) {
	if err := checkInputs(unitCost, req); err != nil {
		return Quote{}, err
	}
	if err := checkMarkup(req.Markup); err != nil {
		return Quote{}, err
	}
	adder := s.FixedAdderPerUnit
	var warnings []string
	if !mathutil.IsFinite(adder) || adder < 0 {
		warnings = append(warnings, fmt.Sprintf("cost-plus adder %v is invalid; using 0", adder))
		adder = 0
	}
	return Quote{Strategy: s.Kind(), BasePrice: (unitCost + adder) * (1 + req.Markup), Warnings: warnings}, nil
}

// CompetitiveStrategy is the extension point for competitor price data.
// Without market data it prices at the request's target margin, or at
// DefaultMargin when the margin is unset, and never below unit cost. A
// negative margin is priced as zero with a warning.
type CompetitiveStrategy struct {
	DefaultMargin float64
}

// Kind implements PricingStrategy.
func (CompetitiveStrategy) Kind() StrategyKind { return Competitive }

// Price implements PricingStrategy.
func (s CompetitiveStrategy) Price(unitCost float64, req *BatchRequest) (Quote, error) {
	if err := checkInputs(unitCost, req); err != nil {
		return Quote{}, err
	}
	if req.TargetMargin >= constants.TargetMarginCeiling || math.IsNaN(req.TargetMargin) {
		return Quote{}, failed(MarginTooCloseToSingularity,
			"target margin %v is at or above the %v ceiling", req.TargetMargin, constants.TargetMarginCeiling)
	}

	margin := req.TargetMargin
	var warnings []string
	if margin == 0 {
		margin = s.DefaultMargin
		if margin == 0 {
			margin = constants.DefaultCompetitiveMargin
		}
		warnings = append(warnings, fmt.Sprintf("no competitor data or target margin; pricing at default margin %.2f", margin))
	}

	margin, clampWarnings := ClampTargetMargin(margin)
	warnings = append(warnings, clampWarnings...)

	price, err := PriceAtMargin(unitCost, margin)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Strategy: s.Kind(), BasePrice: math.Max(price, unitCost), Warnings: warnings}, nil
}

// ClampTargetMargin limits a margin to [0, TargetMarginCeiling], describing
// any adjustment in the returned warnings.
func ClampTargetMargin(margin float64) (float64, []string) {
	switch {
	case margin < 0:
		return 0, []string{fmt.Sprintf("target margin %.4g is negative; using 0", margin)}
	case margin > constants.TargetMarginCeiling:
		return constants.TargetMarginCeiling, []string{
			fmt.Sprintf("target margin %.4g exceeds %.2f; using %.2f", margin, constants.TargetMarginCeiling, constants.TargetMarginCeiling),
		}
	default:
		return margin, nil
	}
}

// PriceAtMargin solves margin = (price - cost) / price for price.
func PriceAtMargin(unitCost, margin float64) (float64, error) {
	if margin == 0 {
		return unitCost, nil
	}
	denominator := 1 - margin
	if math.Abs(denominator) < constants.SingularityEpsilon {
		return 0, failed(MarginTooCloseToSingularity, "target margin %v is too close to 100%%", margin)
	}
	return unitCost / denominator, nil
}
