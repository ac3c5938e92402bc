// Package optimizer searches for the smallest markup that satisfies a pricing
// goal. Suggested price and profit never fall as markup rises, so the search
// is a bisection between the configured bounds.
package optimizer

import (
	"fmt"
	"math"

	"github.com/iwvelando/batch-cost/internal/config"
	"github.com/iwvelando/batch-cost/internal/costing"
	"github.com/iwvelando/batch-cost/pkg/format"
	"github.com/iwvelando/batch-cost/pkg/optimization"
	"go.uber.org/zap"
)

// Calculator prices a batch request.
type Calculator interface {
	Calculate(req *costing.BatchRequest) (costing.BatchCostResult, error)
}

// Solver runs markup searches against a Calculator.
type Solver struct {
	logger *zap.Logger
	calc   Calculator
}

// Solution is the outcome of a search: the summary and the full result at
// the chosen markup.
type Solution struct {
	Summary optimization.Summary    `json:"summary"`
	Result  costing.BatchCostResult `json:"result"`
}

type evaluation struct {
	markup   float64
	result   costing.BatchCostResult
	feasible bool
}

// NewSolver constructs a Solver. A nil logger is replaced by a no-op logger.
func NewSolver(logger *zap.Logger, calc Calculator) (*Solver, error) {
	if calc == nil {
		return nil, fmt.Errorf("calculator cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Solver{logger: logger, calc: calc}, nil
}

// Solve finds the smallest markup within cfg's bounds that meets cfg's goal.
// req is not modified. When no markup in range meets the goal the solution
// is priced at the upper bound and marked as not converged.
func (s *Solver) Solve(req *costing.BatchRequest, cfg config.OptimizerConfig) (Solution, error) {
	if req == nil {
		return Solution{}, fmt.Errorf("batch request cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return Solution{}, err
	}

	kind, _ := costing.ParseStrategy(req.Strategy)
	if !kind.UsesMarkup() {
		return Solution{}, fmt.Errorf("strategy %s does not use markup", kind)
	}

	var notes []string
	if cfg.WantsTargetProfit() && req.TargetProfitPerBatch <= 0 {
		notes = append(notes, "batch has no target profit; profit goal is trivially met")
	}

	lowerEval, err := s.evaluate(req, *cfg.Min, &cfg)
	if err != nil {
		return Solution{}, err
	}
	iterations := 0
	best := lowerEval

	if !lowerEval.feasible {
		upperEval, err := s.evaluate(req, *cfg.Max, &cfg)
		if err != nil {
			return Solution{}, err
		}
		best = upperEval

		if upperEval.feasible {
			lower, upper := *cfg.Min, *cfg.Max
			for iterations < cfg.MaxIterations && upper-lower > cfg.Tolerance {
				mid := lower + (upper-lower)/2
				evalMid, err := s.evaluate(req, mid, &cfg)
				if err != nil {
					return Solution{}, err
				}
				iterations++
				if evalMid.feasible {
					best = evalMid
					upper = mid
				} else {
					lower = mid
				}
			}
		} else {
			notes = append(notes, fmt.Sprintf("unable to meet goal %s within markup %s to %s",
				cfg.Goal, format.Percent(*cfg.Min), format.Percent(*cfg.Max)))
		}
	}

	summary := optimization.Summary{
		Batch:            req.Name,
		Goal:             cfg.Goal,
		Strategy:         best.result.Strategy,
		OriginalMarkup:   req.Markup,
		Markup:           best.markup,
		SuggestedPrice:   best.result.SuggestedPrice,
		MinimumSafePrice: best.result.MinimumSafePrice,
		ProfitPerBatch:   best.result.ProfitPerBatch,
		TargetProfit:     req.TargetProfitPerBatch,
		Headroom:         headroom(best.result, req, &cfg),
		Iterations:       iterations,
		Converged:        best.feasible,
		Notes:            notes,
	}

	s.logger.Info("markup search finished",
		zap.String("op", "optimizer.Solve"),
		zap.String("batch", req.Name),
		zap.String("goal", cfg.Goal),
		zap.Float64("originalMarkup", req.Markup),
		zap.Float64("markup", summary.Markup),
		zap.Int("iterations", iterations),
		zap.Bool("converged", summary.Converged),
	)

	return Solution{Summary: summary, Result: best.result}, nil
}

func (s *Solver) evaluate(req *costing.BatchRequest, markup float64, cfg *config.OptimizerConfig) (evaluation, error) {
	probe := *req
	probe.Markup = markup

	result, err := s.calc.Calculate(&probe)
	if err != nil {
		return evaluation{}, fmt.Errorf("evaluating markup %.4f: %w", markup, err)
	}

	feasible := true
	if cfg.WantsSafePrice() && result.SuggestedPrice < result.MinimumSafePrice-1e-9 {
		feasible = false
	}
	if cfg.WantsTargetProfit() && req.TargetProfitPerBatch > 0 && result.ProfitPerBatch < req.TargetProfitPerBatch-1e-9 {
		feasible = false
	}

	s.logger.Debug("evaluated markup",
		zap.String("op", "optimizer.evaluate"),
		zap.Float64("markup", markup),
		zap.Float64("suggestedPrice", result.SuggestedPrice),
		zap.Bool("feasible", feasible),
	)

	return evaluation{markup: markup, result: result, feasible: feasible}, nil
}

// headroom is the slack left at the chosen markup: price above the minimum
// safe price for price goals, profit above target for the profit goal. Goal
// both reports the price headroom.
func headroom(result costing.BatchCostResult, req *costing.BatchRequest, cfg *config.OptimizerConfig) float64 {
	if cfg.WantsSafePrice() {
		return result.SuggestedPrice - result.MinimumSafePrice
	}
	if req.TargetProfitPerBatch > 0 {
		return result.ProfitPerBatch - req.TargetProfitPerBatch
	}
	return math.Max(result.ProfitPerBatch, 0)
}
