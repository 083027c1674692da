package policy

import (
	"context"
	"fmt"

	"github.com/jxwng/cvxportfolio/internal/costs"
	"github.com/jxwng/cvxportfolio/internal/forecast"
	"github.com/jxwng/cvxportfolio/internal/logger"
	"github.com/jxwng/cvxportfolio/internal/marketdata"
	"github.com/jxwng/cvxportfolio/internal/optimizer"
	"github.com/jxwng/cvxportfolio/internal/types"
)

// SinglePeriodOptimization trades off forecast return, risk and surrogate
// costs over the next period only. It solves the one-step program directly,
// with the trade weights z in the first variable block and the post-trade
// weights w+ in the second, and coincides with MultiPeriodOptimization at
// Horizon 1.
type SinglePeriodOptimization struct {
	opts       OptimizationOptions
	forecaster forecast.Model
	tcost      costs.Model
	hcost      costs.Model
	solver     optimizer.Solver
	logger     *logger.Logger
}

// NewSinglePeriodOptimization validates the options and builds the policy.
// The Horizon, Discount and TerminalWeights options have no effect here.
func NewSinglePeriodOptimization(
	opts OptimizationOptions,
	forecaster forecast.Model,
	tcost costs.Model,
	hcost costs.Model,
	solver optimizer.Solver,
	log *logger.Logger,
) (*SinglePeriodOptimization, error) {
	if opts.RiskAversion < 0 {
		return nil, fmt.Errorf("risk aversion must be non-negative, got %f", opts.RiskAversion)
	}

	return &SinglePeriodOptimization{
		opts:       opts,
		forecaster: forecaster,
		tcost:      tcost,
		hcost:      hcost,
		solver:     solver,
		logger:     log,
	}, nil
}

// Name implements Policy.
func (p *SinglePeriodOptimization) Name() string {
	return "SinglePeriodOptimization"
}

// ProposeTrade implements Policy.
func (p *SinglePeriodOptimization) ProposeTrade(ctx context.Context, state types.PortfolioState, snap *marketdata.Snapshot) (types.Trade, error) {
	v := state.Value()
	if !(v > 0) {
		return nil, types.NewDataError("policy %s evaluated at period %d with non-positive portfolio value %e", p.Name(), snap.Period, v)
	}

	bundle, err := p.forecaster.Estimate(snap)
	if err != nil {
		return nil, fmt.Errorf("forecast failed at period %d: %w", snap.Period, err)
	}

	prob, err := p.buildProblem(state.Weights(), v, bundle, snap)
	if err != nil {
		return nil, err
	}

	sol, err := p.solver.Solve(ctx, prob)
	if err != nil {
		return nil, fmt.Errorf("solver rejected problem at period %d: %w", snap.Period, err)
	}

	if sol.Status != optimizer.StatusOptimal {
		return resolveSolveFailure(p.logger, p.Name(), p.opts.Fallback, snap.Period, sol, len(state.Holdings))
	}

	u := make(types.Trade, snap.Universe.Size())
	for i := range u {
		u[i] = sol.X[i] * v
	}

	return u, nil
}

func (p *SinglePeriodOptimization) buildProblem(w []float64, v float64, bundle *forecast.Bundle, snap *marketdata.Snapshot) (*optimizer.Problem, error) {
	n := snap.Universe.Size()
	nonCash := snap.Universe.NumAssets()

	prob := &optimizer.Problem{NumVars: 2 * n}

	prob.Initial = make([]float64, prob.NumVars)
	copy(prob.Initial[n:], w)

	zNonCash := indexRange(0, nonCash)
	wNonCash := indexRange(n, nonCash)

	// Self-financing: the trade weights sum to zero.
	sum := make([]optimizer.Entry, n)
	for i := 0; i < n; i++ {
		sum[i] = optimizer.Entry{Index: i, Coeff: 1}
	}

	prob.Equalities = append(prob.Equalities, optimizer.LinearConstraint{Coeffs: sum})

	// Post-trade weights: w+ = w + z.
	for i := 0; i < n; i++ {
		prob.Equalities = append(prob.Equalities, optimizer.LinearConstraint{
			Coeffs: []optimizer.Entry{
				{Index: n + i, Coeff: 1},
				{Index: i, Coeff: -1},
			},
			Bound: w[i],
		})
	}

	ret := make([]optimizer.Entry, n)
	for i := 0; i < n; i++ {
		ret[i] = optimizer.Entry{Index: n + i, Coeff: -bundle.ExpectedReturns[i]}
	}

	prob.Objective = append(prob.Objective, optimizer.Linear{Coeffs: ret})

	if p.opts.RiskAversion > 0 {
		prob.Objective = append(prob.Objective, optimizer.Quadratic{
			Indices: wNonCash,
			Q:       bundle.Covariance,
			Weight:  p.opts.RiskAversion,
		})

		if p.opts.Benchmark.IsSome() {
			bench := p.opts.Benchmark.Unwrap()
			if len(bench) != n {
				return nil, types.NewDataError("benchmark weights have %d entries, universe has %d members", len(bench), n)
			}

			cross := make([]optimizer.Entry, len(wNonCash))

			for i, idx := range wNonCash {
				sigmaB := 0.0
				for j := 0; j < len(wNonCash); j++ {
					sigmaB += bundle.Covariance.At(i, j) * bench[j]
				}

				cross[i] = optimizer.Entry{Index: idx, Coeff: -2 * p.opts.RiskAversion * sigmaB}
			}

			prob.Objective = append(prob.Objective, optimizer.Linear{Coeffs: cross})
		}
	}

	tcostTerms, err := p.tcost.Surrogate(zNonCash, wNonCash, snap, v)
	if err != nil {
		return nil, err
	}

	hcostTerms, err := p.hcost.Surrogate(zNonCash, wNonCash, snap, v)
	if err != nil {
		return nil, err
	}

	prob.Objective = append(prob.Objective, tcostTerms...)
	prob.Objective = append(prob.Objective, hcostTerms...)

	p.opts.Constraints.apply(prob, zNonCash, wNonCash)

	return prob, nil
}
