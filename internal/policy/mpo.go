package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/jxwng/cvxportfolio/internal/costs"
	"github.com/jxwng/cvxportfolio/internal/forecast"
	"github.com/jxwng/cvxportfolio/internal/logger"
	"github.com/jxwng/cvxportfolio/internal/marketdata"
	"github.com/jxwng/cvxportfolio/internal/optimizer"
	"github.com/jxwng/cvxportfolio/internal/types"
)

// Fallback selects what an optimization policy does when its problem turns
// out infeasible or the solver fails.
type Fallback string

const (
	// FallbackNone fails the period.
	FallbackNone Fallback = "none"
	// FallbackHold degrades to a zero trade for the period.
	FallbackHold Fallback = "hold"
)

// OptimizationOptions configure the optimization policies.
type OptimizationOptions struct {
	// Horizon is the number of future periods planned for. The policy
	// still executes only the first step.
	Horizon int `yaml:"horizon"`
	// RiskAversion weighs the covariance risk term against expected
	// return.
	RiskAversion float64 `yaml:"risk_aversion"`
	// Discount is the per-step multiplier applied to later horizon
	// steps; 1 (the default when zero) weighs all steps equally.
	Discount float64 `yaml:"discount"`
	// Constraints applied at every horizon step.
	Constraints Constraints `yaml:"constraints"`
	// Benchmark weights (cash last) the risk term is measured against.
	// All-cash when absent.
	Benchmark optional.Option[[]float64] `yaml:"-"`
	// TerminalWeights pin the post-trade weights of the last horizon
	// step when present.
	TerminalWeights optional.Option[[]float64] `yaml:"-"`
	// Fallback on infeasibility or solver failure.
	Fallback Fallback `yaml:"fallback"`
}

func (o OptimizationOptions) discount() float64 {
	if o.Discount <= 0 {
		return 1
	}

	return o.Discount
}

// MultiPeriodOptimization is the receding-horizon policy. At every period it
// solves one convex program over Horizon future steps, maximizing forecast
// risk-adjusted return net of surrogate costs subject to the configured
// constraints and the self-financing and holdings dynamics of every step,
// then executes only the first step's trade. The whole program is re-solved
// fresh at the next period, so a stale plan influences at most one decision.
type MultiPeriodOptimization struct {
	opts       OptimizationOptions
	forecaster forecast.Model
	tcost      costs.Model
	hcost      costs.Model
	solver     optimizer.Solver
	logger     *logger.Logger
}

// NewMultiPeriodOptimization validates the options and builds the policy.
func NewMultiPeriodOptimization(
	opts OptimizationOptions,
	forecaster forecast.Model,
	tcost costs.Model,
	hcost costs.Model,
	solver optimizer.Solver,
	log *logger.Logger,
) (*MultiPeriodOptimization, error) {
	if opts.Horizon < 1 {
		return nil, fmt.Errorf("planning horizon must be at least 1, got %d", opts.Horizon)
	}

	if opts.RiskAversion < 0 {
		return nil, fmt.Errorf("risk aversion must be non-negative, got %f", opts.RiskAversion)
	}

	return &MultiPeriodOptimization{
		opts:       opts,
		forecaster: forecaster,
		tcost:      tcost,
		hcost:      hcost,
		solver:     solver,
		logger:     log,
	}, nil
}

// Name implements Policy.
func (p *MultiPeriodOptimization) Name() string {
	return "MultiPeriodOptimization"
}

// ProposeTrade implements Policy.
func (p *MultiPeriodOptimization) ProposeTrade(ctx context.Context, state types.PortfolioState, snap *marketdata.Snapshot) (types.Trade, error) {
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

// buildProblem lays the horizon out as 2H blocks of universe-sized
// variables: step k owns the trade weights z_k at offset 2kn and the
// post-trade weights w+_k at offset (2k+1)n.
func (p *MultiPeriodOptimization) buildProblem(w []float64, v float64, bundle *forecast.Bundle, snap *marketdata.Snapshot) (*optimizer.Problem, error) {
	n := snap.Universe.Size()
	nonCash := snap.Universe.NumAssets()
	horizon := p.opts.Horizon

	prob := &optimizer.Problem{NumVars: 2 * horizon * n}

	// Warm start at the hold point: zero trades, weights constant.
	prob.Initial = make([]float64, prob.NumVars)
	for k := 0; k < horizon; k++ {
		copy(prob.Initial[(2*k+1)*n:(2*k+2)*n], w)
	}

	discount := 1.0

	for k := 0; k < horizon; k++ {
		zOff := 2 * k * n
		wOff := zOff + n

		zNonCash := indexRange(zOff, nonCash)
		wNonCash := indexRange(wOff, nonCash)

		// Self-financing: the step's trade weights sum to zero.
		sum := make([]optimizer.Entry, n)
		for i := 0; i < n; i++ {
			sum[i] = optimizer.Entry{Index: zOff + i, Coeff: 1}
		}

		prob.Equalities = append(prob.Equalities, optimizer.LinearConstraint{Coeffs: sum})

		// Dynamics: w+_k = w+_{k-1} + z_k, with the current weights
		// seeding the recursion.
		for i := 0; i < n; i++ {
			constraint := optimizer.LinearConstraint{
				Coeffs: []optimizer.Entry{
					{Index: wOff + i, Coeff: 1},
					{Index: zOff + i, Coeff: -1},
				},
			}

			if k == 0 {
				constraint.Bound = w[i]
			} else {
				constraint.Coeffs = append(constraint.Coeffs,
					optimizer.Entry{Index: (2*k-1)*n + i, Coeff: -1})
			}

			prob.Equalities = append(prob.Equalities, constraint)
		}

		if err := p.addStepObjective(prob, bundle, snap, v, discount, zNonCash, wNonCash, wOff, n); err != nil {
			return nil, err
		}

		p.opts.Constraints.apply(prob, zNonCash, wNonCash)

		discount *= p.opts.discount()
	}

	if p.opts.TerminalWeights.IsSome() {
		target := p.opts.TerminalWeights.Unwrap()
		if len(target) != n {
			return nil, types.NewDataError("terminal weights have %d entries, universe has %d members", len(target), n)
		}

		wOff := (2*horizon - 1) * n
		for i := 0; i < n; i++ {
			prob.Equalities = append(prob.Equalities, optimizer.LinearConstraint{
				Coeffs: []optimizer.Entry{{Index: wOff + i, Coeff: 1}},
				Bound:  target[i],
			})
		}
	}

	return prob, nil
}

func (p *MultiPeriodOptimization) addStepObjective(
	prob *optimizer.Problem,
	bundle *forecast.Bundle,
	snap *marketdata.Snapshot,
	v float64,
	discount float64,
	zNonCash, wNonCash []int,
	wOff, n int,
) error {
	// Expected return, maximized, so negated for the minimizer. The cash
	// column keeps the cash drag in the objective.
	ret := make([]optimizer.Entry, n)
	for i := 0; i < n; i++ {
		ret[i] = optimizer.Entry{Index: wOff + i, Coeff: -discount * bundle.ExpectedReturns[i]}
	}

	prob.Objective = append(prob.Objective, optimizer.Linear{Coeffs: ret})

	if p.opts.RiskAversion > 0 {
		prob.Objective = append(prob.Objective, optimizer.Quadratic{
			Indices: wNonCash,
			Q:       bundle.Covariance,
			Weight:  discount * p.opts.RiskAversion,
		})

		// Risk is measured against the benchmark: (w+ - b)'Σ(w+ - b)
		// expands into the quadratic above plus this linear part (the
		// constant is irrelevant to the argmin). The default all-cash
		// benchmark contributes nothing.
		if p.opts.Benchmark.IsSome() {
			bench := p.opts.Benchmark.Unwrap()
			if len(bench) != n {
				return types.NewDataError("benchmark weights have %d entries, universe has %d members", len(bench), n)
			}

			cross := make([]optimizer.Entry, len(wNonCash))

			for i, idx := range wNonCash {
				sigmaB := 0.0
				for j := 0; j < len(wNonCash); j++ {
					sigmaB += bundle.Covariance.At(i, j) * bench[j]
				}

				cross[i] = optimizer.Entry{Index: idx, Coeff: -2 * discount * p.opts.RiskAversion * sigmaB}
			}

			prob.Objective = append(prob.Objective, optimizer.Linear{Coeffs: cross})
		}
	}

	tcostTerms, err := p.tcost.Surrogate(zNonCash, wNonCash, snap, v)
	if err != nil {
		return err
	}

	hcostTerms, err := p.hcost.Surrogate(zNonCash, wNonCash, snap, v)
	if err != nil {
		return err
	}

	for _, term := range append(tcostTerms, hcostTerms...) {
		prob.Objective = append(prob.Objective, optimizer.Scaled{Term: term, Factor: discount})
	}

	return nil
}

func indexRange(offset, count int) []int {
	out := make([]int, count)
	for i := range out {
		out[i] = offset + i
	}

	return out
}

// resolveSolveFailure maps a non-optimal solver outcome to the configured
// fallback: either the period fails with a typed error, or the policy
// degrades to a hold trade and the failure is logged.
func resolveSolveFailure(log *logger.Logger, name string, fallback Fallback, period int, sol *optimizer.Solution, size int) (types.Trade, error) {
	var cause error

	switch sol.Status {
	case optimizer.StatusInfeasible:
		cause = fmt.Errorf("policy %s at period %d: %w", name, period, types.ErrInfeasible)
	case optimizer.StatusUnbounded:
		cause = fmt.Errorf("policy %s at period %d: %w", name, period, types.ErrUnbounded)
	default:
		// Context cancellation is the caller stopping the run, not a
		// solver failure; it propagates past any fallback.
		if errors.Is(sol.Err, context.Canceled) || errors.Is(sol.Err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("policy %s cancelled at period %d: %w", name, period, sol.Err)
		}

		kind := types.SolverErrorNumerical
		if errors.Is(sol.Err, optimizer.ErrSolveTimeout) {
			kind = types.SolverErrorTimeout
		}

		cause = &types.SolverError{Kind: kind, Err: sol.Err}
	}

	if fallback == FallbackHold && types.IsRecoverable(cause) {
		log.Warn("Optimization failed, falling back to hold",
			zap.String("policy", name),
			zap.Int("period", period),
			zap.String("status", string(sol.Status)),
			zap.Error(cause),
		)

		return types.ZeroTrade(size), nil
	}

	return nil, cause
}
