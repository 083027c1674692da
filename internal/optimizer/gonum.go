package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jxwng/cvxportfolio/internal/logger"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"
)

// ErrSolveTimeout is carried in Solution.Err when the per-solve wall-clock
// budget is exhausted.
var ErrSolveTimeout = errors.New("solve wall-clock budget exhausted")

const (
	defaultFeasTol      = 1e-5
	defaultMaxSolveTime = 30 * time.Second
	penaltyStart        = 1e2
	penaltyGrowth       = 10.0
	penaltyRounds       = 8
	unboundedThreshold  = 1e12
)

// GonumSolver solves the Problem IR with a quadratic-penalty method on top
// of gonum's smooth optimizers: constraints are folded into the objective
// with an increasing penalty weight, each round warm-starting from the
// previous solution. Residuals that refuse to shrink at the largest penalty
// weight mean the constraint set has no feasible point.
type GonumSolver struct {
	logger *logger.Logger
	// FeasTol is the largest constraint residual accepted as feasible.
	FeasTol float64
	// MaxSolveTime bounds the total wall-clock time of one Solve call;
	// exceeding it is reported as a solver error of kind timeout.
	MaxSolveTime time.Duration
}

// NewGonumSolver returns a solver with default tolerances.
func NewGonumSolver(log *logger.Logger) *GonumSolver {
	return &GonumSolver{
		logger:       log,
		FeasTol:      defaultFeasTol,
		MaxSolveTime: defaultMaxSolveTime,
	}
}

// Solve implements Solver.
func (s *GonumSolver) Solve(ctx context.Context, p *Problem) (*Solution, error) {
	if p == nil || p.NumVars <= 0 {
		return nil, fmt.Errorf("optimizer: problem has no variables")
	}

	x := make([]float64, p.NumVars)
	if p.Initial != nil {
		if len(p.Initial) != p.NumVars {
			return nil, fmt.Errorf("optimizer: initial point has %d entries, want %d", len(p.Initial), p.NumVars)
		}

		copy(x, p.Initial)
	}

	deadline := time.Now().Add(s.maxSolveTime())
	mu := penaltyStart

	var lastErr error

	for round := 0; round < penaltyRounds; round++ {
		if err := ctx.Err(); err != nil {
			return &Solution{Status: StatusError, Err: err}, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &Solution{Status: StatusError, Err: ErrSolveTimeout}, nil
		}

		result, err := s.minimizePenalized(p, x, mu, remaining)
		if err != nil {
			lastErr = err

			s.logger.Debug("Penalty round failed",
				zap.Int("round", round),
				zap.Float64("mu", mu),
				zap.Error(err),
			)

			break
		}

		if result.Status == optimize.RuntimeLimit {
			return &Solution{Status: StatusError, Err: ErrSolveTimeout}, nil
		}

		x = result.X

		if s.objectiveValue(p, x) < -unboundedThreshold {
			return &Solution{Status: StatusUnbounded, X: x}, nil
		}

		if s.maxResidual(p, x) <= s.feasTol() {
			break
		}

		mu *= penaltyGrowth
	}

	residual := s.maxResidual(p, x)
	objective := s.objectiveValue(p, x)

	switch {
	case lastErr != nil:
		return &Solution{Status: StatusError, Err: lastErr, X: x, MaxResidual: residual}, nil
	case residual > s.feasTol():
		return &Solution{Status: StatusInfeasible, X: x, MaxResidual: residual}, nil
	default:
		return &Solution{Status: StatusOptimal, X: x, Objective: objective, MaxResidual: residual}, nil
	}
}

func (s *GonumSolver) minimizePenalized(p *Problem, initial []float64, mu float64, budget time.Duration) (*optimize.Result, error) {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return s.penalizedValue(p, x, mu)
		},
		Grad: func(grad, x []float64) {
			s.penalizedGradient(p, grad, x, mu)
		},
	}

	settings := &optimize.Settings{Runtime: budget}

	result, err := optimize.Minimize(problem, initial, settings, &optimize.BFGS{})
	if err == nil && converged(result.Status) {
		return result, nil
	}

	// BFGS line searches occasionally fail on the smoothed l1 terms;
	// retry with a gradient-free method before giving up.
	result, retryErr := optimize.Minimize(problem, initial, settings, &optimize.NelderMead{})
	if retryErr != nil {
		if err != nil {
			return nil, err
		}

		return nil, retryErr
	}

	if !converged(result.Status) && result.Status != optimize.RuntimeLimit {
		return nil, fmt.Errorf("optimizer did not converge: status=%v", result.Status)
	}

	return result, nil
}

func converged(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence, optimize.StepConvergence:
		return true
	default:
		return false
	}
}

func (s *GonumSolver) objectiveValue(p *Problem, x []float64) float64 {
	total := 0.0
	for _, term := range p.Objective {
		total += term.Value(x)
	}

	return total
}

func (s *GonumSolver) penalizedValue(p *Problem, x []float64, mu float64) float64 {
	total := s.objectiveValue(p, x)

	for _, c := range p.Equalities {
		r := c.Residual(x)
		total += mu * r * r
	}

	for _, c := range p.Inequality {
		if r := c.Residual(x); r > 0 {
			total += mu * r * r
		}
	}

	for _, c := range p.Convex {
		if g := c.Value(x); g > 0 {
			total += mu * g * g
		}
	}

	return total
}

func (s *GonumSolver) penalizedGradient(p *Problem, grad, x []float64, mu float64) {
	for i := range grad {
		grad[i] = 0
	}

	for _, term := range p.Objective {
		term.AddGradient(grad, x)
	}

	for _, c := range p.Equalities {
		r := c.Residual(x)
		for _, e := range c.Coeffs {
			grad[e.Index] += 2 * mu * r * e.Coeff
		}
	}

	for _, c := range p.Inequality {
		r := c.Residual(x)
		if r <= 0 {
			continue
		}

		for _, e := range c.Coeffs {
			grad[e.Index] += 2 * mu * r * e.Coeff
		}
	}

	for _, c := range p.Convex {
		g := c.Value(x)
		if g <= 0 {
			continue
		}

		c.AddGradient(grad, x, 2*mu*g)
	}
}

func (s *GonumSolver) maxResidual(p *Problem, x []float64) float64 {
	worst := 0.0

	for _, c := range p.Equalities {
		worst = math.Max(worst, math.Abs(c.Residual(x)))
	}

	for _, c := range p.Inequality {
		worst = math.Max(worst, c.Residual(x))
	}

	for _, c := range p.Convex {
		worst = math.Max(worst, c.Value(x))
	}

	return worst
}

func (s *GonumSolver) feasTol() float64 {
	if s.FeasTol > 0 {
		return s.FeasTol
	}

	return defaultFeasTol
}

func (s *GonumSolver) maxSolveTime() time.Duration {
	if s.MaxSolveTime > 0 {
		return s.MaxSolveTime
	}

	return defaultMaxSolveTime
}
