// Package optimizer defines a small convex-program representation and the
// black-box solver interface the trading policies build on. Policies assemble
// a Problem; a Solver returns either an optimal assignment or a structured
// failure status. The numerical kernel is deliberately behind the interface
// so it can be swapped without touching policy code.
package optimizer

import (
	"context"
)

// Status classifies the outcome of a solve.
type Status string

const (
	// StatusOptimal means X holds an (approximately) optimal assignment.
	StatusOptimal Status = "optimal"
	// StatusInfeasible means no point satisfies the constraints.
	StatusInfeasible Status = "infeasible"
	// StatusUnbounded means the objective decreases without bound.
	StatusUnbounded Status = "unbounded"
	// StatusError means the numerical method failed or timed out.
	StatusError Status = "error"
)

// Entry is one sparse coefficient of a linear form.
type Entry struct {
	Index int
	Coeff float64
}

// Term is one additive piece of the (minimized) objective.
type Term interface {
	// Value evaluates the term at x.
	Value(x []float64) float64
	// AddGradient accumulates the term's gradient at x into grad.
	AddGradient(grad, x []float64)
}

// LinearConstraint is a sparse affine constraint a·x (==|<=) b.
type LinearConstraint struct {
	Coeffs []Entry
	Bound  float64
}

// Residual returns a·x - b.
func (c LinearConstraint) Residual(x []float64) float64 {
	total := -c.Bound
	for _, e := range c.Coeffs {
		total += e.Coeff * x[e.Index]
	}

	return total
}

// ConvexConstraint is a (possibly non-smooth) convex constraint g(x) <= 0
// with a subgradient.
type ConvexConstraint interface {
	// Value evaluates g at x; feasible points have Value <= 0.
	Value(x []float64) float64
	// AddGradient accumulates scale * ∂g(x) into grad.
	AddGradient(grad, x []float64, scale float64)
}

// Problem is a convex program: minimize the sum of the objective terms over
// x ∈ R^NumVars subject to the constraints.
type Problem struct {
	NumVars     int
	Objective   []Term
	Equalities  []LinearConstraint
	Inequality  []LinearConstraint
	Convex      []ConvexConstraint
	// Initial is the warm-start point; the zero vector when nil.
	Initial []float64
}

// Solution is the outcome of one solve.
type Solution struct {
	Status Status
	// X is the variable assignment; valid only when Status is optimal.
	X []float64
	// Objective is the attained objective value.
	Objective float64
	// MaxResidual is the largest constraint violation at X.
	MaxResidual float64
	// Err carries the underlying cause when Status is StatusError.
	Err error
}

// Solver is the black-box convex solver consumed by policies. Solve returns
// a non-nil Solution whose Status encodes infeasibility, unboundedness or
// numerical failure; the error return is reserved for malformed problems.
type Solver interface {
	Solve(ctx context.Context, p *Problem) (*Solution, error)
}
