package policy

import (
	"github.com/moznion/go-optional"

	"github.com/jxwng/cvxportfolio/internal/optimizer"
)

// Constraints are the portfolio constraints imposed on every step of an
// optimization policy's planning horizon.
type Constraints struct {
	// LeverageLimit bounds the gross non-cash exposure relative to the
	// portfolio value.
	LeverageLimit optional.Option[float64] `yaml:"leverage_limit"`
	// LongOnly forbids negative non-cash positions.
	LongOnly bool `yaml:"long_only"`
	// MinWeight and MaxWeight bound every non-cash post-trade weight.
	MinWeight optional.Option[float64] `yaml:"min_weight"`
	MaxWeight optional.Option[float64] `yaml:"max_weight"`
	// TurnoverLimit caps the per-period traded fraction of the portfolio,
	// ||z_{1:n}||_1 / 2.
	TurnoverLimit optional.Option[float64] `yaml:"turnover_limit"`
}

// apply adds the configured constraints for one horizon step. zIdx and
// wPlusIdx are the optimizer variable indices of the step's trade weights
// and post-trade weights, non-cash assets only.
func (c Constraints) apply(prob *optimizer.Problem, zIdx, wPlusIdx []int) {
	if c.LongOnly {
		for _, idx := range wPlusIdx {
			prob.Inequality = append(prob.Inequality, optimizer.LinearConstraint{
				Coeffs: []optimizer.Entry{{Index: idx, Coeff: -1}},
				Bound:  0,
			})
		}
	}

	if c.MaxWeight.IsSome() {
		bound := c.MaxWeight.Unwrap()
		for _, idx := range wPlusIdx {
			prob.Inequality = append(prob.Inequality, optimizer.LinearConstraint{
				Coeffs: []optimizer.Entry{{Index: idx, Coeff: 1}},
				Bound:  bound,
			})
		}
	}

	if c.MinWeight.IsSome() {
		bound := c.MinWeight.Unwrap()
		for _, idx := range wPlusIdx {
			prob.Inequality = append(prob.Inequality, optimizer.LinearConstraint{
				Coeffs: []optimizer.Entry{{Index: idx, Coeff: -1}},
				Bound:  -bound,
			})
		}
	}

	if c.LeverageLimit.IsSome() {
		coeffs := make([]optimizer.Entry, len(wPlusIdx))
		for i, idx := range wPlusIdx {
			coeffs[i] = optimizer.Entry{Index: idx, Coeff: 1}
		}

		prob.Convex = append(prob.Convex, optimizer.L1Bound{
			Coeffs: coeffs,
			Bound:  c.LeverageLimit.Unwrap(),
		})
	}

	if c.TurnoverLimit.IsSome() {
		coeffs := make([]optimizer.Entry, len(zIdx))
		for i, idx := range zIdx {
			coeffs[i] = optimizer.Entry{Index: idx, Coeff: 0.5}
		}

		prob.Convex = append(prob.Convex, optimizer.L1Bound{
			Coeffs: coeffs,
			Bound:  c.TurnoverLimit.Unwrap(),
		})
	}
}
