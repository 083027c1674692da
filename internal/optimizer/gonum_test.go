package optimizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"gonum.org/v1/gonum/mat"

	"github.com/jxwng/cvxportfolio/internal/logger"
)

type GonumSolverTestSuite struct {
	suite.Suite

	solver *GonumSolver
}

func TestGonumSolverSuite(t *testing.T) {
	suite.Run(t, new(GonumSolverTestSuite))
}

func (suite *GonumSolverTestSuite) SetupTest() {
	suite.solver = NewGonumSolver(logger.NewNopLogger())
}

// minimize (x0-1)^2 + (x1+2)^2, unconstrained: optimum at (1, -2).
func (suite *GonumSolverTestSuite) TestUnconstrainedQuadratic() {
	q := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	p := &Problem{
		NumVars: 2,
		Objective: []Term{
			Quadratic{Indices: []int{0, 1}, Q: q, Weight: 1},
			Linear{Coeffs: []Entry{{Index: 0, Coeff: -2}, {Index: 1, Coeff: 4}}},
		},
	}

	sol, err := suite.solver.Solve(context.Background(), p)
	suite.Require().NoError(err)
	suite.Equal(StatusOptimal, sol.Status)
	suite.InDelta(1, sol.X[0], 1e-4)
	suite.InDelta(-2, sol.X[1], 1e-4)
}

// minimize x'x subject to x0+x1 = 1: optimum at (0.5, 0.5).
func (suite *GonumSolverTestSuite) TestEqualityConstrainedQuadratic() {
	q := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	p := &Problem{
		NumVars: 2,
		Objective: []Term{
			Quadratic{Indices: []int{0, 1}, Q: q, Weight: 1},
		},
		Equalities: []LinearConstraint{
			{Coeffs: []Entry{{Index: 0, Coeff: 1}, {Index: 1, Coeff: 1}}, Bound: 1},
		},
	}

	sol, err := suite.solver.Solve(context.Background(), p)
	suite.Require().NoError(err)
	suite.Equal(StatusOptimal, sol.Status)
	suite.InDelta(0.5, sol.X[0], 1e-3)
	suite.InDelta(0.5, sol.X[1], 1e-3)
	suite.LessOrEqual(sol.MaxResidual, suite.solver.FeasTol)
}

// x <= -1 and x >= 1 cannot both hold.
func (suite *GonumSolverTestSuite) TestInfeasible() {
	q := mat.NewSymDense(1, []float64{1})
	p := &Problem{
		NumVars: 1,
		Objective: []Term{
			Quadratic{Indices: []int{0}, Q: q, Weight: 1},
		},
		Inequality: []LinearConstraint{
			{Coeffs: []Entry{{Index: 0, Coeff: 1}}, Bound: -1},
			{Coeffs: []Entry{{Index: 0, Coeff: -1}}, Bound: -1},
		},
	}

	sol, err := suite.solver.Solve(context.Background(), p)
	suite.Require().NoError(err)
	suite.Equal(StatusInfeasible, sol.Status)
	suite.Greater(sol.MaxResidual, suite.solver.FeasTol)
}

// Maximizing the sum inside an l1 ball pushes the solution onto the ball.
func (suite *GonumSolverTestSuite) TestL1BoundBindsAtRadius() {
	p := &Problem{
		NumVars: 2,
		Objective: []Term{
			Linear{Coeffs: []Entry{{Index: 0, Coeff: -1}, {Index: 1, Coeff: -1}}},
		},
		Convex: []ConvexConstraint{
			L1Bound{Coeffs: []Entry{{Index: 0, Coeff: 1}, {Index: 1, Coeff: 1}}, Bound: 0.5},
		},
	}

	sol, err := suite.solver.Solve(context.Background(), p)
	suite.Require().NoError(err)
	suite.Equal(StatusOptimal, sol.Status)
	suite.InDelta(0.5, sol.X[0]+sol.X[1], 5e-3)
}

// An l1 ball of radius zero pins the variables to the origin even when the
// objective pulls away from it.
func (suite *GonumSolverTestSuite) TestL1BoundRadiusZeroPinsToOrigin() {
	p := &Problem{
		NumVars: 2,
		Objective: []Term{
			Linear{Coeffs: []Entry{{Index: 0, Coeff: -1}, {Index: 1, Coeff: -1}}},
		},
		Convex: []ConvexConstraint{
			L1Bound{Coeffs: []Entry{{Index: 0, Coeff: 1}, {Index: 1, Coeff: 1}}, Bound: 0},
		},
	}

	sol, err := suite.solver.Solve(context.Background(), p)
	suite.Require().NoError(err)
	suite.Equal(StatusOptimal, sol.Status)
	suite.InDelta(0, sol.X[0], 1e-4)
	suite.InDelta(0, sol.X[1], 1e-4)
}

func (suite *GonumSolverTestSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &Problem{
		NumVars:   1,
		Objective: []Term{Linear{Coeffs: []Entry{{Index: 0, Coeff: 1}}}},
	}

	sol, err := suite.solver.Solve(ctx, p)
	suite.Require().NoError(err)
	suite.Equal(StatusError, sol.Status)
	suite.ErrorIs(sol.Err, context.Canceled)
}

func (suite *GonumSolverTestSuite) TestMalformedProblem() {
	_, err := suite.solver.Solve(context.Background(), &Problem{NumVars: 0})
	suite.Error(err)

	_, err = suite.solver.Solve(context.Background(), &Problem{NumVars: 2, Initial: []float64{1}})
	suite.Error(err)
}

func (suite *GonumSolverTestSuite) TestWarmStartRespected() {
	// A pure equality system has many optima for the penalty method; the
	// warm start picks the one it converges to.
	p := &Problem{
		NumVars: 2,
		Equalities: []LinearConstraint{
			{Coeffs: []Entry{{Index: 0, Coeff: 1}, {Index: 1, Coeff: 1}}, Bound: 2},
		},
		Initial: []float64{2, 0},
	}

	sol, err := suite.solver.Solve(context.Background(), p)
	suite.Require().NoError(err)
	suite.Equal(StatusOptimal, sol.Status)
	suite.InDelta(2, sol.X[0]+sol.X[1], 1e-3)
}
