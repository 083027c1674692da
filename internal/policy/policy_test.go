package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
	"gonum.org/v1/gonum/mat"

	"github.com/jxwng/cvxportfolio/internal/costs"
	"github.com/jxwng/cvxportfolio/internal/forecast"
	"github.com/jxwng/cvxportfolio/internal/logger"
	"github.com/jxwng/cvxportfolio/internal/marketdata"
	"github.com/jxwng/cvxportfolio/internal/optimizer"
	"github.com/jxwng/cvxportfolio/internal/types"
)

type PolicyTestSuite struct {
	suite.Suite

	snap  *marketdata.Snapshot
	state types.PortfolioState
}

func TestPolicySuite(t *testing.T) {
	suite.Run(t, new(PolicyTestSuite))
}

func (suite *PolicyTestSuite) SetupTest() {
	universe := types.NewUniverse([]string{"AAPL", "GOOG"}, "")

	// Mildly varying history so the covariance estimate is not degenerate.
	past := mat.NewDense(10, 3, nil)
	for t := 0; t < 10; t++ {
		past.Set(t, 0, 0.001+0.01*float64(t%3-1))
		past.Set(t, 1, 0.002-0.008*float64(t%2))
		past.Set(t, 2, 0.0001)
	}

	suite.snap = &marketdata.Snapshot{
		Period:         10,
		Time:           time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC),
		Universe:       universe,
		PastReturns:    past,
		CurrentVolumes: []float64{1e8, 2e8},
	}

	suite.state = types.PortfolioState{
		Period:   10,
		Holdings: []float64{200, 300, 500},
	}
}

func (suite *PolicyTestSuite) TestHoldProposesZeroTrade() {
	u, err := NewHold().ProposeTrade(context.Background(), suite.state, suite.snap)

	suite.Require().NoError(err)
	suite.True(u.IsZero())
}

func (suite *PolicyTestSuite) TestUniformRebalancesToEqualWeights() {
	u, err := NewUniform().ProposeTrade(context.Background(), suite.state, suite.snap)
	suite.Require().NoError(err)

	// Target 50/50 on the assets, nothing in cash, from 20/30/50.
	suite.InDelta(300, u[0], 1e-9)
	suite.InDelta(200, u[1], 1e-9)
	suite.InDelta(-500, u[2], 1e-9)
}

func (suite *PolicyTestSuite) TestUniformWithLeverage() {
	p := &Uniform{Leverage: 0.5}

	u, err := p.ProposeTrade(context.Background(), suite.state, suite.snap)
	suite.Require().NoError(err)

	// Target 25/25/50.
	suite.InDelta(50, u[0], 1e-9)
	suite.InDelta(-50, u[1], 1e-9)
	suite.InDelta(0, u[2], 1e-9)
}

func (suite *PolicyTestSuite) TestFixedWeightsValidatesLength() {
	p := NewFixedWeights([]float64{0.5, 0.5})

	_, err := p.ProposeTrade(context.Background(), suite.state, suite.snap)

	var dataErr *types.DataError
	suite.ErrorAs(err, &dataErr)
}

func (suite *PolicyTestSuite) newOptimizationInputs() (forecast.Model, costs.Model, costs.Model, optimizer.Solver) {
	forecaster := forecast.NewHistoricalMeanVariance()
	tcost := costs.NewTransactionCost(10, 0)
	hcost := costs.NewHoldingCost(5)
	solver := optimizer.NewGonumSolver(logger.NewNopLogger())

	return forecaster, tcost, hcost, solver
}

func (suite *PolicyTestSuite) TestMultiPeriodWithHorizonOneMatchesSinglePeriod() {
	opts := OptimizationOptions{
		Horizon:      1,
		RiskAversion: 5,
		Constraints: Constraints{
			LongOnly:      true,
			LeverageLimit: optional.Some(1.0),
		},
	}

	forecaster, tcost, hcost, solver := suite.newOptimizationInputs()

	mpo, err := NewMultiPeriodOptimization(opts, forecaster, tcost, hcost, solver, logger.NewNopLogger())
	suite.Require().NoError(err)

	spo, err := NewSinglePeriodOptimization(opts, forecaster, tcost, hcost, solver, logger.NewNopLogger())
	suite.Require().NoError(err)

	uMPO, err := mpo.ProposeTrade(context.Background(), suite.state, suite.snap)
	suite.Require().NoError(err)

	uSPO, err := spo.ProposeTrade(context.Background(), suite.state, suite.snap)
	suite.Require().NoError(err)

	suite.Require().Len(uMPO, len(uSPO))

	for i := range uMPO {
		suite.InDelta(uSPO[i], uMPO[i], 1e-8)
	}
}

func (suite *PolicyTestSuite) TestMultiPeriodHorizonThree() {
	opts := OptimizationOptions{
		Horizon:      3,
		RiskAversion: 5,
		Discount:     0.9,
		Constraints:  Constraints{LongOnly: true, LeverageLimit: optional.Some(1.0)},
	}

	forecaster, tcost, hcost, solver := suite.newOptimizationInputs()

	mpo, err := NewMultiPeriodOptimization(opts, forecaster, tcost, hcost, solver, logger.NewNopLogger())
	suite.Require().NoError(err)

	u, err := mpo.ProposeTrade(context.Background(), suite.state, suite.snap)
	suite.Require().NoError(err)
	suite.Len(u, 3)

	// The executed trade is the first horizon step only, and it cannot
	// exceed the leverage budget in currency terms.
	suite.LessOrEqual(u.GrossNonCash(), 1100.0)
}

func (suite *PolicyTestSuite) TestInfeasibleConstraintsFailThePeriod() {
	// Zero leverage budget combined with a forced short weight cannot be
	// satisfied.
	opts := OptimizationOptions{
		Horizon:      1,
		RiskAversion: 1,
		Constraints: Constraints{
			LeverageLimit: optional.Some(0.0),
			MaxWeight:     optional.Some(-0.1),
		},
	}

	forecaster, tcost, hcost, solver := suite.newOptimizationInputs()

	mpo, err := NewMultiPeriodOptimization(opts, forecaster, tcost, hcost, solver, logger.NewNopLogger())
	suite.Require().NoError(err)

	_, err = mpo.ProposeTrade(context.Background(), suite.state, suite.snap)
	suite.ErrorIs(err, types.ErrInfeasible)
}

func (suite *PolicyTestSuite) TestInfeasibleWithFallbackHoldsInstead() {
	opts := OptimizationOptions{
		Horizon:      1,
		RiskAversion: 1,
		Fallback:     FallbackHold,
		Constraints: Constraints{
			LeverageLimit: optional.Some(0.0),
			MaxWeight:     optional.Some(-0.1),
		},
	}

	forecaster, tcost, hcost, solver := suite.newOptimizationInputs()

	mpo, err := NewMultiPeriodOptimization(opts, forecaster, tcost, hcost, solver, logger.NewNopLogger())
	suite.Require().NoError(err)

	u, err := mpo.ProposeTrade(context.Background(), suite.state, suite.snap)
	suite.Require().NoError(err)
	suite.True(u.IsZero())
}

// stubSolver returns a canned solution, for exercising the status mapping
// without a numerical solve.
type stubSolver struct {
	sol *optimizer.Solution
}

func (s stubSolver) Solve(_ context.Context, _ *optimizer.Problem) (*optimizer.Solution, error) {
	return s.sol, nil
}

func (suite *PolicyTestSuite) TestSolverFailureMapping() {
	forecaster, tcost, hcost, _ := suite.newOptimizationInputs()
	opts := OptimizationOptions{Horizon: 1, RiskAversion: 1}

	cases := []struct {
		name   string
		sol    *optimizer.Solution
		target error
	}{
		{"unbounded", &optimizer.Solution{Status: optimizer.StatusUnbounded}, types.ErrUnbounded},
		{"infeasible", &optimizer.Solution{Status: optimizer.StatusInfeasible}, types.ErrInfeasible},
	}

	for _, tc := range cases {
		mpo, err := NewMultiPeriodOptimization(opts, forecaster, tcost, hcost, stubSolver{sol: tc.sol}, logger.NewNopLogger())
		suite.Require().NoError(err)

		_, err = mpo.ProposeTrade(context.Background(), suite.state, suite.snap)
		suite.ErrorIs(err, tc.target, tc.name)
	}
}

func (suite *PolicyTestSuite) TestSolverTimeoutBecomesSolverError() {
	forecaster, tcost, hcost, _ := suite.newOptimizationInputs()
	opts := OptimizationOptions{Horizon: 1, RiskAversion: 1}

	solver := stubSolver{sol: &optimizer.Solution{
		Status: optimizer.StatusError,
		Err:    optimizer.ErrSolveTimeout,
	}}

	mpo, err := NewMultiPeriodOptimization(opts, forecaster, tcost, hcost, solver, logger.NewNopLogger())
	suite.Require().NoError(err)

	_, err = mpo.ProposeTrade(context.Background(), suite.state, suite.snap)

	var solverErr *types.SolverError
	suite.Require().True(errors.As(err, &solverErr))
	suite.Equal(types.SolverErrorTimeout, solverErr.Kind)
}

func (suite *PolicyTestSuite) TestCancellationBypassesFallback() {
	forecaster, tcost, hcost, _ := suite.newOptimizationInputs()
	opts := OptimizationOptions{Horizon: 1, RiskAversion: 1, Fallback: FallbackHold}

	solver := stubSolver{sol: &optimizer.Solution{
		Status: optimizer.StatusError,
		Err:    context.Canceled,
	}}

	mpo, err := NewMultiPeriodOptimization(opts, forecaster, tcost, hcost, solver, logger.NewNopLogger())
	suite.Require().NoError(err)

	// A cancelled solve must stop the run, never degrade to a hold trade.
	u, err := mpo.ProposeTrade(context.Background(), suite.state, suite.snap)
	suite.ErrorIs(err, context.Canceled)
	suite.Nil(u)
}

func (suite *PolicyTestSuite) TestNonPositiveValueRejected() {
	forecaster, tcost, hcost, solver := suite.newOptimizationInputs()

	mpo, err := NewMultiPeriodOptimization(
		OptimizationOptions{Horizon: 1}, forecaster, tcost, hcost, solver, logger.NewNopLogger())
	suite.Require().NoError(err)

	broke := types.PortfolioState{Holdings: []float64{100, -300, 100}}

	_, err = mpo.ProposeTrade(context.Background(), broke, suite.snap)

	var dataErr *types.DataError
	suite.ErrorAs(err, &dataErr)
}

func (suite *PolicyTestSuite) TestInvalidOptions() {
	forecaster, tcost, hcost, solver := suite.newOptimizationInputs()

	_, err := NewMultiPeriodOptimization(
		OptimizationOptions{Horizon: 0}, forecaster, tcost, hcost, solver, logger.NewNopLogger())
	suite.Error(err)

	_, err = NewSinglePeriodOptimization(
		OptimizationOptions{RiskAversion: -1}, forecaster, tcost, hcost, solver, logger.NewNopLogger())
	suite.Error(err)
}
