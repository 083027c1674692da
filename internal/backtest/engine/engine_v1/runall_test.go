package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/jxwng/cvxportfolio/internal/backtest/engine"
	"github.com/jxwng/cvxportfolio/internal/policy"
	"github.com/jxwng/cvxportfolio/mocks"
)

type RunAllTestSuite struct {
	suite.Suite
}

func TestRunAllSuite(t *testing.T) {
	suite.Run(t, new(RunAllTestSuite))
}

func (suite *RunAllTestSuite) TestOutcomesMatchSerialRuns() {
	provider, err := mocks.ConstantReturns([]string{"AAPL", "GOOG"}, 12, 0.01, 0.0001)
	suite.Require().NoError(err)

	holdConfig := `
initial_capital: 1000000
min_history: 1
policy:
  type: hold
`
	uniformConfig := `
initial_capital: 1000000
min_history: 1
policy:
  type: uniform
`

	requests := []RunRequest{
		{Name: "hold", Config: holdConfig},
		{Name: "uniform", Config: uniformConfig},
		{Name: "half", Config: holdConfig, Policy: &policy.Uniform{Leverage: 0.5}},
	}

	outcomes := RunAll(context.Background(), provider, requests)
	suite.Require().Len(outcomes, 3)

	// Outcomes come back in request order and each run succeeds on its own
	// engine.
	for i, outcome := range outcomes {
		suite.Equal(requests[i].Name, outcome.Name)
		suite.Require().NoError(outcome.Err, outcome.Name)
		suite.True(outcome.Trajectory.Completed)
		suite.Equal(11, outcome.Trajectory.Len())
	}

	// The same configs run one at a time give identical final holdings;
	// the data is deterministic and the runs share nothing.
	for i, req := range requests {
		e := NewSimulatorV1()
		suite.Require().NoError(e.Initialize(req.Config))
		suite.Require().NoError(e.SetProvider(provider))

		if req.Policy != nil {
			suite.Require().NoError(e.SetPolicy(req.Policy))
		}

		traj, err := e.Run(context.Background(), engine.LifecycleCallbacks{})
		suite.Require().NoError(err)

		suite.Equal(traj.FinalHoldings, outcomes[i].Trajectory.FinalHoldings, req.Name)
	}
}

func (suite *RunAllTestSuite) TestBadConfigSurfacesInItsOutcome() {
	provider, err := mocks.ConstantReturns([]string{"AAPL"}, 5, 0.01, 0)
	suite.Require().NoError(err)

	requests := []RunRequest{
		{Name: "good", Config: "initial_capital: 1000\npolicy:\n  type: hold\n"},
		{Name: "bad", Config: "initial_capital: -5\npolicy:\n  type: hold\n"},
	}

	outcomes := RunAll(context.Background(), provider, requests)
	suite.Require().Len(outcomes, 2)

	suite.NoError(outcomes[0].Err)
	suite.Error(outcomes[1].Err)
	suite.Nil(outcomes[1].Trajectory)
}
