package engine

import (
	"context"
	"sync"

	"github.com/jxwng/cvxportfolio/internal/backtest/engine"
	"github.com/jxwng/cvxportfolio/internal/marketdata"
	"github.com/jxwng/cvxportfolio/internal/policy"
	"github.com/jxwng/cvxportfolio/internal/types"
)

// RunRequest describes one backtest for RunAll.
type RunRequest struct {
	// Name labels the run in the outcome.
	Name string
	// Config is the YAML engine configuration.
	Config string
	// Policy, when non-nil, overrides the policy the config selects.
	Policy policy.Policy
	// ResultsFolder enables persistence for this run when non-empty.
	ResultsFolder string
}

// RunOutcome is the result of one RunAll backtest.
type RunOutcome struct {
	Name       string
	Trajectory *types.Trajectory
	Err        error
}

// RunAll runs independent backtests concurrently against one shared provider.
// Each run gets its own engine, so no state is shared beyond the read-only
// market data. Outcomes are returned in request order.
func RunAll(ctx context.Context, provider marketdata.Provider, requests []RunRequest) []RunOutcome {
	outcomes := make([]RunOutcome, len(requests))

	var wg sync.WaitGroup

	for i, req := range requests {
		wg.Add(1)

		go func(i int, req RunRequest) {
			defer wg.Done()

			outcomes[i] = RunOutcome{Name: req.Name}
			outcomes[i].Trajectory, outcomes[i].Err = runOne(ctx, provider, req)
		}(i, req)
	}

	wg.Wait()

	return outcomes
}

func runOne(ctx context.Context, provider marketdata.Provider, req RunRequest) (*types.Trajectory, error) {
	e := NewSimulatorV1()

	if err := e.Initialize(req.Config); err != nil {
		return nil, err
	}

	if err := e.SetProvider(provider); err != nil {
		return nil, err
	}

	if req.Policy != nil {
		if err := e.SetPolicy(req.Policy); err != nil {
			return nil, err
		}
	}

	if req.ResultsFolder != "" {
		if err := e.SetResultsFolder(req.ResultsFolder); err != nil {
			return nil, err
		}
	}

	return e.Run(ctx, engine.LifecycleCallbacks{})
}
