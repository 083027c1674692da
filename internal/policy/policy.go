// Package policy contains the trading policies the simulator can back-test.
// A policy is a pure function of the current portfolio state and the market
// snapshot: it proposes a trade and never touches simulator state, which
// keeps every period's decision independently testable and rules out
// look-ahead through hidden state.
package policy

import (
	"context"

	"github.com/jxwng/cvxportfolio/internal/marketdata"
	"github.com/jxwng/cvxportfolio/internal/types"
)

// Policy proposes a trade for the period described by the snapshot. The cash
// leg of the returned trade is advisory; the simulator recomputes it from
// the self-financing condition before executing.
type Policy interface {
	// Name identifies the policy in logs and reports.
	Name() string
	// ProposeTrade returns the trade vector u for the snapshot's period.
	ProposeTrade(ctx context.Context, state types.PortfolioState, snap *marketdata.Snapshot) (types.Trade, error)
}

// Hold never trades.
type Hold struct{}

// NewHold creates the do-nothing policy.
func NewHold() *Hold {
	return &Hold{}
}

// Name implements Policy.
func (p *Hold) Name() string {
	return "Hold"
}

// ProposeTrade implements Policy.
func (p *Hold) ProposeTrade(_ context.Context, state types.PortfolioState, _ *marketdata.Snapshot) (types.Trade, error) {
	return types.ZeroTrade(len(state.Holdings)), nil
}

// Uniform rebalances to an equal weight on every non-cash asset each period,
// scaled by the configured leverage; the remainder sits in cash.
type Uniform struct {
	// Leverage of the allocation; 1 invests the whole portfolio.
	Leverage float64
}

// NewUniform creates a fully invested equal-weight policy.
func NewUniform() *Uniform {
	return &Uniform{Leverage: 1}
}

// Name implements Policy.
func (p *Uniform) Name() string {
	return "Uniform"
}

// ProposeTrade implements Policy.
func (p *Uniform) ProposeTrade(_ context.Context, state types.PortfolioState, snap *marketdata.Snapshot) (types.Trade, error) {
	nonCash := snap.Universe.NumAssets()
	target := make([]float64, snap.Universe.Size())

	for i := 0; i < nonCash; i++ {
		target[i] = p.Leverage / float64(nonCash)
	}

	target[snap.Universe.CashIndex()] = 1 - p.Leverage

	return tradeToTarget(state, target), nil
}

// FixedWeights rebalances to the given target weight vector each period.
type FixedWeights struct {
	// Target weights per universe member, cash last, summing to one.
	Target []float64
}

// NewFixedWeights creates a fixed-target rebalancing policy.
func NewFixedWeights(target []float64) *FixedWeights {
	return &FixedWeights{Target: target}
}

// Name implements Policy.
func (p *FixedWeights) Name() string {
	return "FixedWeights"
}

// ProposeTrade implements Policy.
func (p *FixedWeights) ProposeTrade(_ context.Context, state types.PortfolioState, snap *marketdata.Snapshot) (types.Trade, error) {
	if len(p.Target) != snap.Universe.Size() {
		return nil, types.NewDataError(
			"target weights have %d entries, universe has %d members", len(p.Target), snap.Universe.Size())
	}

	return tradeToTarget(state, p.Target), nil
}

func tradeToTarget(state types.PortfolioState, target []float64) types.Trade {
	v := state.Value()
	w := state.Weights()
	u := make(types.Trade, len(target))

	for i := range target {
		u[i] = (target[i] - w[i]) * v
	}

	return u
}
