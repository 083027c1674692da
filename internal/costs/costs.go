// Package costs implements the simulator's cost models. Each model both
// realizes an exact cost against true market data at a period and exposes a
// convex surrogate of itself for use inside the policy optimization, where
// only forecasted conditions are available.
package costs

import (
	"github.com/jxwng/cvxportfolio/internal/marketdata"
	"github.com/jxwng/cvxportfolio/internal/optimizer"
	"github.com/jxwng/cvxportfolio/internal/types"
)

// Model is one cost charged by the simulator at every period.
type Model interface {
	// Name identifies the cost in records and reports.
	Name() string
	// Realized computes the exact cost in currency units. postTrade is
	// the post-trade holdings vector h+u (cash last), trade the executed
	// trade. The per-asset slice attributes the cost over the non-cash
	// assets; it may be nil when the model has no per-asset breakdown.
	Realized(postTrade []float64, trade types.Trade, snap *marketdata.Snapshot) (float64, []float64, error)
	// Surrogate returns convex objective terms approximating the cost in
	// weight space. zIdx and wPlusIdx are the optimizer variable indices
	// of the trade weights and post-trade weights of one horizon step
	// (non-cash assets only); portfolioValue converts between currency
	// and weight units.
	Surrogate(zIdx, wPlusIdx []int, snap *marketdata.Snapshot, portfolioValue float64) ([]optimizer.Term, error)
}

// TransactionKind selects a transaction-cost model in configuration.
type TransactionKind string

const (
	TransactionLinearImpact TransactionKind = "linear_impact"
	TransactionZero         TransactionKind = "zero"
)

// HoldingKind selects a holding-cost model in configuration.
type HoldingKind string

const (
	HoldingBorrow HoldingKind = "borrow"
	HoldingZero   HoldingKind = "zero"
)

// Params are the cost-model rate parameters from the engine configuration.
type Params struct {
	// SpreadBps is the full bid-ask spread in basis points; half of it is
	// charged on each unit traded.
	SpreadBps float64 `yaml:"spread_bps"`
	// ImpactCoeff scales the 3/2-power market-impact term.
	ImpactCoeff float64 `yaml:"impact_coeff"`
	// BorrowRateBps is the per-period borrow charge on short positions,
	// in basis points.
	BorrowRateBps float64 `yaml:"borrow_rate_bps"`
}

// GetTransactionCost maps a configured kind to a model.
func GetTransactionCost(kind TransactionKind, params Params) Model {
	switch kind {
	case TransactionLinearImpact:
		return NewTransactionCost(params.SpreadBps, params.ImpactCoeff)
	case TransactionZero:
		return NewZeroTransactionCost()
	default:
		return NewZeroTransactionCost()
	}
}

// GetHoldingCost maps a configured kind to a model.
func GetHoldingCost(kind HoldingKind, params Params) Model {
	switch kind {
	case HoldingBorrow:
		return NewHoldingCost(params.BorrowRateBps)
	case HoldingZero:
		return NewZeroHoldingCost()
	default:
		return NewZeroHoldingCost()
	}
}
