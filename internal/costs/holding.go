package costs

import (
	"github.com/jxwng/cvxportfolio/internal/marketdata"
	"github.com/jxwng/cvxportfolio/internal/optimizer"
	"github.com/jxwng/cvxportfolio/internal/types"
)

// HoldingCost charges a per-period borrow rate on short (negative) non-cash
// positions:
//
//	cost(h) = rate * sum_i max(0, -h_i)
//
// Zero or long positions cost nothing by construction of the rate schedule.
type HoldingCost struct {
	borrowRateBps float64
}

// NewHoldingCost builds the model from a per-period borrow rate in basis
// points.
func NewHoldingCost(borrowRateBps float64) *HoldingCost {
	return &HoldingCost{borrowRateBps: borrowRateBps}
}

// Name implements Model.
func (c *HoldingCost) Name() string {
	return "HoldingCost"
}

// Realized implements Model. The charge applies to the post-trade holdings,
// since those are the positions carried over the period.
func (c *HoldingCost) Realized(postTrade []float64, _ types.Trade, _ *marketdata.Snapshot) (float64, []float64, error) {
	rate := c.borrowRateBps / 1e4
	total := 0.0

	for _, h := range postTrade[:len(postTrade)-1] {
		if h < 0 {
			total += -h * rate
		}
	}

	return total, nil, nil
}

// Surrogate implements Model: rate * sum_i max(0, -w+_i) in weight space.
func (c *HoldingCost) Surrogate(_, wPlusIdx []int, _ *marketdata.Snapshot, _ float64) ([]optimizer.Term, error) {
	rate := c.borrowRateBps / 1e4
	if rate == 0 {
		return nil, nil
	}

	coeffs := make([]optimizer.Entry, len(wPlusIdx))
	for i, idx := range wPlusIdx {
		coeffs[i] = optimizer.Entry{Index: idx, Coeff: rate}
	}

	return []optimizer.Term{optimizer.NegativePart{Coeffs: coeffs}}, nil
}

// ZeroHoldingCost realizes no holding cost at all.
type ZeroHoldingCost struct{}

// NewZeroHoldingCost creates a free-carry cost model.
func NewZeroHoldingCost() *ZeroHoldingCost {
	return &ZeroHoldingCost{}
}

// Name implements Model.
func (c *ZeroHoldingCost) Name() string {
	return "HoldingCost"
}

// Realized implements Model.
func (c *ZeroHoldingCost) Realized(_ []float64, _ types.Trade, _ *marketdata.Snapshot) (float64, []float64, error) {
	return 0, nil, nil
}

// Surrogate implements Model.
func (c *ZeroHoldingCost) Surrogate(_, _ []int, _ *marketdata.Snapshot, _ float64) ([]optimizer.Term, error) {
	return nil, nil
}
