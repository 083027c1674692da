package costs

import (
	"math"

	"github.com/jxwng/cvxportfolio/internal/marketdata"
	"github.com/jxwng/cvxportfolio/internal/optimizer"
	"github.com/jxwng/cvxportfolio/internal/types"
)

// TransactionCost charges half the bid-ask spread on every unit traded plus
// a 3/2-power market-impact term scaled by the period's currency volume:
//
//	cost(u) = sum_i  (spread/2)|u_i| + b |u_i|^(3/2) / sqrt(V_i)
//
// A zero trade realizes exactly zero cost. The impact term is skipped for
// assets without volume data.
type TransactionCost struct {
	spreadBps   float64
	impactCoeff float64
}

// NewTransactionCost builds the model from a full spread in basis points and
// an impact coefficient.
func NewTransactionCost(spreadBps, impactCoeff float64) *TransactionCost {
	return &TransactionCost{spreadBps: spreadBps, impactCoeff: impactCoeff}
}

// Name implements Model.
func (c *TransactionCost) Name() string {
	return "TransactionCost"
}

// Realized implements Model.
func (c *TransactionCost) Realized(_ []float64, trade types.Trade, snap *marketdata.Snapshot) (float64, []float64, error) {
	nonCash := len(trade) - 1
	perAsset := make([]float64, nonCash)
	halfSpread := c.spreadBps / 2e4
	total := 0.0

	for i := 0; i < nonCash; i++ {
		u := math.Abs(trade[i])
		if u == 0 {
			continue
		}

		cost := halfSpread * u

		if c.impactCoeff > 0 && snap.CurrentVolumes != nil && snap.CurrentVolumes[i] > 0 {
			cost += c.impactCoeff * math.Pow(u, 1.5) / math.Sqrt(snap.CurrentVolumes[i])
		}

		perAsset[i] = cost
		total += cost
	}

	return total, perAsset, nil
}

// Surrogate implements Model. In weight space the dollar cost divided by the
// portfolio value v becomes
//
//	(spread/2)|z_i| + b |z_i|^(3/2) sqrt(v / V_i).
func (c *TransactionCost) Surrogate(zIdx, _ []int, snap *marketdata.Snapshot, portfolioValue float64) ([]optimizer.Term, error) {
	var terms []optimizer.Term

	halfSpread := c.spreadBps / 2e4
	if halfSpread > 0 {
		coeffs := make([]optimizer.Entry, len(zIdx))
		for i, idx := range zIdx {
			coeffs[i] = optimizer.Entry{Index: idx, Coeff: halfSpread}
		}

		terms = append(terms, optimizer.AbsSum{Coeffs: coeffs})
	}

	if c.impactCoeff > 0 && snap.CurrentVolumes != nil {
		coeffs := make([]optimizer.Entry, 0, len(zIdx))

		for i, idx := range zIdx {
			if snap.CurrentVolumes[i] <= 0 {
				continue
			}

			coeffs = append(coeffs, optimizer.Entry{
				Index: idx,
				Coeff: c.impactCoeff * math.Sqrt(portfolioValue/snap.CurrentVolumes[i]),
			})
		}

		if len(coeffs) > 0 {
			terms = append(terms, optimizer.PowerThreeHalves{Coeffs: coeffs})
		}
	}

	return terms, nil
}

// ZeroTransactionCost realizes no transaction cost at all.
type ZeroTransactionCost struct{}

// NewZeroTransactionCost creates a free-trading cost model.
func NewZeroTransactionCost() *ZeroTransactionCost {
	return &ZeroTransactionCost{}
}

// Name implements Model.
func (c *ZeroTransactionCost) Name() string {
	return "TransactionCost"
}

// Realized implements Model.
func (c *ZeroTransactionCost) Realized(_ []float64, trade types.Trade, _ *marketdata.Snapshot) (float64, []float64, error) {
	return 0, make([]float64, len(trade)-1), nil
}

// Surrogate implements Model.
func (c *ZeroTransactionCost) Surrogate(_, _ []int, _ *marketdata.Snapshot, _ float64) ([]optimizer.Term, error) {
	return nil, nil
}
