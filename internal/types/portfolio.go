package types

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// PortfolioState is the holdings vector at the start of a period, in currency
// units, cash included as the last element. The simulator is the single
// writer; policies receive a copy.
type PortfolioState struct {
	// Period is the index into the trading calendar.
	Period int
	// Time is the timestamp of the period.
	Time time.Time
	// Holdings in currency units, one per universe member, cash last.
	Holdings []float64
}

// Value is the total portfolio value (NAV), the sum of all holdings.
func (s PortfolioState) Value() float64 {
	return floats.Sum(s.Holdings)
}

// Weights returns holdings divided by total value.
func (s PortfolioState) Weights() []float64 {
	v := s.Value()
	w := make([]float64, len(s.Holdings))

	for i, h := range s.Holdings {
		w[i] = h / v
	}

	return w
}

// Copy returns a deep copy, used to hand policies a snapshot they cannot
// mutate through.
func (s PortfolioState) Copy() PortfolioState {
	h := make([]float64, len(s.Holdings))
	copy(h, s.Holdings)

	return PortfolioState{Period: s.Period, Time: s.Time, Holdings: h}
}

// Trade is the vector of currency amounts traded per universe member, cash
// leg last. Policies leave the cash leg to be finalized by the simulator
// under the self-financing condition.
type Trade []float64

// ZeroTrade returns the all-zero trade for a universe of the given size.
func ZeroTrade(size int) Trade {
	return make(Trade, size)
}

// IsZero reports whether no asset is traded.
func (t Trade) IsZero() bool {
	for _, u := range t {
		if u != 0 {
			return false
		}
	}

	return true
}

// GrossNonCash is the l1 norm of the non-cash trade legs.
func (t Trade) GrossNonCash() float64 {
	total := 0.0
	for _, u := range t[:len(t)-1] {
		total += math.Abs(u)
	}

	return total
}

// CostRecord holds the realized costs charged at one period, in currency
// units, with a per-asset attribution of the transaction cost.
type CostRecord struct {
	// Transaction is the total realized transaction cost.
	Transaction float64 `yaml:"transaction"`
	// Holding is the total realized holding cost.
	Holding float64 `yaml:"holding"`
	// PerAssetTransaction attributes the transaction cost per non-cash asset.
	PerAssetTransaction []float64 `yaml:"-"`
}

// Total is the sum of all realized costs at this period.
func (c CostRecord) Total() float64 {
	return c.Transaction + c.Holding
}
