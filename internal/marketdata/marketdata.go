package marketdata

import (
	"time"

	"github.com/jxwng/cvxportfolio/internal/types"
	"gonum.org/v1/gonum/mat"
)

// Snapshot is the view of the market a policy is allowed to see when deciding
// the trade for a period: everything strictly before the period, plus the
// prices quoted at the period itself. Realized returns at the decision period
// are not present on the type, so serving them to a policy is structurally
// impossible.
type Snapshot struct {
	// Period is the index of the period being decided.
	Period int
	// Time is the timestamp of the period being decided.
	Time time.Time
	// Universe at this period.
	Universe types.Universe
	// PastReturns has one row per period strictly before Period and one
	// column per universe member (cash last).
	PastReturns *mat.Dense
	// PastVolumes has one row per period strictly before Period and one
	// column per non-cash asset, in currency units. Nil when the provider
	// has no volume data.
	PastVolumes *mat.Dense
	// CurrentPrices are the prices quoted at Period for the non-cash
	// assets. Nil when the provider has no price data.
	CurrentPrices []float64
	// CurrentVolumes are the currency volumes at Period for the non-cash
	// assets. Nil when the provider has no volume data.
	CurrentVolumes []float64
}

// Provider serves market data to the simulator and, through Snapshot, to
// policies and forecast models. Implementations must be safe for concurrent
// reads so independent backtests can share one provider.
type Provider interface {
	// Universe returns the asset universe, cash last.
	Universe() types.Universe
	// TradingCalendar returns the ordered period timestamps.
	TradingCalendar() []time.Time
	// Len returns the number of periods in the calendar.
	Len() int
	// Serve returns the policy-visible snapshot at the given period.
	// Data timestamped at or after the period is never included, except
	// for the current prices and volumes which are quotes, not outcomes.
	Serve(period int) (*Snapshot, error)
	// RealizedReturns returns the per-member realized returns of the given
	// period (cash last). Only the simulator may call this for the period
	// currently being executed.
	RealizedReturns(period int) ([]float64, error)
}
