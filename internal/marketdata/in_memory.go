package marketdata

import (
	"math"
	"time"

	"github.com/jxwng/cvxportfolio/internal/types"
	"gonum.org/v1/gonum/mat"
)

// InMemory is a Provider backed by dense in-memory series. It is immutable
// after construction and safe for concurrent reads.
type InMemory struct {
	universe types.Universe
	calendar []time.Time
	// returns: rows = periods, cols = universe members (cash last).
	returns *mat.Dense
	// prices: rows = periods, cols = non-cash assets. May be nil.
	prices *mat.Dense
	// volumes: rows = periods, cols = non-cash assets, currency units.
	// May be nil.
	volumes *mat.Dense
}

// NewInMemory validates the series shapes and builds the provider.
// returns[t][i] is the realized return of universe member i over period t,
// with the cash return in the last column. prices and volumes cover only the
// non-cash assets and may be nil.
func NewInMemory(universe types.Universe, calendar []time.Time, returns, prices, volumes *mat.Dense) (*InMemory, error) {
	if err := universe.Validate(); err != nil {
		return nil, &types.DataError{Msg: "invalid universe", Err: err}
	}

	periods := len(calendar)
	if periods == 0 {
		return nil, types.NewDataError("empty trading calendar")
	}

	for i := 1; i < periods; i++ {
		if !calendar[i].After(calendar[i-1]) {
			return nil, types.NewDataError("trading calendar is not strictly increasing at index %d", i)
		}
	}

	if returns == nil {
		return nil, types.NewDataError("returns are required")
	}

	r, c := returns.Dims()
	if r != periods || c != universe.Size() {
		return nil, types.NewDataError(
			"returns shape %dx%d does not match %d periods x %d members", r, c, periods, universe.Size())
	}

	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := returns.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, types.NewDataError(
					"non-finite return for %s at period %d", universe.Assets[j], i)
			}
		}
	}

	if prices != nil {
		if err := checkAuxShape(prices, periods, universe.NumAssets(), "prices"); err != nil {
			return nil, err
		}
	}

	if volumes != nil {
		if err := checkAuxShape(volumes, periods, universe.NumAssets(), "volumes"); err != nil {
			return nil, err
		}
	}

	return &InMemory{
		universe: universe,
		calendar: calendar,
		returns:  returns,
		prices:   prices,
		volumes:  volumes,
	}, nil
}

func checkAuxShape(m *mat.Dense, periods, assets int, what string) error {
	r, c := m.Dims()
	if r != periods || c != assets {
		return types.NewDataError(
			"%s shape %dx%d does not match %d periods x %d assets", what, r, c, periods, assets)
	}

	return nil
}

// Universe implements Provider.
func (p *InMemory) Universe() types.Universe {
	return p.universe
}

// TradingCalendar implements Provider.
func (p *InMemory) TradingCalendar() []time.Time {
	out := make([]time.Time, len(p.calendar))
	copy(out, p.calendar)

	return out
}

// Len implements Provider.
func (p *InMemory) Len() int {
	return len(p.calendar)
}

// Serve implements Provider. The snapshot contains only rows strictly before
// the requested period.
func (p *InMemory) Serve(period int) (*Snapshot, error) {
	if period < 0 || period >= len(p.calendar) {
		return nil, types.NewDataError("period %d outside trading calendar of length %d", period, len(p.calendar))
	}

	snap := &Snapshot{
		Period:   period,
		Time:     p.calendar[period],
		Universe: p.universe,
	}

	if period > 0 {
		snap.PastReturns = mat.DenseCopyOf(p.returns.Slice(0, period, 0, p.universe.Size()))

		if p.volumes != nil {
			snap.PastVolumes = mat.DenseCopyOf(p.volumes.Slice(0, period, 0, p.universe.NumAssets()))
		}
	}

	if p.prices != nil {
		snap.CurrentPrices = rowCopy(p.prices, period)
	}

	if p.volumes != nil {
		snap.CurrentVolumes = rowCopy(p.volumes, period)
	}

	return snap, nil
}

// RealizedReturns implements Provider.
func (p *InMemory) RealizedReturns(period int) ([]float64, error) {
	if period < 0 || period >= len(p.calendar) {
		return nil, types.NewDataError("period %d outside trading calendar of length %d", period, len(p.calendar))
	}

	return rowCopy(p.returns, period), nil
}

func rowCopy(m *mat.Dense, i int) []float64 {
	_, c := m.Dims()
	out := make([]float64, c)
	mat.Row(out, i, m)

	return out
}
