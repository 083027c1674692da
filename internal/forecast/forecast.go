package forecast

import (
	"math"

	"github.com/jxwng/cvxportfolio/internal/marketdata"
	"github.com/jxwng/cvxportfolio/internal/types"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Bundle carries the estimates a policy needs to assemble one optimization
// problem: expected returns over every universe member (cash last) and the
// covariance of the non-cash returns. It lives only for the duration of one
// problem assembly.
type Bundle struct {
	// ExpectedReturns per universe member, cash last.
	ExpectedReturns []float64
	// Covariance of the non-cash asset returns.
	Covariance *mat.SymDense
}

// Model produces forecasts from a market snapshot. Because the snapshot only
// contains data strictly before the decision period, a Model cannot look
// ahead by construction.
type Model interface {
	// Estimate builds the forecast bundle for the snapshot's period.
	Estimate(snap *marketdata.Snapshot) (*Bundle, error)
}

// HistoricalMeanVariance estimates expected returns as the (optionally
// exponentially weighted) historical mean and risk as the historical
// covariance of past returns.
type HistoricalMeanVariance struct {
	// MinHistory is the minimum number of past periods required before an
	// estimate is produced. Defaults to 2 when zero.
	MinHistory int
	// HalfLife, when positive, applies exponential decay to observations:
	// an observation HalfLife periods old weighs half as much as the most
	// recent one. Zero means equal weights.
	HalfLife int
}

// NewHistoricalMeanVariance returns an estimator with equal-weighted history.
func NewHistoricalMeanVariance() *HistoricalMeanVariance {
	return &HistoricalMeanVariance{MinHistory: 2}
}

// Estimate implements Model.
func (m *HistoricalMeanVariance) Estimate(snap *marketdata.Snapshot) (*Bundle, error) {
	minHistory := m.MinHistory
	if minHistory < 2 {
		minHistory = 2
	}

	if snap.PastReturns == nil {
		return nil, types.NewDataError("no past returns available at period %d", snap.Period)
	}

	rows, cols := snap.PastReturns.Dims()
	if rows < minHistory {
		return nil, types.NewDataError(
			"period %d has %d past periods of history, need at least %d", snap.Period, rows, minHistory)
	}

	weights := m.observationWeights(rows)

	expected := make([]float64, cols)
	for j := 0; j < cols; j++ {
		col := make([]float64, rows)
		mat.Col(col, j, snap.PastReturns)
		expected[j] = stat.Mean(col, weights)
	}

	// The cash account earns the last observed risk-free rate, not its
	// historical mean.
	cashIdx := snap.Universe.CashIndex()
	expected[cashIdx] = snap.PastReturns.At(rows-1, cashIdx)

	nonCash := snap.Universe.NumAssets()
	cov := mat.NewSymDense(nonCash, nil)
	stat.CovarianceMatrix(cov, snap.PastReturns.Slice(0, rows, 0, nonCash), weights)

	return &Bundle{ExpectedReturns: expected, Covariance: cov}, nil
}

func (m *HistoricalMeanVariance) observationWeights(rows int) []float64 {
	if m.HalfLife <= 0 {
		return nil
	}

	decay := math.Ln2 / float64(m.HalfLife)
	weights := make([]float64, rows)

	for i := range weights {
		age := float64(rows - 1 - i)
		weights[i] = math.Exp(-decay * age)
	}

	return weights
}
