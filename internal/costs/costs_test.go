package costs

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/jxwng/cvxportfolio/internal/marketdata"
	"github.com/jxwng/cvxportfolio/internal/types"
)

type CostsTestSuite struct {
	suite.Suite

	snap *marketdata.Snapshot
}

func TestCostsSuite(t *testing.T) {
	suite.Run(t, new(CostsTestSuite))
}

func (suite *CostsTestSuite) SetupTest() {
	suite.snap = &marketdata.Snapshot{
		Universe:       types.NewUniverse([]string{"AAPL", "GOOG"}, ""),
		CurrentVolumes: []float64{1e8, 4e8},
	}
}

func (suite *CostsTestSuite) TestZeroTradeRealizesZeroCost() {
	model := NewTransactionCost(10, 1)
	total, perAsset, err := model.Realized(nil, types.ZeroTrade(3), suite.snap)

	suite.Require().NoError(err)
	suite.Zero(total)
	suite.Equal([]float64{0, 0}, perAsset)
}

func (suite *CostsTestSuite) TestSpreadCostIsLinear() {
	// Pure spread, no impact: cost(c*u) = c * cost(u).
	model := NewTransactionCost(10, 0)

	single, _, err := model.Realized(nil, types.Trade{1000, -500, 0}, suite.snap)
	suite.Require().NoError(err)

	double, _, err := model.Realized(nil, types.Trade{2000, -1000, 0}, suite.snap)
	suite.Require().NoError(err)

	// Half of 10bp on 1500 gross traded.
	suite.InDelta(1500*10/2e4, single, 1e-12)
	suite.InDelta(2*single, double, 1e-12)
}

func (suite *CostsTestSuite) TestImpactCostGrowsSuperlinearly() {
	model := NewTransactionCost(0, 1)

	single, _, err := model.Realized(nil, types.Trade{1000, 0, 0}, suite.snap)
	suite.Require().NoError(err)

	double, _, err := model.Realized(nil, types.Trade{2000, 0, 0}, suite.snap)
	suite.Require().NoError(err)

	// |2u|^1.5 = 2^1.5 |u|^1.5.
	suite.Greater(single, 0.0)
	suite.InDelta(2.828427, double/single, 1e-5)
}

func (suite *CostsTestSuite) TestImpactSkippedWithoutVolumes() {
	model := NewTransactionCost(0, 1)
	noVolumes := &marketdata.Snapshot{Universe: suite.snap.Universe}

	total, _, err := model.Realized(nil, types.Trade{1000, 0, 0}, noVolumes)
	suite.Require().NoError(err)
	suite.Zero(total)
}

func (suite *CostsTestSuite) TestHoldingCostChargesShortsOnly() {
	model := NewHoldingCost(5)

	// 5bp per period on the 2000 held short; the long leg and cash are free.
	total, _, err := model.Realized([]float64{3000, -2000, 1000}, nil, suite.snap)
	suite.Require().NoError(err)
	suite.InDelta(2000*5/1e4, total, 1e-12)

	total, _, err = model.Realized([]float64{3000, 2000, 1000}, nil, suite.snap)
	suite.Require().NoError(err)
	suite.Zero(total)
}

func (suite *CostsTestSuite) TestSurrogateTermCount() {
	zIdx := []int{0, 1}
	wIdx := []int{2, 3}

	full := NewTransactionCost(10, 1)
	terms, err := full.Surrogate(zIdx, wIdx, suite.snap, 1e6)
	suite.Require().NoError(err)
	suite.Len(terms, 2)

	spreadOnly := NewTransactionCost(10, 0)
	terms, err = spreadOnly.Surrogate(zIdx, wIdx, suite.snap, 1e6)
	suite.Require().NoError(err)
	suite.Len(terms, 1)

	borrow := NewHoldingCost(5)
	terms, err = borrow.Surrogate(zIdx, wIdx, suite.snap, 1e6)
	suite.Require().NoError(err)
	suite.Len(terms, 1)
}

func (suite *CostsTestSuite) TestSurrogateMatchesRealizedForSpread() {
	// For the pure spread model the weight-space surrogate evaluated at
	// z = u/v times v must equal the realized dollar cost.
	model := NewTransactionCost(10, 0)
	v := 1e6
	trade := types.Trade{10000, -20000, 0}

	realized, _, err := model.Realized(nil, trade, suite.snap)
	suite.Require().NoError(err)

	terms, err := model.Surrogate([]int{0, 1}, []int{2, 3}, suite.snap, v)
	suite.Require().NoError(err)
	suite.Require().Len(terms, 1)

	x := []float64{trade[0] / v, trade[1] / v, 0, 0}
	suite.InDelta(realized, terms[0].Value(x)*v, 1e-5)
}

func (suite *CostsTestSuite) TestFactories() {
	params := Params{SpreadBps: 10, ImpactCoeff: 1, BorrowRateBps: 5}

	suite.IsType(&TransactionCost{}, GetTransactionCost(TransactionLinearImpact, params))
	suite.IsType(&ZeroTransactionCost{}, GetTransactionCost(TransactionZero, params))
	suite.IsType(&HoldingCost{}, GetHoldingCost(HoldingBorrow, params))
	suite.IsType(&ZeroHoldingCost{}, GetHoldingCost(HoldingZero, params))
}
