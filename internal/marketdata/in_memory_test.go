package marketdata

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gonum.org/v1/gonum/mat"

	"github.com/jxwng/cvxportfolio/internal/types"
)

type InMemoryTestSuite struct {
	suite.Suite

	universe types.Universe
	calendar []time.Time
	provider *InMemory
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemoryTestSuite))
}

func (suite *InMemoryTestSuite) SetupTest() {
	suite.universe = types.NewUniverse([]string{"AAPL", "GOOG"}, "")

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	suite.calendar = []time.Time{
		start,
		start.AddDate(0, 0, 1),
		start.AddDate(0, 0, 2),
		start.AddDate(0, 0, 3),
	}

	returns := mat.NewDense(4, 3, []float64{
		0.01, 0.02, 0.0001,
		-0.01, 0.00, 0.0001,
		0.03, -0.02, 0.0001,
		0.00, 0.01, 0.0001,
	})
	prices := mat.NewDense(4, 2, []float64{
		100, 200,
		101, 200,
		99, 204,
		102, 200,
	})
	volumes := mat.NewDense(4, 2, []float64{
		1e6, 2e6,
		1e6, 2e6,
		1e6, 2e6,
		1e6, 2e6,
	})

	provider, err := NewInMemory(suite.universe, suite.calendar, returns, prices, volumes)
	suite.Require().NoError(err)
	suite.provider = provider
}

func (suite *InMemoryTestSuite) TestServeContainsOnlyPastReturns() {
	snap, err := suite.provider.Serve(2)
	suite.Require().NoError(err)

	suite.Equal(2, snap.Period)

	rows, cols := snap.PastReturns.Dims()
	suite.Equal(2, rows)
	suite.Equal(3, cols)
	suite.Equal(0.01, snap.PastReturns.At(0, 0))
	suite.Equal(-0.01, snap.PastReturns.At(1, 0))
}

func (suite *InMemoryTestSuite) TestServeFirstPeriodHasNoHistory() {
	snap, err := suite.provider.Serve(0)
	suite.Require().NoError(err)

	suite.Nil(snap.PastReturns)
	suite.Nil(snap.PastVolumes)
	suite.NotNil(snap.CurrentPrices)
}

func (suite *InMemoryTestSuite) TestServeQuotesCurrentPeriod() {
	snap, err := suite.provider.Serve(1)
	suite.Require().NoError(err)

	suite.Equal([]float64{101, 200}, snap.CurrentPrices)
	suite.Equal([]float64{1e6, 2e6}, snap.CurrentVolumes)
}

func (suite *InMemoryTestSuite) TestServeOutOfRange() {
	_, err := suite.provider.Serve(4)
	suite.Error(err)

	var dataErr *types.DataError
	suite.ErrorAs(err, &dataErr)

	_, err = suite.provider.Serve(-1)
	suite.Error(err)
}

func (suite *InMemoryTestSuite) TestRealizedReturns() {
	r, err := suite.provider.RealizedReturns(2)
	suite.Require().NoError(err)
	suite.Equal([]float64{0.03, -0.02, 0.0001}, r)

	_, err = suite.provider.RealizedReturns(4)
	suite.Error(err)
}

func (suite *InMemoryTestSuite) TestRejectsNonMonotonicCalendar() {
	badCalendar := []time.Time{suite.calendar[1], suite.calendar[0]}
	returns := mat.NewDense(2, 3, nil)

	_, err := NewInMemory(suite.universe, badCalendar, returns, nil, nil)
	suite.Error(err)
}

func (suite *InMemoryTestSuite) TestRejectsShapeMismatch() {
	returns := mat.NewDense(4, 2, nil) // missing the cash column

	_, err := NewInMemory(suite.universe, suite.calendar, returns, nil, nil)
	suite.Error(err)
}

func (suite *InMemoryTestSuite) TestRejectsNonFiniteReturns() {
	returns := mat.NewDense(4, 3, nil)
	returns.Set(1, 1, math.Inf(1))

	_, err := NewInMemory(suite.universe, suite.calendar, returns, nil, nil)
	suite.Error(err)
}

func (suite *InMemoryTestSuite) TestSnapshotMutationDoesNotLeak() {
	snap, err := suite.provider.Serve(2)
	suite.Require().NoError(err)

	snap.PastReturns.Set(0, 0, 42)
	snap.CurrentPrices[0] = 42

	again, err := suite.provider.Serve(2)
	suite.Require().NoError(err)
	suite.Equal(0.01, again.PastReturns.At(0, 0))
	suite.Equal(99.0, again.CurrentPrices[0])
}
