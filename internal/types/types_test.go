package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type TypesTestSuite struct {
	suite.Suite
}

func TestTypesSuite(t *testing.T) {
	suite.Run(t, new(TypesTestSuite))
}

func (suite *TypesTestSuite) TestNewUniverse() {
	u := NewUniverse([]string{"AAPL", "GOOG"}, "")

	suite.Equal(3, u.Size())
	suite.Equal(2, u.NumAssets())
	suite.Equal(2, u.CashIndex())
	suite.Equal(DefaultCashKey, u.CashKey())
	suite.NoError(u.Validate())
}

func (suite *TypesTestSuite) TestUniverseValidate() {
	suite.Error(Universe{Assets: []string{"USDOLLAR"}}.Validate())
	suite.Error(Universe{Assets: []string{"AAPL", "AAPL", "USDOLLAR"}}.Validate())
	suite.Error(Universe{Assets: []string{"", "USDOLLAR"}}.Validate())
}

func (suite *TypesTestSuite) TestPortfolioStateWeights() {
	state := PortfolioState{Holdings: []float64{300, 100, 600}}

	suite.Equal(1000.0, state.Value())

	w := state.Weights()
	suite.InDelta(0.3, w[0], 1e-12)
	suite.InDelta(0.1, w[1], 1e-12)
	suite.InDelta(0.6, w[2], 1e-12)
}

func (suite *TypesTestSuite) TestPortfolioStateCopyIsDeep() {
	state := PortfolioState{Holdings: []float64{1, 2}}
	copied := state.Copy()
	copied.Holdings[0] = 99

	suite.Equal(1.0, state.Holdings[0])
}

func (suite *TypesTestSuite) TestTradeGrossNonCash() {
	u := Trade{100, -50, -25}

	suite.Equal(150.0, u.GrossNonCash())
	suite.False(u.IsZero())
	suite.True(ZeroTrade(3).IsZero())
}

func (suite *TypesTestSuite) TestTrajectoryValues() {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	traj := Trajectory{
		Universe: NewUniverse([]string{"AAPL"}, ""),
		Records: []PeriodRecord{
			{Period: 0, Time: start, Holdings: []float64{0, 100}},
			{Period: 1, Time: start.AddDate(0, 0, 1), Holdings: []float64{50, 52}},
		},
		FinalHoldings: []float64{51, 53},
		FinalTime:     start.AddDate(0, 0, 2),
	}

	values := traj.Values()
	suite.Len(values, 3)
	suite.Equal(100.0, values[0])
	suite.Equal(102.0, values[1])
	suite.Equal(104.0, values[2])

	times := traj.Times()
	suite.Len(times, 3)
	suite.Equal(traj.FinalTime, times[2])
}

func (suite *TypesTestSuite) TestIsRecoverable() {
	suite.True(IsRecoverable(ErrInfeasible))
	suite.True(IsRecoverable(errors.Join(errors.New("wrapped"), ErrUnbounded)))
	suite.True(IsRecoverable(&SolverError{Kind: SolverErrorTimeout}))
	suite.False(IsRecoverable(NewDataError("missing returns")))
	suite.False(IsRecoverable(&ConstraintViolation{Period: 3, Invariant: "self-financing"}))
	suite.False(IsRecoverable(&BankruptcyError{Period: 1, Value: -10}))
}

func (suite *TypesTestSuite) TestCostRecordTotal() {
	c := CostRecord{Transaction: 3, Holding: 2}
	suite.Equal(5.0, c.Total())
}
