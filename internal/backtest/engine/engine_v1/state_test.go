package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/jxwng/cvxportfolio/internal/logger"
	"github.com/jxwng/cvxportfolio/internal/types"
)

type StateTestSuite struct {
	suite.Suite

	universe types.Universe
	state    *RunState
}

func TestStateSuite(t *testing.T) {
	suite.Run(t, new(StateTestSuite))
}

func (suite *StateTestSuite) SetupTest() {
	suite.universe = types.NewUniverse([]string{"AAPL", "GOOG"}, "")

	state, err := NewRunState(logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.Require().NoError(state.Initialize())

	suite.state = state
}

func (suite *StateTestSuite) TearDownTest() {
	suite.NoError(suite.state.Cleanup())
}

func (suite *StateTestSuite) record(period int, value float64) types.PeriodRecord {
	return types.PeriodRecord{
		Period:   period,
		Time:     time.Date(2024, 1, 2+period, 0, 0, 0, 0, time.UTC),
		Holdings: []float64{value * 0.4, value * 0.3, value * 0.3},
		Trade:    types.Trade{100, -50, -50},
		Costs: types.CostRecord{
			Transaction: 1.5,
			Holding:     0.5,
		},
		CashReturn:    0.0001,
		PolicyTime:    20 * time.Millisecond,
		SimulatorTime: 5 * time.Millisecond,
	}
}

func (suite *StateTestSuite) TestRunIDIsStable() {
	suite.NotEmpty(suite.state.RunID())
	suite.Equal(suite.state.RunID(), suite.state.RunID())
}

func (suite *StateTestSuite) TestAppendAndReadBackPeriods() {
	suite.Require().NoError(suite.state.AppendPeriod(suite.universe, suite.record(3, 1000)))
	suite.Require().NoError(suite.state.AppendPeriod(suite.universe, suite.record(4, 1100)))

	periods, err := suite.state.Periods()
	suite.Require().NoError(err)
	suite.Require().Len(periods, 2)

	suite.Equal(3, periods[0].Period)
	suite.Equal(4, periods[1].Period)
	suite.InDelta(1000, periods[0].Value, 1e-9)
	suite.InDelta(1100, periods[1].Value, 1e-9)
	suite.InDelta(0.0001, periods[0].CashReturn, 1e-12)
	suite.InDelta(1.5, periods[0].Transaction, 1e-12)
	suite.InDelta(0.5, periods[0].Holding, 1e-12)
	suite.InDelta(0.02, periods[0].PolicySeconds, 1e-9)
	suite.InDelta(0.005, periods[0].SimSeconds, 1e-9)
}

func (suite *StateTestSuite) TestHoldingsReadBackInUniverseOrder() {
	suite.Require().NoError(suite.state.AppendPeriod(suite.universe, suite.record(7, 1000)))

	holdings, err := suite.state.Holdings(suite.universe, 7)
	suite.Require().NoError(err)

	suite.InDelta(400, holdings[0], 1e-9)
	suite.InDelta(300, holdings[1], 1e-9)
	suite.InDelta(300, holdings[2], 1e-9)
}

func (suite *StateTestSuite) TestHoldingsOfUnknownPeriodAreZero() {
	holdings, err := suite.state.Holdings(suite.universe, 99)
	suite.Require().NoError(err)
	suite.Equal([]float64{0, 0, 0}, holdings)
}

func (suite *StateTestSuite) TestWriteExportsParquetFiles() {
	suite.Require().NoError(suite.state.AppendPeriod(suite.universe, suite.record(1, 1000)))

	dir := filepath.Join(suite.T().TempDir(), "run")
	suite.Require().NoError(suite.state.Write(dir))

	for _, name := range []string{"periods.parquet", "positions.parquet"} {
		info, err := os.Stat(filepath.Join(dir, name))
		suite.Require().NoError(err)
		suite.NotZero(info.Size())
	}
}

func (suite *StateTestSuite) TestWriteHandlesQuotedPath() {
	suite.Require().NoError(suite.state.AppendPeriod(suite.universe, suite.record(1, 1000)))

	dir := filepath.Join(suite.T().TempDir(), "o'brien's run")
	suite.Require().NoError(suite.state.Write(dir))

	for _, name := range []string{"periods.parquet", "positions.parquet"} {
		info, err := os.Stat(filepath.Join(dir, name))
		suite.Require().NoError(err)
		suite.NotZero(info.Size())
	}
}
