package mocks

import (
	"fmt"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/jxwng/cvxportfolio/internal/marketdata"
	"github.com/jxwng/cvxportfolio/internal/types"
)

// DataGenerator produces synthetic market data for testing and benchmarking.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how market data is generated.
type GeneratorConfig struct {
	// Assets are the non-cash asset names; cash is appended automatically.
	Assets []string
	// StartTime is the timestamp of the first period.
	StartTime time.Time
	// Interval is the duration between periods.
	Interval time.Duration
	// Periods is the number of periods to generate.
	Periods int
	// Volatility is the per-period return standard deviation.
	Volatility float64
	// Drift is the per-period expected return of every asset.
	Drift float64
	// CashReturn is the constant per-period cash return.
	CashReturn float64
	// InitialPrice is the starting price of every asset.
	InitialPrice float64
	// VolumeBase is the average currency volume per period.
	VolumeBase float64
}

// DefaultGeneratorConfig returns a small three-asset daily configuration.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Assets:       []string{"AAPL", "GOOG", "MSFT"},
		StartTime:    time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Interval:     24 * time.Hour,
		Periods:      60,
		Volatility:   0.01,
		Drift:        0.0005,
		CashReturn:   0.0001,
		InitialPrice: 100,
		VolumeBase:   1e7,
	}
}

// Generate builds an in-memory provider from the configuration.
func (g *DataGenerator) Generate(config GeneratorConfig) (*marketdata.InMemory, error) {
	if config.Periods < 1 || len(config.Assets) == 0 {
		return nil, fmt.Errorf("generator needs at least one period and one asset")
	}

	universe := types.NewUniverse(config.Assets, types.DefaultCashKey)
	n := universe.Size()
	nonCash := len(config.Assets)

	calendar := make([]time.Time, config.Periods)
	for t := range calendar {
		calendar[t] = config.StartTime.Add(time.Duration(t) * config.Interval)
	}

	returns := mat.NewDense(config.Periods, n, nil)
	prices := mat.NewDense(config.Periods, nonCash, nil)
	volumes := mat.NewDense(config.Periods, nonCash, nil)

	price := make([]float64, nonCash)
	for i := range price {
		price[i] = config.InitialPrice
	}

	for t := 0; t < config.Periods; t++ {
		for i := 0; i < nonCash; i++ {
			r := config.Drift + config.Volatility*g.rng.NormFloat64()
			if r <= -1 {
				r = -0.99
			}

			returns.Set(t, i, r)
			price[i] *= 1 + r
			prices.Set(t, i, price[i])
			volumes.Set(t, i, config.VolumeBase*(0.5+g.rng.Float64()))
		}

		returns.Set(t, universe.CashIndex(), config.CashReturn)
	}

	return marketdata.NewInMemory(universe, calendar, returns, prices, volumes)
}

// ConstantReturns builds a provider where every non-cash asset returns the
// same constant each period, handy for closed-form assertions.
func ConstantReturns(assets []string, periods int, assetReturn, cashReturn float64) (*marketdata.InMemory, error) {
	universe := types.NewUniverse(assets, types.DefaultCashKey)
	n := universe.Size()
	nonCash := len(assets)

	calendar := make([]time.Time, periods)
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	for t := range calendar {
		calendar[t] = start.Add(time.Duration(t) * 24 * time.Hour)
	}

	returns := mat.NewDense(periods, n, nil)
	prices := mat.NewDense(periods, nonCash, nil)
	volumes := mat.NewDense(periods, nonCash, nil)

	for t := 0; t < periods; t++ {
		for i := 0; i < nonCash; i++ {
			returns.Set(t, i, assetReturn)
			prices.Set(t, i, 100)
			volumes.Set(t, i, 1e7)
		}

		returns.Set(t, universe.CashIndex(), cashReturn)
	}

	return marketdata.NewInMemory(universe, calendar, returns, prices, volumes)
}
