// Package result computes the summary statistics of a backtest trajectory and
// renders the fixed-format report table. The analyzer is a pure function of
// the trajectory: all series are derived once at construction and never
// mutated, so analyzing the same trajectory twice yields identical output.
package result

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
	"gopkg.in/yaml.v3"

	"github.com/jxwng/cvxportfolio/internal/types"
)

// BacktestResult holds the derived per-period series of one backtest and
// exposes the summary statistics over them.
type BacktestResult struct {
	traj           *types.Trajectory
	periodsPerYear float64

	values      []float64 // length NumPeriods+1
	returns     []float64 // per-period total returns
	excess      []float64 // returns minus cash returns
	turnover    []float64
	leverage    []float64
	drawdown    []float64
	tcostFrac   []float64 // transaction cost / value
	hcostFrac   []float64
	policyTimes []float64 // seconds
	simTimes    []float64
}

// NewBacktestResult derives all per-period series from the trajectory.
// periodsPerYear sets the annualization factor (252 for daily data).
func NewBacktestResult(traj *types.Trajectory, periodsPerYear float64) (*BacktestResult, error) {
	if traj == nil || traj.Len() == 0 {
		return nil, types.NewDataError("cannot analyze an empty trajectory")
	}

	if periodsPerYear <= 0 {
		periodsPerYear = 252
	}

	r := &BacktestResult{
		traj:           traj,
		periodsPerYear: periodsPerYear,
		values:         traj.Values(),
	}

	n := traj.Len()
	r.returns = make([]float64, n)
	r.excess = make([]float64, n)
	r.turnover = make([]float64, n)
	r.leverage = make([]float64, n)
	r.tcostFrac = make([]float64, n)
	r.hcostFrac = make([]float64, n)
	r.policyTimes = make([]float64, n)
	r.simTimes = make([]float64, n)

	for i, rec := range traj.Records {
		v := r.values[i]
		r.returns[i] = (r.values[i+1] - v) / v
		r.excess[i] = r.returns[i] - rec.CashReturn
		r.turnover[i] = rec.Trade.GrossNonCash() / (2 * v)

		gross := 0.0
		for _, h := range rec.Holdings[:len(rec.Holdings)-1] {
			gross += math.Abs(h)
		}

		r.leverage[i] = gross / v
		r.tcostFrac[i] = rec.Costs.Transaction / v
		r.hcostFrac[i] = rec.Costs.Holding / v
		r.policyTimes[i] = rec.PolicyTime.Seconds()
		r.simTimes[i] = rec.SimulatorTime.Seconds()
	}

	// Drawdown over the value series: distance below the running peak,
	// reported as a non-positive fraction.
	r.drawdown = make([]float64, len(r.values))
	peak := math.Inf(-1)

	for i, v := range r.values {
		if v > peak {
			peak = v
		}

		r.drawdown[i] = -(1 - v/peak)
	}

	return r, nil
}

func (r *BacktestResult) UniverseSize() int          { return r.traj.Universe.Size() }
func (r *BacktestResult) NumPeriods() int            { return r.traj.Len() }
func (r *BacktestResult) InitialTimestamp() time.Time { return r.traj.Records[0].Time }
func (r *BacktestResult) FinalTimestamp() time.Time   { return r.traj.FinalTime }
func (r *BacktestResult) CashKey() string             { return r.traj.Universe.CashKey() }

func (r *BacktestResult) InitialValue() float64 { return r.values[0] }
func (r *BacktestResult) FinalValue() float64   { return r.values[len(r.values)-1] }
func (r *BacktestResult) Profit() float64       { return r.FinalValue() - r.InitialValue() }

// AnnualizedAverageReturn is the mean per-period return scaled by periods per
// year.
func (r *BacktestResult) AnnualizedAverageReturn() float64 {
	return mean(r.returns) * r.periodsPerYear
}

// AnnualizedVolatility is the population standard deviation of per-period
// returns scaled by sqrt(periods per year).
func (r *BacktestResult) AnnualizedVolatility() float64 {
	return stdDev(r.returns) * math.Sqrt(r.periodsPerYear)
}

func (r *BacktestResult) AnnualizedAverageExcessReturn() float64 {
	return mean(r.excess) * r.periodsPerYear
}

func (r *BacktestResult) AnnualizedExcessVolatility() float64 {
	return stdDev(r.excess) * math.Sqrt(r.periodsPerYear)
}

// AnnualizedAverageGrowthRate is the annualized mean of log(1+R_t).
func (r *BacktestResult) AnnualizedAverageGrowthRate() float64 {
	return mean(logGrowth(r.returns)) * r.periodsPerYear
}

func (r *BacktestResult) AnnualizedAverageExcessGrowthRate() float64 {
	return mean(logGrowth(r.excess)) * r.periodsPerYear
}

// SharpeRatio is the annualized average excess return over the annualized
// excess volatility. A single-period trajectory has no volatility estimate,
// so the ratio is undefined (NaN) rather than arbitrarily large.
func (r *BacktestResult) SharpeRatio() float64 {
	if len(r.excess) < 2 {
		return math.NaN()
	}

	return r.AnnualizedAverageExcessReturn() / (r.AnnualizedExcessVolatility() + 1e-8)
}

func (r *BacktestResult) AvgDrawdown() float64 { return mean(r.drawdown) }
func (r *BacktestResult) MinDrawdown() float64 { return minimum(r.drawdown) }
func (r *BacktestResult) AvgLeverage() float64 { return mean(r.leverage) }
func (r *BacktestResult) MaxLeverage() float64 { return maximum(r.leverage) }
func (r *BacktestResult) AvgTurnover() float64 { return mean(r.turnover) }
func (r *BacktestResult) MaxTurnover() float64 { return maximum(r.turnover) }

// AvgTransactionCostBps and the max/holding variants report realized costs as
// basis points of the portfolio value at the period they were charged.
func (r *BacktestResult) AvgTransactionCostBps() float64 { return mean(r.tcostFrac) * 1e4 }
func (r *BacktestResult) MaxTransactionCostBps() float64 { return maximum(r.tcostFrac) * 1e4 }
func (r *BacktestResult) AvgHoldingCostBps() float64     { return mean(r.hcostFrac) * 1e4 }
func (r *BacktestResult) MaxHoldingCostBps() float64     { return maximum(r.hcostFrac) * 1e4 }

func (r *BacktestResult) AvgPolicyTime() float64    { return mean(r.policyTimes) }
func (r *BacktestResult) AvgSimulatorTime() float64 { return mean(r.simTimes) }

func (r *BacktestResult) TotalTime() float64 {
	return sum(r.policyTimes) + sum(r.simTimes)
}

// String renders the fixed-format report table: currency in scientific
// notation, percentages to one decimal, costs as integer basis points and
// durations in seconds to three decimals.
func (r *BacktestResult) String() string {
	type row struct {
		label string
		value string
	}

	cash := r.CashKey()

	rows := []row{
		{"Universe size", fmt.Sprintf("%d", r.UniverseSize())},
		{"Initial timestamp", r.InitialTimestamp().Format("2006-01-02 15:04:05")},
		{"Final timestamp", r.FinalTimestamp().Format("2006-01-02 15:04:05")},
		{"Number of periods", fmt.Sprintf("%d", r.NumPeriods())},
		{fmt.Sprintf("Initial value (%s)", cash), fmt.Sprintf("%.3e", r.InitialValue())},
		{fmt.Sprintf("Final value (%s)", cash), fmt.Sprintf("%.3e", r.FinalValue())},
		{fmt.Sprintf("Profit (%s)", cash), fmt.Sprintf("%.3e", r.Profit())},
		{"", ""},
		{"Avg. return (annualized)", percent(r.AnnualizedAverageReturn())},
		{"Volatility (annualized)", percent(r.AnnualizedVolatility())},
		{"Avg. excess return (annualized)", percent(r.AnnualizedAverageExcessReturn())},
		{"Excess volatility (annualized)", percent(r.AnnualizedExcessVolatility())},
		{"", ""},
		{"Avg. growth rate (annualized)", percent(r.AnnualizedAverageGrowthRate())},
		{"Avg. excess growth rate (annualized)", percent(r.AnnualizedAverageExcessGrowthRate())},
		{"", ""},
		{"Avg. TransactionCost", basisPoints(r.AvgTransactionCostBps())},
		{"Max. TransactionCost", basisPoints(r.MaxTransactionCostBps())},
		{"Avg. HoldingCost", basisPoints(r.AvgHoldingCostBps())},
		{"Max. HoldingCost", basisPoints(r.MaxHoldingCostBps())},
		{"", ""},
		{"Sharpe ratio", fmt.Sprintf("%.2f", r.SharpeRatio())},
		{"", ""},
		{"Avg. drawdown", percent(r.AvgDrawdown())},
		{"Min. drawdown", percent(r.MinDrawdown())},
		{"Avg. leverage", percent(r.AvgLeverage())},
		{"Max. leverage", percent(r.MaxLeverage())},
		{"Avg. turnover", percent(r.AvgTurnover())},
		{"Max. turnover", percent(r.MaxTurnover())},
		{"", ""},
		{"Avg. policy time", seconds(r.AvgPolicyTime())},
		{"Avg. simulator time", seconds(r.AvgSimulatorTime())},
		{"Total time", seconds(r.TotalTime())},
	}

	labelWidth, valueWidth := 0, 0

	for _, rw := range rows {
		if len(rw.label) > labelWidth {
			labelWidth = len(rw.label)
		}

		if len(rw.value) > valueWidth {
			valueWidth = len(rw.value)
		}
	}

	lineWidth := labelWidth + 2 + valueWidth

	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(strings.Repeat("#", lineWidth))
	b.WriteString("\n")

	for _, rw := range rows {
		if rw.label == "" {
			b.WriteString("\n")

			continue
		}

		fmt.Fprintf(&b, "%-*s  %*s\n", labelWidth, rw.label, valueWidth, rw.value)
	}

	b.WriteString(strings.Repeat("#", lineWidth))
	b.WriteString("\n")

	return b.String()
}

// Summary is the YAML-serializable form of the report.
type Summary struct {
	UniverseSize            int     `yaml:"universe_size"`
	InitialTimestamp        string  `yaml:"initial_timestamp"`
	FinalTimestamp          string  `yaml:"final_timestamp"`
	NumPeriods              int     `yaml:"number_of_periods"`
	InitialValue            float64 `yaml:"initial_value"`
	FinalValue              float64 `yaml:"final_value"`
	Profit                  float64 `yaml:"profit"`
	AnnualizedReturn        float64 `yaml:"annualized_return"`
	AnnualizedVolatility    float64 `yaml:"annualized_volatility"`
	AnnualizedExcessReturn  float64 `yaml:"annualized_excess_return"`
	AnnualizedExcessVol     float64 `yaml:"annualized_excess_volatility"`
	AvgTransactionCostBps   float64 `yaml:"avg_transaction_cost_bps"`
	MaxTransactionCostBps   float64 `yaml:"max_transaction_cost_bps"`
	AvgHoldingCostBps       float64 `yaml:"avg_holding_cost_bps"`
	MaxHoldingCostBps       float64 `yaml:"max_holding_cost_bps"`
	SharpeRatio             float64 `yaml:"sharpe_ratio"`
	AvgDrawdown             float64 `yaml:"avg_drawdown"`
	MinDrawdown             float64 `yaml:"min_drawdown"`
	AvgLeverage             float64 `yaml:"avg_leverage"`
	MaxLeverage             float64 `yaml:"max_leverage"`
	AvgTurnover             float64 `yaml:"avg_turnover"`
	MaxTurnover             float64 `yaml:"max_turnover"`
	AvgPolicySeconds        float64 `yaml:"avg_policy_seconds"`
	AvgSimulatorSeconds     float64 `yaml:"avg_simulator_seconds"`
	TotalSeconds            float64 `yaml:"total_seconds"`
}

// Summarize collects the scalar statistics into a Summary.
func (r *BacktestResult) Summarize() Summary {
	return Summary{
		UniverseSize:           r.UniverseSize(),
		InitialTimestamp:       r.InitialTimestamp().Format(time.RFC3339),
		FinalTimestamp:         r.FinalTimestamp().Format(time.RFC3339),
		NumPeriods:             r.NumPeriods(),
		InitialValue:           r.InitialValue(),
		FinalValue:             r.FinalValue(),
		Profit:                 r.Profit(),
		AnnualizedReturn:       r.AnnualizedAverageReturn(),
		AnnualizedVolatility:   r.AnnualizedVolatility(),
		AnnualizedExcessReturn: r.AnnualizedAverageExcessReturn(),
		AnnualizedExcessVol:    r.AnnualizedExcessVolatility(),
		AvgTransactionCostBps:  r.AvgTransactionCostBps(),
		MaxTransactionCostBps:  r.MaxTransactionCostBps(),
		AvgHoldingCostBps:      r.AvgHoldingCostBps(),
		MaxHoldingCostBps:      r.MaxHoldingCostBps(),
		SharpeRatio:            r.SharpeRatio(),
		AvgDrawdown:            r.AvgDrawdown(),
		MinDrawdown:            r.MinDrawdown(),
		AvgLeverage:            r.AvgLeverage(),
		MaxLeverage:            r.MaxLeverage(),
		AvgTurnover:            r.AvgTurnover(),
		MaxTurnover:            r.MaxTurnover(),
		AvgPolicySeconds:       r.AvgPolicyTime(),
		AvgSimulatorSeconds:    r.AvgSimulatorTime(),
		TotalSeconds:           r.TotalTime(),
	}
}

// WriteYAML persists the summary statistics to a YAML file.
func (r *BacktestResult) WriteYAML(path string) error {
	data, err := yaml.Marshal(r.Summarize())
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}

	return nil
}

func percent(x float64) string {
	return fmt.Sprintf("%.1f%%", 100*x)
}

func basisPoints(x float64) string {
	return fmt.Sprintf("%.0fbp", x)
}

func seconds(x float64) string {
	return fmt.Sprintf("%.3fs", x)
}

func logGrowth(returns []float64) []float64 {
	g := make([]float64, len(returns))
	for i, x := range returns {
		g[i] = math.Log(1 + x)
	}

	return g
}

// The stats helpers map the library's empty-input errors to NaN, so a
// degenerate trajectory reports undefined statistics instead of failing.

func mean(xs []float64) float64 {
	m, err := stats.Mean(xs)
	if err != nil {
		return math.NaN()
	}

	return m
}

func stdDev(xs []float64) float64 {
	s, err := stats.StandardDeviationPopulation(xs)
	if err != nil {
		return math.NaN()
	}

	return s
}

func minimum(xs []float64) float64 {
	m, err := stats.Min(xs)
	if err != nil {
		return math.NaN()
	}

	return m
}

func maximum(xs []float64) float64 {
	m, err := stats.Max(xs)
	if err != nil {
		return math.NaN()
	}

	return m
}

func sum(xs []float64) float64 {
	s, err := stats.Sum(xs)
	if err != nil {
		return math.NaN()
	}

	return s
}
