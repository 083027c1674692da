package types

import (
	"time"
)

// PeriodRecord is one executed period of a backtest: the pre-trade holdings,
// the executed trade, the realized costs and the timing of the two halves of
// the loop.
type PeriodRecord struct {
	// Period is the index into the trading calendar.
	Period int
	// Time is the timestamp of the period.
	Time time.Time
	// Holdings are the pre-trade holdings h_t, cash last.
	Holdings []float64
	// Trade is the executed trade u_t with the finalized cash leg.
	Trade Trade
	// Costs are the realized costs charged at this period.
	Costs CostRecord
	// CashReturn is the realized return on the cash account at this period.
	CashReturn float64
	// PolicyTime is the wall-clock time spent in the policy.
	PolicyTime time.Duration
	// SimulatorTime is the wall-clock time spent applying the trade.
	SimulatorTime time.Duration
}

// Trajectory is the ordered record of a whole backtest: one PeriodRecord per
// executed period plus the terminal holdings. It is the sole output of the
// simulator and the sole input of the result analyzer. Once Completed is set
// the simulator never touches it again.
type Trajectory struct {
	// Universe the backtest ran on.
	Universe Universe
	// Records, one per executed period, in strictly increasing period order.
	Records []PeriodRecord
	// FinalHoldings are the holdings after the last executed period.
	FinalHoldings []float64
	// FinalTime is the timestamp the final holdings are valued at.
	FinalTime time.Time
	// Completed is true when the backtest ran to the end of the calendar,
	// false when it was truncated by a failure or cancellation.
	Completed bool
}

// Len returns the number of executed periods.
func (tr *Trajectory) Len() int {
	return len(tr.Records)
}

// Append adds one executed period. Records must arrive in strictly
// increasing period order; the simulator guarantees this.
func (tr *Trajectory) Append(rec PeriodRecord) {
	tr.Records = append(tr.Records, rec)
}

// Values returns the portfolio value at each recorded period plus the final
// value, so len(result) == Len()+1.
func (tr *Trajectory) Values() []float64 {
	values := make([]float64, 0, len(tr.Records)+1)

	for _, rec := range tr.Records {
		total := 0.0
		for _, h := range rec.Holdings {
			total += h
		}

		values = append(values, total)
	}

	total := 0.0
	for _, h := range tr.FinalHoldings {
		total += h
	}

	values = append(values, total)

	return values
}

// Times returns the timestamps of the recorded periods plus the final time.
func (tr *Trajectory) Times() []time.Time {
	times := make([]time.Time, 0, len(tr.Records)+1)
	for _, rec := range tr.Records {
		times = append(times, rec.Time)
	}

	return append(times, tr.FinalTime)
}
