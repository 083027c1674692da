package types

import (
	"errors"
	"fmt"
)

// ErrInfeasible is returned when a constructed optimization problem has no
// feasible point. Depending on configuration a policy may recover from it by
// falling back to a hold trade.
var ErrInfeasible = errors.New("optimization problem is infeasible")

// ErrUnbounded is returned when an optimization problem is unbounded, which
// indicates a mis-specified objective.
var ErrUnbounded = errors.New("optimization problem is unbounded")

// DataError signals missing or invalid market data for a required
// period/asset. It is fatal for the backtest run that hits it.
type DataError struct {
	Msg string
	Err error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error: %s: %v", e.Msg, e.Err)
	}

	return fmt.Sprintf("data error: %s", e.Msg)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError builds a DataError with a formatted message.
func NewDataError(format string, args ...any) *DataError {
	return &DataError{Msg: fmt.Sprintf(format, args...)}
}

// SolverErrorKind distinguishes the failure modes of the numerical solver.
type SolverErrorKind string

const (
	SolverErrorNumerical SolverErrorKind = "numerical"
	SolverErrorTimeout   SolverErrorKind = "timeout"
)

// SolverError signals a numerical failure or timeout in the optimizer. It is
// handled like ErrInfeasible for policy purposes but logged distinctly.
type SolverError struct {
	Kind SolverErrorKind
	Err  error
}

func (e *SolverError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("solver error (%s): %v", e.Kind, e.Err)
	}

	return fmt.Sprintf("solver error (%s)", e.Kind)
}

func (e *SolverError) Unwrap() error {
	return e.Err
}

// ConstraintViolation signals that a realized state broke an accounting
// invariant beyond numerical tolerance. It indicates a cost-model or policy
// bug and is always fatal; the simulator never corrects it silently.
type ConstraintViolation struct {
	// Period at which the violation was detected.
	Period int
	// Invariant names the broken invariant, e.g. "self-financing".
	Invariant string
	// Residual is the measured violation magnitude.
	Residual float64
}

func (e *ConstraintViolation) Error() string {
	return fmt.Sprintf("constraint violation at period %d: %s residual %.3e", e.Period, e.Invariant, e.Residual)
}

// BankruptcyError signals that the portfolio value went non-positive during a
// backtest. The run stops with a truncated trajectory.
type BankruptcyError struct {
	Period int
	Value  float64
}

func (e *BankruptcyError) Error() string {
	return fmt.Sprintf("portfolio went bankrupt at period %d (value %.3e)", e.Period, e.Value)
}

// IsRecoverable reports whether a policy failure may be absorbed by the
// configured fallback trade (infeasibility and solver failures are, data and
// invariant errors are not).
func IsRecoverable(err error) bool {
	if errors.Is(err, ErrInfeasible) || errors.Is(err, ErrUnbounded) {
		return true
	}

	var solverErr *SolverError

	return errors.As(err, &solverErr)
}
