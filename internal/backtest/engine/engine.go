// Package engine defines the backtest engine surface: the lifecycle states a
// run moves through, the callbacks an embedder can hook into, and the Engine
// interface implemented by engine versions.
package engine

import (
	"context"

	"github.com/jxwng/cvxportfolio/internal/marketdata"
	"github.com/jxwng/cvxportfolio/internal/policy"
	"github.com/jxwng/cvxportfolio/internal/types"
)

// Status is the lifecycle state of a backtest run.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusRunning    Status = "running"
	StatusCompleted  Status = "completed"
	// StatusFailed is terminal; the trajectory up to the failure stays
	// available for inspection.
	StatusFailed Status = "failed"
)

// Lifecycle callback types for backtest phases.
// Callbacks that return an error abort the run.

// OnRunStartCallback is called once before the first simulated period.
// runID uniquely identifies the run in persisted results.
type OnRunStartCallback func(runID string, policyName string, totalPeriods int) error

// OnPeriodCallback is called after every simulated period.
type OnPeriodCallback func(current int, total int) error

// OnRunEndCallback is called when the run ends (always called via defer).
type OnRunEndCallback func(runID string, err error)

// LifecycleCallbacks holds the callback functions for a backtest run.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnRunStart *OnRunStartCallback
	OnPeriod   *OnPeriodCallback
	OnRunEnd   *OnRunEndCallback
}

// Engine runs a trading policy through historical market data.
type Engine interface {
	// Initialize the engine with the given YAML configuration content.
	Initialize(config string) error
	// SetPolicy sets the trading policy to back-test.
	SetPolicy(p policy.Policy) error
	// SetProvider sets the market data source. Providers are read-only
	// during a run, so one provider may be shared across engines.
	SetProvider(provider marketdata.Provider) error
	// SetResultsFolder sets the output directory for persisted results.
	// Empty disables persistence.
	SetResultsFolder(folder string) error
	// Run simulates every period and returns the trajectory. The context
	// cancels the run between periods; a truncated trajectory is still
	// returned alongside the error.
	Run(ctx context.Context, callbacks LifecycleCallbacks) (*types.Trajectory, error)
	// Status reports the lifecycle state; safe to call concurrently with
	// Run.
	Status() Status
	// GetConfigSchema returns the JSON schema of the engine configuration.
	GetConfigSchema() (string, error)
}
