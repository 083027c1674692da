package engine

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"

	"github.com/jxwng/cvxportfolio/internal/backtest/engine"
	"github.com/jxwng/cvxportfolio/internal/costs"
	"github.com/jxwng/cvxportfolio/internal/forecast"
	"github.com/jxwng/cvxportfolio/internal/logger"
	"github.com/jxwng/cvxportfolio/internal/marketdata"
	"github.com/jxwng/cvxportfolio/internal/optimizer"
	"github.com/jxwng/cvxportfolio/internal/policy"
	"github.com/jxwng/cvxportfolio/internal/types"
)

// selfFinancingTol is the largest relative residual of the accounting
// identity sum(u) + costs = 0 tolerated after the cash leg is finalized.
const selfFinancingTol = 1e-6

type SimulatorV1 struct {
	config        SimulatorV1Config
	log           *logger.Logger
	pol           policy.Policy
	provider      marketdata.Provider
	resultsFolder string
	state         *RunState
	tcost         costs.Model
	hcost         costs.Model

	mu     sync.RWMutex
	status engine.Status
}

func NewSimulatorV1() engine.Engine {
	return &SimulatorV1{
		config: EmptyConfig(),
		status: engine.StatusNotStarted,
	}
}

// Initialize implements engine.Engine.
func (s *SimulatorV1) Initialize(config string) error {
	c := EmptyConfig()
	if err := yaml.Unmarshal([]byte(config), &c); err != nil {
		return err
	}

	applyDefaults(&c)

	if err := c.Validate(); err != nil {
		return err
	}

	s.config = c

	var loggerError error

	s.log, loggerError = logger.NewLogger()
	if loggerError != nil {
		return loggerError
	}

	s.log.Debug("Simulator initialized",
		zap.String("policy", string(c.Policy.Type)),
		zap.Float64("initial_capital", c.InitialCapital),
	)

	state, err := NewRunState(s.log)
	if err != nil {
		return fmt.Errorf("failed to create run state: %w", err)
	}

	if err := state.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize run state: %w", err)
	}

	s.state = state
	s.tcost = costs.GetTransactionCost(transactionKind(c.Costs), costParams(c.Costs))
	s.hcost = costs.GetHoldingCost(holdingKind(c.Costs), costParams(c.Costs))

	pol, err := s.buildPolicy()
	if err != nil {
		return err
	}

	s.pol = pol

	return nil
}

// SetPolicy implements engine.Engine. It overrides the policy selected by the
// configuration.
func (s *SimulatorV1) SetPolicy(p policy.Policy) error {
	s.pol = p

	if s.log != nil {
		s.log.Debug("Policy set", zap.String("policy", p.Name()))
	}

	return nil
}

// SetProvider implements engine.Engine.
func (s *SimulatorV1) SetProvider(provider marketdata.Provider) error {
	s.provider = provider

	if s.log != nil {
		s.log.Debug("Provider set", zap.Int("periods", provider.Len()))
	}

	return nil
}

// SetResultsFolder implements engine.Engine.
func (s *SimulatorV1) SetResultsFolder(folder string) error {
	s.resultsFolder = folder

	if s.log != nil {
		s.log.Debug("Results folder set", zap.String("folder", folder))
	}

	return nil
}

// Status implements engine.Engine.
func (s *SimulatorV1) Status() engine.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.status
}

// GetConfigSchema implements engine.Engine.
func (s *SimulatorV1) GetConfigSchema() (string, error) {
	return s.config.GenerateSchemaJSON()
}

// Run implements engine.Engine. The loop at each period serves the policy a
// snapshot, finalizes and executes the proposed trade, charges realized costs
// to cash and applies the period's returns. Failures truncate the trajectory,
// which is returned alongside the error.
func (s *SimulatorV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (traj *types.Trajectory, err error) {
	if err := s.setRunning(); err != nil {
		return nil, err
	}

	defer func() {
		s.setFinished(err)

		if callbacks.OnRunEnd != nil {
			runID := ""
			if s.state != nil {
				runID = s.state.RunID()
			}

			(*callbacks.OnRunEnd)(runID, err)
		}
	}()

	if s.state == nil {
		return nil, fmt.Errorf("engine is not initialized")
	}

	if s.provider == nil {
		return nil, fmt.Errorf("no market data provider set")
	}

	if s.pol == nil {
		return nil, fmt.Errorf("no policy set")
	}

	universe := s.provider.Universe()
	calendar := s.provider.TradingCalendar()
	start, end, err := s.periodRange()
	if err != nil {
		return nil, err
	}

	holdings := make([]float64, universe.Size())
	holdings[universe.CashIndex()] = s.config.InitialCapital

	traj = &types.Trajectory{Universe: universe}

	if callbacks.OnRunStart != nil {
		if err := (*callbacks.OnRunStart)(s.state.RunID(), s.pol.Name(), end-start); err != nil {
			return traj, err
		}
	}

	for period := start; period < end; period++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			s.finalize(traj, holdings, calendar, period, false)

			return traj, fmt.Errorf("backtest cancelled at period %d: %w", period, ctxErr)
		}

		snap, serveErr := s.provider.Serve(period)
		if serveErr != nil {
			s.finalize(traj, holdings, calendar, period, false)

			return traj, serveErr
		}

		preTrade := types.PortfolioState{Period: period, Time: calendar[period], Holdings: holdings}

		policyStart := time.Now()
		proposed, policyErr := s.pol.ProposeTrade(ctx, preTrade.Copy(), snap)
		policyTime := time.Since(policyStart)

		if policyErr != nil {
			s.finalize(traj, holdings, calendar, period, false)

			return traj, fmt.Errorf("policy failed at period %d: %w", period, policyErr)
		}

		simStart := time.Now()

		rec, next, execErr := s.executePeriod(period, calendar[period], holdings, proposed, snap)
		if execErr != nil {
			s.finalize(traj, holdings, calendar, period, false)

			return traj, execErr
		}

		rec.PolicyTime = policyTime
		rec.SimulatorTime = time.Since(simStart)
		traj.Append(rec)

		if stateErr := s.state.AppendPeriod(universe, rec); stateErr != nil {
			s.finalize(traj, next, calendar, period+1, false)

			return traj, stateErr
		}

		holdings = next

		if value := floats.Sum(holdings); !(value > 0) {
			s.finalize(traj, holdings, calendar, period+1, false)

			return traj, &types.BankruptcyError{Period: period, Value: value}
		}

		if callbacks.OnPeriod != nil {
			if err := (*callbacks.OnPeriod)(period-start+1, end-start); err != nil {
				s.finalize(traj, holdings, calendar, period+1, false)

				return traj, err
			}
		}
	}

	s.finalize(traj, holdings, calendar, end, true)

	if s.resultsFolder != "" {
		folder := filepath.Join(s.resultsFolder, fmt.Sprintf("%s_%s", s.pol.Name(), s.state.RunID()))
		if writeErr := s.state.Write(folder); writeErr != nil {
			return traj, writeErr
		}
	}

	return traj, nil
}

// executePeriod finalizes the cash leg of the proposed trade under the
// self-financing condition, checks the accounting identity and applies the
// period's realized returns.
func (s *SimulatorV1) executePeriod(period int, t time.Time, holdings []float64, proposed types.Trade, snap *marketdata.Snapshot) (types.PeriodRecord, []float64, error) {
	n := len(holdings)
	cash := n - 1

	if len(proposed) != n {
		return types.PeriodRecord{}, nil, types.NewDataError(
			"policy returned a trade of length %d for a universe of %d members", len(proposed), n)
	}

	trade := make(types.Trade, n)
	copy(trade, proposed)

	if s.config.RoundShares && snap.CurrentPrices != nil {
		roundToShares(trade, snap.CurrentPrices)
	}

	post := make([]float64, n)
	for i := range post {
		post[i] = holdings[i] + trade[i]
	}

	tcostVal, perAsset, err := s.tcost.Realized(post, trade, snap)
	if err != nil {
		return types.PeriodRecord{}, nil, err
	}

	hcostVal, _, err := s.hcost.Realized(post, trade, snap)
	if err != nil {
		return types.PeriodRecord{}, nil, err
	}

	// The cash leg absorbs the non-cash legs and both costs, making the
	// trade self-financing by construction.
	sumNonCash := 0.0
	for _, u := range trade[:cash] {
		sumNonCash += u
	}

	trade[cash] = -(sumNonCash + tcostVal + hcostVal)
	post[cash] = holdings[cash] + trade[cash]

	residual := math.Abs(floats.Sum(trade)+tcostVal+hcostVal) / math.Max(1, math.Abs(floats.Sum(holdings)))
	if residual > selfFinancingTol {
		return types.PeriodRecord{}, nil, &types.ConstraintViolation{
			Period:    period,
			Invariant: "self-financing",
			Residual:  residual,
		}
	}

	returns, err := s.provider.RealizedReturns(period)
	if err != nil {
		return types.PeriodRecord{}, nil, err
	}

	next := make([]float64, n)
	for i := range next {
		next[i] = post[i] * (1 + returns[i])
	}

	pre := make([]float64, n)
	copy(pre, holdings)

	rec := types.PeriodRecord{
		Period:   period,
		Time:     t,
		Holdings: pre,
		Trade:    trade,
		Costs: types.CostRecord{
			Transaction:         tcostVal,
			Holding:             hcostVal,
			PerAssetTransaction: perAsset,
		},
		CashReturn: returns[cash],
	}

	return rec, next, nil
}

func (s *SimulatorV1) periodRange() (int, int, error) {
	start := s.config.MinHistory
	if s.config.StartPeriod.IsSome() && s.config.StartPeriod.Unwrap() > start {
		start = s.config.StartPeriod.Unwrap()
	}

	end := s.provider.Len()
	if s.config.EndPeriod.IsSome() && s.config.EndPeriod.Unwrap() < end {
		end = s.config.EndPeriod.Unwrap()
	}

	if start >= end {
		return 0, 0, types.NewDataError(
			"no periods to simulate: start %d, end %d, calendar length %d", start, end, s.provider.Len())
	}

	return start, end, nil
}

// finalize stamps the terminal holdings onto the trajectory. The final
// holdings are valued at the period after the last executed one when the
// calendar still has it, otherwise at the last calendar timestamp.
func (s *SimulatorV1) finalize(traj *types.Trajectory, holdings []float64, calendar []time.Time, nextPeriod int, completed bool) {
	final := make([]float64, len(holdings))
	copy(final, holdings)

	traj.FinalHoldings = final
	traj.Completed = completed

	if nextPeriod < len(calendar) {
		traj.FinalTime = calendar[nextPeriod]
	} else if len(calendar) > 0 {
		traj.FinalTime = calendar[len(calendar)-1]
	}
}

func (s *SimulatorV1) buildPolicy() (policy.Policy, error) {
	pc := s.config.Policy

	switch pc.Type {
	case PolicyTypeHold:
		return policy.NewHold(), nil
	case PolicyTypeUniform:
		return &policy.Uniform{Leverage: pc.Leverage}, nil
	case PolicyTypeSPO, PolicyTypeMPO:
		forecaster := forecast.NewHistoricalMeanVariance()
		forecaster.MinHistory = s.config.MinHistory

		solver := optimizer.NewGonumSolver(s.log)
		if s.config.SolveSeconds > 0 {
			solver.MaxSolveTime = time.Duration(s.config.SolveSeconds * float64(time.Second))
		}

		opts := policy.OptimizationOptions{
			Horizon:      pc.Horizon,
			RiskAversion: pc.RiskAversion,
			Discount:     pc.Discount,
			Constraints:  pc.Constraints,
			Fallback:     pc.Fallback,
		}

		if pc.Type == PolicyTypeSPO {
			return policy.NewSinglePeriodOptimization(opts, forecaster, s.tcost, s.hcost, solver, s.log)
		}

		return policy.NewMultiPeriodOptimization(opts, forecaster, s.tcost, s.hcost, solver, s.log)
	default:
		return nil, fmt.Errorf("unsupported policy type: %s", pc.Type)
	}
}

func (s *SimulatorV1) setRunning() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == engine.StatusRunning {
		return fmt.Errorf("backtest is already running")
	}

	s.status = engine.StatusRunning

	return nil
}

func (s *SimulatorV1) setFinished(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.status = engine.StatusFailed
	} else {
		s.status = engine.StatusCompleted
	}
}

// roundToShares snaps the non-cash trade legs to whole share counts at the
// quoted prices, using decimal arithmetic to avoid drift on large positions.
func roundToShares(trade types.Trade, prices []float64) {
	for i := 0; i < len(trade)-1 && i < len(prices); i++ {
		if prices[i] <= 0 || trade[i] == 0 {
			continue
		}

		price := decimal.NewFromFloat(prices[i])
		shares := decimal.NewFromFloat(trade[i]).Div(price).Round(0)
		trade[i], _ = shares.Mul(price).Float64()
	}
}

func applyDefaults(c *SimulatorV1Config) {
	if c.MinHistory < 1 {
		c.MinHistory = 1
	}

	if c.PeriodsPerYear <= 0 {
		c.PeriodsPerYear = 252
	}

	if c.SolveSeconds <= 0 {
		c.SolveSeconds = 30
	}

	if c.Policy.Type == "" {
		c.Policy.Type = PolicyTypeHold
	}

	if c.Policy.Discount <= 0 {
		c.Policy.Discount = 1
	}

	if c.Policy.Leverage <= 0 {
		c.Policy.Leverage = 1
	}

	if c.Policy.Horizon < 1 {
		c.Policy.Horizon = 1
	}

	if c.Policy.Fallback == "" {
		c.Policy.Fallback = policy.FallbackNone
	}
}

func costParams(c CostConfig) costs.Params {
	return costs.Params{
		SpreadBps:     c.SpreadBps,
		ImpactCoeff:   c.ImpactCoeff,
		BorrowRateBps: c.BorrowRateBps,
	}
}

func transactionKind(c CostConfig) costs.TransactionKind {
	if c.SpreadBps == 0 && c.ImpactCoeff == 0 {
		return costs.TransactionZero
	}

	return costs.TransactionLinearImpact
}

func holdingKind(c CostConfig) costs.HoldingKind {
	if c.BorrowRateBps == 0 {
		return costs.HoldingZero
	}

	return costs.HoldingBorrow
}
