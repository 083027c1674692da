package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/jxwng/cvxportfolio/internal/logger"
	"github.com/jxwng/cvxportfolio/internal/types"
)

// RunState persists the trajectory of one backtest run to an in-memory
// DuckDB, one row per period plus one row per asset position, and can export
// both tables next to the stats file.
type RunState struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
	runID  string
}

// PersistedPeriod is one row of the periods table read back from the state.
type PersistedPeriod struct {
	Period        int
	Time          time.Time
	Value         float64
	CashReturn    float64
	Transaction   float64
	Holding       float64
	PolicySeconds float64
	SimSeconds    float64
}

func NewRunState(log *logger.Logger) (*RunState, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &RunState{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		runID:  uuid.New().String(),
	}, nil
}

// RunID identifies this run in persisted results.
func (s *RunState) RunID() string {
	return s.runID
}

// Initialize creates the tables for tracking periods and positions.
func (s *RunState) Initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS periods (
			run_id TEXT,
			period INTEGER,
			timestamp TIMESTAMP,
			value DOUBLE,
			cash_return DOUBLE,
			transaction_cost DOUBLE,
			holding_cost DOUBLE,
			policy_seconds DOUBLE,
			simulator_seconds DOUBLE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create periods table: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS positions (
			run_id TEXT,
			period INTEGER,
			asset TEXT,
			holding DOUBLE,
			trade DOUBLE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create positions table: %w", err)
	}

	return nil
}

// AppendPeriod records one simulated period and its per-asset positions.
func (s *RunState) AppendPeriod(universe types.Universe, rec types.PeriodRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	value := 0.0
	for _, h := range rec.Holdings {
		value += h
	}

	insertPeriod := s.sq.
		Insert("periods").
		Columns(
			"run_id", "period", "timestamp", "value", "cash_return",
			"transaction_cost", "holding_cost", "policy_seconds", "simulator_seconds",
		).
		Values(
			s.runID, rec.Period, rec.Time, value, rec.CashReturn,
			rec.Costs.Transaction, rec.Costs.Holding,
			rec.PolicyTime.Seconds(), rec.SimulatorTime.Seconds(),
		).
		RunWith(tx)

	if _, err = insertPeriod.Exec(); err != nil {
		tx.Rollback()

		return fmt.Errorf("failed to insert period: %w", err)
	}

	insertPositions := s.sq.
		Insert("positions").
		Columns("run_id", "period", "asset", "holding", "trade")

	for i, asset := range universe.Assets {
		insertPositions = insertPositions.Values(s.runID, rec.Period, asset, rec.Holdings[i], rec.Trade[i])
	}

	if _, err = insertPositions.RunWith(tx).Exec(); err != nil {
		tx.Rollback()

		return fmt.Errorf("failed to insert positions: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit period: %w", err)
	}

	return nil
}

// Periods reads the recorded periods back in period order.
func (s *RunState) Periods() ([]PersistedPeriod, error) {
	query := s.sq.
		Select(
			"period", "timestamp", "value", "cash_return",
			"transaction_cost", "holding_cost", "policy_seconds", "simulator_seconds",
		).
		From("periods").
		Where(squirrel.Eq{"run_id": s.runID}).
		OrderBy("period").
		RunWith(s.db)

	rows, err := query.Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query periods: %w", err)
	}
	defer rows.Close()

	var periods []PersistedPeriod

	for rows.Next() {
		var p PersistedPeriod
		if err := rows.Scan(
			&p.Period, &p.Time, &p.Value, &p.CashReturn,
			&p.Transaction, &p.Holding, &p.PolicySeconds, &p.SimSeconds,
		); err != nil {
			return nil, fmt.Errorf("failed to scan period: %w", err)
		}

		periods = append(periods, p)
	}

	return periods, rows.Err()
}

// Holdings reads the recorded per-asset holdings of one period, in universe
// order.
func (s *RunState) Holdings(universe types.Universe, period int) ([]float64, error) {
	holdings := make([]float64, universe.Size())
	index := make(map[string]int, universe.Size())

	for i, asset := range universe.Assets {
		index[asset] = i
	}

	query := s.sq.
		Select("asset", "holding").
		From("positions").
		Where(squirrel.Eq{"run_id": s.runID, "period": period}).
		RunWith(s.db)

	rows, err := query.Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			asset   string
			holding float64
		)

		if err := rows.Scan(&asset, &holding); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}

		i, ok := index[asset]
		if !ok {
			return nil, fmt.Errorf("position for unknown asset %s", asset)
		}

		holdings[i] = holding
	}

	return holdings, rows.Err()
}

// Write exports the run's tables as Parquet files under path.
func (s *RunState) Write(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Raw SQL since squirrel does not support COPY; single quotes in the
	// path are doubled to keep the string literal intact.
	periodsPath := filepath.Join(path, "periods.parquet")

	_, err := s.db.Exec(fmt.Sprintf(`COPY periods TO '%s' (FORMAT PARQUET)`, escapePath(periodsPath)))
	if err != nil {
		return fmt.Errorf("failed to export periods to Parquet: %w", err)
	}

	positionsPath := filepath.Join(path, "positions.parquet")

	_, err = s.db.Exec(fmt.Sprintf(`COPY positions TO '%s' (FORMAT PARQUET)`, escapePath(positionsPath)))
	if err != nil {
		return fmt.Errorf("failed to export positions to Parquet: %w", err)
	}

	s.logger.Info("Exported backtest run to Parquet files",
		zap.String("run_id", s.runID),
		zap.String("periods", periodsPath),
		zap.String("positions", positionsPath),
	)

	return nil
}

func escapePath(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}

// Cleanup closes the underlying database.
func (s *RunState) Cleanup() error {
	return s.db.Close()
}
