package marketdata

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jxwng/cvxportfolio/internal/logger"
	"github.com/jxwng/cvxportfolio/internal/types"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// DuckDBLoader builds an InMemory provider from per-asset OHLCV files
// (CSV or Parquet, one file per asset with columns time, open, high, low,
// close, volume). Files are read through DuckDB and aligned on the
// intersection of their calendars; per-period returns are computed from
// close prices and volumes are converted to currency units.
type DuckDBLoader struct {
	db     *sql.DB
	logger *logger.Logger
	// CashKey names the cash account of the resulting universe.
	CashKey string
	// CashReturn is the constant per-period risk-free return applied to
	// the cash account.
	CashReturn float64
}

// NewDuckDBLoader opens an in-memory DuckDB used only during loading.
func NewDuckDBLoader(log *logger.Logger) (*DuckDBLoader, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	return &DuckDBLoader{
		db:      db,
		logger:  log,
		CashKey: types.DefaultCashKey,
	}, nil
}

// Close releases the loader's database handle.
func (l *DuckDBLoader) Close() error {
	return l.db.Close()
}

type assetSeries struct {
	closes  map[time.Time]float64
	volumes map[time.Time]float64
}

// Load reads every file matched by the glob pattern and assembles the
// aligned provider. The asset identifier is the file base name without
// extension.
func (l *DuckDBLoader) Load(pattern string) (*InMemory, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to glob data path: %w", err)
	}

	if len(files) == 0 {
		return nil, types.NewDataError("no data files match %q", pattern)
	}

	sort.Strings(files)

	assets := make([]string, 0, len(files))
	series := make(map[string]*assetSeries, len(files))

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))

		s, err := l.readFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}

		assets = append(assets, name)
		series[name] = s

		l.logger.Debug("Loaded asset file",
			zap.String("asset", name),
			zap.String("file", file),
			zap.Int("rows", len(s.closes)),
		)
	}

	calendar := commonCalendar(series)
	if len(calendar) < 2 {
		return nil, types.NewDataError("aligned calendar has %d periods, need at least 2", len(calendar))
	}

	universe := types.NewUniverse(assets, l.CashKey)

	// Returns are computed close-to-close, so the first aligned timestamp
	// is consumed as the base price and the provider calendar starts at
	// the second one.
	periods := len(calendar) - 1
	returns := mat.NewDense(periods, universe.Size(), nil)
	prices := mat.NewDense(periods, len(assets), nil)
	volumes := mat.NewDense(periods, len(assets), nil)

	for j, name := range assets {
		s := series[name]

		for t := 0; t < periods; t++ {
			prev := s.closes[calendar[t]]
			cur := s.closes[calendar[t+1]]

			if prev <= 0 {
				return nil, types.NewDataError("non-positive close for %s at %s", name, calendar[t])
			}

			returns.Set(t, j, cur/prev-1)
			prices.Set(t, j, cur)
			volumes.Set(t, j, s.volumes[calendar[t+1]]*cur)
		}
	}

	for t := 0; t < periods; t++ {
		returns.Set(t, universe.CashIndex(), l.CashReturn)
	}

	return NewInMemory(universe, calendar[1:], returns, prices, volumes)
}

func (l *DuckDBLoader) readFile(path string) (*assetSeries, error) {
	reader := "read_csv_auto"
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		reader = "read_parquet"
	}

	query := fmt.Sprintf(
		`SELECT time, close, volume FROM %s('%s') ORDER BY time`, reader, path)

	rows, err := l.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	s := &assetSeries{
		closes:  make(map[time.Time]float64),
		volumes: make(map[time.Time]float64),
	}

	for rows.Next() {
		var (
			t      time.Time
			close  float64
			volume float64
		)

		if err := rows.Scan(&t, &close, &volume); err != nil {
			return nil, err
		}

		t = t.UTC()
		s.closes[t] = close
		s.volumes[t] = volume
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(s.closes) == 0 {
		return nil, types.NewDataError("file %s holds no rows", path)
	}

	return s, nil
}

func commonCalendar(series map[string]*assetSeries) []time.Time {
	counts := make(map[time.Time]int)

	for _, s := range series {
		for t := range s.closes {
			counts[t]++
		}
	}

	calendar := make([]time.Time, 0, len(counts))

	for t, n := range counts {
		if n == len(series) {
			calendar = append(calendar, t)
		}
	}

	sort.Slice(calendar, func(i, j int) bool { return calendar[i].Before(calendar[j]) })

	return calendar
}
