package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/jxwng/cvxportfolio/internal/backtest/engine"
	enginev1 "github.com/jxwng/cvxportfolio/internal/backtest/engine/engine_v1"
	"github.com/jxwng/cvxportfolio/internal/logger"
	"github.com/jxwng/cvxportfolio/internal/marketdata"
	"github.com/jxwng/cvxportfolio/internal/result"
	"github.com/jxwng/cvxportfolio/internal/types"
)

// backtestAction loads market data, runs one backtest per configuration file
// and prints the report table of each run side by side.
func backtestAction(ctx context.Context, cmd *cli.Command) error {
	configGlob := cmd.String("config")
	dataGlob := cmd.String("data")
	resultsFolder := cmd.String("results")

	configFiles, err := filepath.Glob(configGlob)
	if err != nil {
		return fmt.Errorf("failed to expand config pattern: %w", err)
	}

	if len(configFiles) == 0 {
		return fmt.Errorf("no configuration files match %s", configGlob)
	}

	zlog, err := logger.NewLogger()
	if err != nil {
		return err
	}

	loader, err := marketdata.NewDuckDBLoader(zlog)
	if err != nil {
		return fmt.Errorf("failed to create data loader: %w", err)
	}
	defer loader.Close()

	provider, err := loader.Load(dataGlob)
	if err != nil {
		return fmt.Errorf("failed to load market data: %w", err)
	}

	requests := make([]enginev1.RunRequest, 0, len(configFiles))

	for _, configFile := range configFiles {
		content, err := os.ReadFile(configFile)
		if err != nil {
			return fmt.Errorf("failed to read config %s: %w", configFile, err)
		}

		name := filepath.Base(configFile)
		requests = append(requests, enginev1.RunRequest{
			Name:          name,
			Config:        string(content),
			ResultsFolder: resultsFolder,
		})
	}

	if len(requests) == 1 {
		return runSingle(ctx, provider, requests[0])
	}

	// Multiple configurations run concurrently against the shared provider.
	outcomes := enginev1.RunAll(ctx, provider, requests)

	for i, outcome := range outcomes {
		if outcome.Err != nil {
			fmt.Printf("\n%s failed: %v\n", outcome.Name, outcome.Err)

			continue
		}

		if err := printReport(requests[i], outcome.Trajectory); err != nil {
			return err
		}
	}

	return nil
}

// runSingle runs one backtest with a progress bar on the terminal.
func runSingle(ctx context.Context, provider marketdata.Provider, req enginev1.RunRequest) error {
	e := enginev1.NewSimulatorV1()

	if err := e.Initialize(req.Config); err != nil {
		return err
	}

	if err := e.SetProvider(provider); err != nil {
		return err
	}

	if req.ResultsFolder != "" {
		if err := e.SetResultsFolder(req.ResultsFolder); err != nil {
			return err
		}
	}

	var bar *progressbar.ProgressBar

	onStart := engine.OnRunStartCallback(func(runID string, policyName string, totalPeriods int) error {
		fmt.Printf("Running %s (%s)\n", policyName, runID)
		bar = progressbar.Default(int64(totalPeriods))

		return nil
	})

	onPeriod := engine.OnPeriodCallback(func(current int, total int) error {
		return bar.Set(current)
	})

	traj, err := e.Run(ctx, engine.LifecycleCallbacks{
		OnRunStart: &onStart,
		OnPeriod:   &onPeriod,
	})
	if err != nil {
		return err
	}

	return printReport(req, traj)
}

func printReport(req enginev1.RunRequest, traj *types.Trajectory) error {
	// Pull the annualization factor out of the run's configuration; zero
	// lets the analyzer fall back to its daily default.
	var c enginev1.SimulatorV1Config
	_ = yaml.Unmarshal([]byte(req.Config), &c)

	res, err := result.NewBacktestResult(traj, c.PeriodsPerYear)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s%s", req.Name, res.String())

	if req.ResultsFolder != "" {
		statsPath := filepath.Join(req.ResultsFolder, req.Name+"_stats.yaml")
		if err := res.WriteYAML(statsPath); err != nil {
			return err
		}
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Back-test trading policies over historical market data",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Glob of YAML engine configuration files; each file is one run",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Glob of per-asset CSV or Parquet market data files",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "results",
				Aliases:  []string{"r"},
				Usage:    "Output directory for persisted trajectories and stats",
				Value:    "",
				Required: false,
			},
		},
		Action: backtestAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
