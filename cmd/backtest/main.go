package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	enginev1 "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/store"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// runAction loads the strategy and data, runs the backtest and writes the results.
func runAction(ctx context.Context, cmd *cli.Command) error {
	env, err := LoadEnv()
	if err != nil {
		return err
	}

	appLogger, err := logger.NewLoggerWithLevel(env.LogLevel)
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	def, err := strategy.LoadFile(cmd.String("strategy"))
	if err != nil {
		return fmt.Errorf("failed to load strategy: %w", err)
	}

	config, err := loadEngineConfig(cmd.String("config"), env)
	if err != nil {
		return err
	}

	ds, err := openDataSource(cmd.String("data"), cmd.String("indicators"), appLogger)
	if err != nil {
		return err
	}
	defer ds.Close()

	runStore, err := openStore(storePath(cmd, env), appLogger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer runStore.Close()

	symbols := splitSymbols(cmd.String("symbols"))
	if len(symbols) == 0 {
		symbols, err = ds.Symbols(ctx)
		if err != nil {
			return fmt.Errorf("failed to list symbols: %w", err)
		}
	}

	backtester, err := enginev1.NewBacktestEngineV1(config, ds, runStore, appLogger)
	if err != nil {
		return err
	}

	bar := progressbar.Default(int64(len(symbols)), "backtesting")
	onSymbolEnd := engine.OnSymbolEndCallback(func(symbol string, result types.SymbolResult) {
		_ = bar.Add(1)

		if result.Status == types.SymbolStatusFailed {
			appLogger.Debug("Symbol failed", zap.String("symbol", symbol), zap.String("error", result.Error))
		}
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := backtester.Run(ctx, engine.RunRequest{
		Strategy: def,
		Symbols:  symbols,
		Start:    cmd.Timestamp("start"),
		End:      cmd.Timestamp("end"),
		Capital:  cmd.Float("capital"),
	}, engine.LifecycleCallbacks{OnSymbolEnd: &onSymbolEnd})

	_ = bar.Finish()

	if run.ID == "" {
		return err
	}

	if folder := cmd.String("results"); folder != "" {
		if writeErr := writeResults(folder, run, runStore, cmd.Bool("export")); writeErr != nil {
			return writeErr
		}
	}

	fmt.Printf("\nrun %s: %s (%d succeeded, %d failed, %d trades)\n",
		run.ID, run.Status, run.SucceededSymbols, run.FailedSymbols, len(run.Trades))

	if total, ok := run.Metrics.Get(types.MetricTotalReturn); ok {
		fmt.Printf("total return: %.2f%%\n", total*100)
	}

	return err
}

func loadEngineConfig(path string, env Env) (enginev1.BacktestEngineV1Config, error) {
	config := enginev1.EmptyConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return config, fmt.Errorf("failed to read engine config: %w", err)
		}

		config, err = enginev1.ParseConfig(data)
		if err != nil {
			return config, err
		}
	}

	if config.MaxWorkers.IsNone() && env.MaxWorkers > 0 {
		config.MaxWorkers = optional.Some(env.MaxWorkers)
	}

	return config, nil
}

func openDataSource(dataPath, indicatorsPath string, log *logger.Logger) (datasource.DataSource, error) {
	ds, err := datasource.NewDataSource(":memory:", log)
	if err != nil {
		return nil, err
	}

	if err := ds.Initialize(dataPath); err != nil {
		ds.Close()

		return nil, err
	}

	if indicatorsPath != "" {
		if err := ds.InitializeIndicators(indicatorsPath); err != nil {
			ds.Close()

			return nil, err
		}
	}

	return datasource.NewCachedDataSource(ds), nil
}

func writeResults(folder string, run types.BacktestRun, runStore store.RunStore, export bool) error {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return fmt.Errorf("failed to create results folder: %w", err)
	}

	if err := types.WriteRunStats(filepath.Join(folder, "stats.yaml"), types.NewRunStats(run)); err != nil {
		return err
	}

	if !export {
		return nil
	}

	duck, ok := runStore.(*store.DuckDBStore)
	if !ok {
		return fmt.Errorf("--export requires a DuckDB store")
	}

	return duck.Export(filepath.Join(folder, "tables"))
}

func splitSymbols(value string) []string {
	var symbols []string

	for _, symbol := range strings.Split(value, ",") {
		if symbol = strings.TrimSpace(symbol); symbol != "" {
			symbols = append(symbols, symbol)
		}
	}

	return symbols
}

func storePath(cmd *cli.Command, env Env) string {
	if path := cmd.String("store"); path != "" {
		return path
	}

	return env.StorePath
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	var (
		schema string
		err    error
	)

	switch cmd.String("kind") {
	case "strategy":
		schema, err = strategy.Schema()
	case "engine":
		config := enginev1.EmptyConfig()
		schema, err = config.GenerateSchemaJSON()
	default:
		return fmt.Errorf("unknown schema kind %q (expected strategy or engine)", cmd.String("kind"))
	}

	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

// withStore opens the configured store for the read-only commands.
func withStore(cmd *cli.Command, fn func(runStore store.RunStore) error) error {
	env, err := LoadEnv()
	if err != nil {
		return err
	}

	runStore, err := openStore(storePath(cmd, env), logger.NewNopLogger())
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer runStore.Close()

	return fn(runStore)
}

func showAction(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("a run id is required")
	}

	return withStore(cmd, func(runStore store.RunStore) error {
		run, err := runStore.GetRun(ctx, id)
		if err != nil {
			return err
		}

		if run.IsNone() {
			return fmt.Errorf("run %s not found", id)
		}

		data, err := yaml.Marshal(types.NewRunStats(run.Unwrap()))
		if err != nil {
			return err
		}

		fmt.Print(string(data))

		return nil
	})
}

func listAction(ctx context.Context, cmd *cli.Command) error {
	return withStore(cmd, func(runStore store.RunStore) error {
		runs, err := runStore.ListRuns(ctx)
		if err != nil {
			return err
		}

		for _, run := range runs {
			fmt.Printf("%s  %-24s  %-24s  %s..%s  %d symbols  %s\n",
				run.ID,
				run.StrategyName,
				run.Status,
				run.StartDate.Format(time.DateOnly),
				run.EndDate.Format(time.DateOnly),
				len(run.Symbols),
				run.CreatedAt.Format(time.RFC3339),
			)
		}

		return nil
	})
}

func deleteAction(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("a run id is required")
	}

	return withStore(cmd, func(runStore store.RunStore) error {
		return runStore.DeleteRun(ctx, id)
	})
}

func newStoreFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "store",
		Usage: "Path to the run store (.sqlite for SQLite, anything else for DuckDB). Defaults to BACKTEST_STORE_PATH",
	}
}

func main() {
	dateConfig := cli.TimestampConfig{
		Layouts: []string{"2006-01-02"},
	}

	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Replay declarative strategies over historical data",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a backtest",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "strategy",
						Aliases:  []string{"s"},
						Usage:    "Path to the strategy definition (YAML or JSON)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Parquet or CSV file (or glob) with market data",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "indicators",
						Usage: "Optional parquet or CSV file with long-format indicator values",
					},
					&cli.StringFlag{
						Name:  "symbols",
						Usage: "Comma-separated symbols. Defaults to every symbol in the data",
					},
					&cli.TimestampFlag{
						Name:     "start",
						Usage:    "Start date in `YYYY-MM-DD` format",
						Config:   dateConfig,
						Required: true,
					},
					&cli.TimestampFlag{
						Name:     "end",
						Usage:    "End date in `YYYY-MM-DD` format (inclusive)",
						Config:   dateConfig,
						Required: true,
					},
					&cli.FloatFlag{
						Name:  "capital",
						Usage: "Starting capital. Defaults to the strategy's initial capital",
					},
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to the engine configuration YAML",
					},
					&cli.StringFlag{
						Name:    "results",
						Aliases: []string{"r"},
						Usage:   "Folder for stats.yaml",
					},
					&cli.BoolFlag{
						Name:  "export",
						Usage: "Also export the store tables as parquet into the results folder",
					},
					newStoreFlag(),
				},
				Action: runAction,
			},
			{
				Name:  "schema",
				Usage: "Print the JSON schema of a strategy definition or of the engine config",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "kind",
						Usage: "strategy or engine",
						Value: "strategy",
					},
				},
				Action: schemaAction,
			},
			{
				Name:      "show",
				Usage:     "Print a stored run",
				ArgsUsage: "<run-id>",
				Flags:     []cli.Flag{newStoreFlag()},
				Action:    showAction,
			},
			{
				Name:   "list",
				Usage:  "List stored runs, newest first",
				Flags:  []cli.Flag{newStoreFlag()},
				Action: listAction,
			},
			{
				Name:      "delete",
				Usage:     "Delete a stored run",
				ArgsUsage: "<run-id>",
				Flags:     []cli.Flag{newStoreFlag()},
				Action:    deleteAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Println(err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status. Invalid strategies, requests and
// configuration exit with 2 so scripts can tell them apart from run failures.
func exitCode(err error) int {
	if errors.IsConfigurationError(err) {
		return 2
	}

	return 1
}
