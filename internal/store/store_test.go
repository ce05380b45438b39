package store

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type RunStoreTestSuite struct {
	suite.Suite
	open  func(dir string) (RunStore, error)
	store RunStore
}

func TestSQLiteStoreSuite(t *testing.T) {
	suite.Run(t, &RunStoreTestSuite{
		open: func(dir string) (RunStore, error) {
			return NewSQLiteStore(filepath.Join(dir, "runs.sqlite"), logger.NewNopLogger())
		},
	})
}

func TestDuckDBStoreSuite(t *testing.T) {
	suite.Run(t, &RunStoreTestSuite{
		open: func(dir string) (RunStore, error) {
			return NewDuckDBStore(filepath.Join(dir, "runs.duckdb"), logger.NewNopLogger())
		},
	})
}

func (suite *RunStoreTestSuite) SetupTest() {
	store, err := suite.open(suite.T().TempDir())
	suite.Require().NoError(err)
	suite.store = store
}

func (suite *RunStoreTestSuite) TearDownTest() {
	suite.NoError(suite.store.Close())
}

func date(month time.Month, day int) time.Time {
	return time.Date(2024, month, day, 0, 0, 0, 0, time.UTC)
}

func sampleRun(id string) types.BacktestRun {
	trades := []types.Trade{
		{
			Symbol: "AAPL", EntryDate: date(1, 3), EntryPrice: 180.5, ExitDate: date(1, 10), ExitPrice: 195.3,
			Shares: 100, GrossPnL: 1480, Commission: 1, Slippage: 37.58, NetPnL: 1441.42,
			ReturnPercent: 7.9857, HoldingDays: 7, ExitReason: types.ExitReasonExitSignal,
		},
		{
			Symbol: "MSFT", EntryDate: date(1, 4), EntryPrice: 370, ExitDate: date(1, 12), ExitPrice: 360,
			Shares: 10, GrossPnL: -100, Commission: 0.1, Slippage: 0, NetPnL: -100.1,
			ReturnPercent: -2.705, HoldingDays: 8, ExitReason: types.ExitReasonLiquidatedAtEnd, LiquidatedAtEnd: true,
		},
	}

	return types.BacktestRun{
		ID:                  id,
		StrategyName:        "golden cross",
		StrategyKind:        types.StrategyKindCrossover,
		StrategyFingerprint: "abc123",
		StartDate:           date(1, 1),
		EndDate:             date(1, 31),
		Symbols:             []string{"AAPL", "MSFT"},
		Capital:             100000,
		Status:              types.RunStatusCompleted,
		Trades:              trades,
		EquityCurve: types.EquityCurve{
			{Date: date(1, 2), Value: 100000},
			{Date: date(1, 3), Value: 100100},
		},
		Metrics: types.PerformanceMetrics{
			types.MetricTotalReturn:  0.0134,
			types.MetricProfitFactor: math.Inf(1),
			types.MetricSharpeRatio:  types.NoData,
		},
		SymbolResults: []types.SymbolResult{
			{
				Symbol:      "AAPL",
				Status:      types.SymbolStatusSucceeded,
				EquityCurve: types.EquityCurve{{Date: date(1, 2), Value: 50000}},
				Metrics:     types.PerformanceMetrics{types.MetricBuyAndHoldReturn: 0.05},
			},
			{
				Symbol:         "MSFT",
				Status:         types.SymbolStatusSucceeded,
				SkippedSignals: 1,
				Warnings: []types.Warning{
					{Symbol: "MSFT", Date: date(1, 31), Kind: types.WarningKindSkippedSignal, Message: "no_next_bar"},
				},
			},
		},
		SucceededSymbols: 2,
		SkippedSignals:   1,
		Warnings: []types.Warning{
			{Symbol: "MSFT", Date: date(1, 31), Kind: types.WarningKindSkippedSignal, Message: "no_next_bar"},
		},
		EngineVersion: "v1.0.0",
		CreatedAt:     time.Date(2024, 2, 1, 12, 30, 0, 0, time.UTC),
	}
}

func (suite *RunStoreTestSuite) TestGetMissingRun() {
	run, err := suite.store.GetRun(context.Background(), "missing")
	suite.Require().NoError(err)
	suite.True(run.IsNone())
}

func (suite *RunStoreTestSuite) TestSaveAndGetRun() {
	ctx := context.Background()
	expected := sampleRun("run-1")

	suite.Require().NoError(suite.store.SaveRun(ctx, expected))

	result, err := suite.store.GetRun(ctx, "run-1")
	suite.Require().NoError(err)
	suite.Require().True(result.IsSome())

	run := result.Unwrap()
	suite.Equal(expected.ID, run.ID)
	suite.Equal(expected.StrategyName, run.StrategyName)
	suite.Equal(expected.StrategyKind, run.StrategyKind)
	suite.Equal(expected.StrategyFingerprint, run.StrategyFingerprint)
	suite.Equal(expected.StartDate, run.StartDate)
	suite.Equal(expected.EndDate, run.EndDate)
	suite.Equal(expected.Symbols, run.Symbols)
	suite.Equal(expected.Capital, run.Capital)
	suite.Equal(expected.Status, run.Status)
	suite.Equal(expected.Trades, run.Trades)
	suite.Equal(expected.EquityCurve, run.EquityCurve)
	suite.Equal(expected.Warnings, run.Warnings)
	suite.Equal(expected.SkippedSignals, run.SkippedSignals)
	suite.Equal(expected.SucceededSymbols, run.SucceededSymbols)
	suite.Equal(expected.CreatedAt, run.CreatedAt)

	suite.Equal(0.0134, run.Metrics[types.MetricTotalReturn])
	suite.True(math.IsInf(run.Metrics[types.MetricProfitFactor], 1))
	suite.True(math.IsNaN(run.Metrics[types.MetricSharpeRatio]))

	suite.Require().Len(run.SymbolResults, 2)
	suite.Equal("AAPL", run.SymbolResults[0].Symbol)
	suite.Equal(expected.SymbolResults[0].EquityCurve, run.SymbolResults[0].EquityCurve)
	suite.Require().Len(run.SymbolResults[0].Trades, 1)
	suite.Equal("AAPL", run.SymbolResults[0].Trades[0].Symbol)
	suite.Equal(1, run.SymbolResults[1].SkippedSignals)
	suite.Equal(expected.SymbolResults[1].Warnings, run.SymbolResults[1].Warnings)
	suite.True(run.SymbolResults[1].Trades[0].LiquidatedAtEnd)
}

func (suite *RunStoreTestSuite) TestSaveReplacesRun() {
	ctx := context.Background()
	first := sampleRun("run-1")
	suite.Require().NoError(suite.store.SaveRun(ctx, first))

	second := sampleRun("run-1")
	second.Trades = second.Trades[:1]
	second.Status = types.RunStatusCompletedWithFailures
	suite.Require().NoError(suite.store.SaveRun(ctx, second))

	runs, err := suite.store.ListRuns(ctx)
	suite.Require().NoError(err)
	suite.Len(runs, 1)

	result, err := suite.store.GetRun(ctx, "run-1")
	suite.Require().NoError(err)
	suite.Len(result.Unwrap().Trades, 1)
	suite.Equal(types.RunStatusCompletedWithFailures, result.Unwrap().Status)
	suite.Len(result.Unwrap().SymbolResults, 2)
	suite.Len(result.Unwrap().EquityCurve, 2)
}

func (suite *RunStoreTestSuite) TestListRunsNewestFirst() {
	ctx := context.Background()

	older := sampleRun("run-old")
	older.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := sampleRun("run-new")
	newer.CreatedAt = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	suite.Require().NoError(suite.store.SaveRun(ctx, older))
	suite.Require().NoError(suite.store.SaveRun(ctx, newer))

	runs, err := suite.store.ListRuns(ctx)
	suite.Require().NoError(err)
	suite.Require().Len(runs, 2)
	suite.Equal("run-new", runs[0].ID)
	suite.Equal("run-old", runs[1].ID)
	suite.Equal([]string{"AAPL", "MSFT"}, runs[0].Symbols)
	suite.Equal(2, runs[0].SucceededSymbols)
	suite.True(math.IsInf(runs[0].Metrics[types.MetricProfitFactor], 1))
}

func (suite *RunStoreTestSuite) TestDeleteRun() {
	ctx := context.Background()
	suite.Require().NoError(suite.store.SaveRun(ctx, sampleRun("run-1")))
	suite.Require().NoError(suite.store.SaveRun(ctx, sampleRun("run-2")))

	suite.Require().NoError(suite.store.DeleteRun(ctx, "run-1"))

	result, err := suite.store.GetRun(ctx, "run-1")
	suite.Require().NoError(err)
	suite.True(result.IsNone())

	remaining, err := suite.store.GetRun(ctx, "run-2")
	suite.Require().NoError(err)
	suite.Len(remaining.Unwrap().Trades, 2)
}

func (suite *RunStoreTestSuite) TestDeleteMissingRun() {
	err := suite.store.DeleteRun(context.Background(), "missing")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeRunNotFound))
}

func (suite *RunStoreTestSuite) TestSaveRunWithoutID() {
	err := suite.store.SaveRun(context.Background(), types.BacktestRun{})
	suite.True(errors.HasCode(err, errors.ErrCodeStoreFailed))
}

func (suite *RunStoreTestSuite) TestLargeRunIsBatched() {
	ctx := context.Background()
	run := sampleRun("run-large")
	run.EquityCurve = nil

	start := date(1, 1)
	for i := range 1200 {
		run.EquityCurve = append(run.EquityCurve, types.EquityPoint{Date: start.AddDate(0, 0, i), Value: 100000 + float64(i)})
	}

	suite.Require().NoError(suite.store.SaveRun(ctx, run))

	result, err := suite.store.GetRun(ctx, "run-large")
	suite.Require().NoError(err)
	suite.Equal(run.EquityCurve, result.Unwrap().EquityCurve)
}

func TestDuckDBStoreExport(t *testing.T) {
	store, err := NewDuckDBStore(":memory:", logger.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if err := store.SaveRun(context.Background(), sampleRun("run-1")); err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(t.TempDir(), "export")
	if err := store.Export(dir); err != nil {
		t.Fatal(err)
	}

	for _, table := range tables {
		if _, err := os.Stat(filepath.Join(dir, table+".parquet")); err != nil {
			t.Errorf("expected %s.parquet to be exported: %v", table, err)
		}
	}
}
