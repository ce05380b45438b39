package types

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type StatisticsTestSuite struct {
	suite.Suite
	tempDir string
}

func TestStatisticsSuite(t *testing.T) {
	suite.Run(t, new(StatisticsTestSuite))
}

func (suite *StatisticsTestSuite) SetupTest() {
	tempDir, err := os.MkdirTemp("", "statistics_test")
	suite.NoError(err)
	suite.tempDir = tempDir
}

func (suite *StatisticsTestSuite) TearDownTest() {
	os.RemoveAll(suite.tempDir)
}

func (suite *StatisticsTestSuite) sampleRun() BacktestRun {
	return BacktestRun{
		ID:           "run-1",
		StrategyName: "golden cross",
		StrategyKind: StrategyKindCrossover,
		StartDate:    time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		Symbols:      []string{"AAPL", "MSFT"},
		Status:       RunStatusCompletedWithFailures,
		Metrics: PerformanceMetrics{
			MetricTotalReturn:  12.5,
			MetricWinRate:      math.NaN(),
			MetricProfitFactor: math.Inf(1),
		},
		SymbolResults: []SymbolResult{
			{
				Symbol:  "AAPL",
				Status:  SymbolStatusSucceeded,
				Trades:  []Trade{{Symbol: "AAPL"}, {Symbol: "AAPL"}},
				Metrics: PerformanceMetrics{MetricTotalTrades: 2},
			},
			{
				Symbol: "MSFT",
				Status: SymbolStatusFailed,
				Error:  "no bars for symbol MSFT",
			},
		},
		SkippedSignals: 3,
	}
}

func (suite *StatisticsTestSuite) TestNewRunStats() {
	stats := NewRunStats(suite.sampleRun())

	suite.Equal("run-1", stats.ID)
	suite.Equal(RunStatusCompletedWithFailures, stats.Status)
	suite.Len(stats.SymbolResults, 2)
	suite.Equal(2, stats.SymbolResults[0].NumberOfTrades)
	suite.Equal(0, stats.SymbolResults[1].NumberOfTrades)
	suite.Equal("no bars for symbol MSFT", stats.SymbolResults[1].Error)
	suite.Equal(3, stats.SkippedSignals)
}

func (suite *StatisticsTestSuite) TestWriteRunStats() {
	filePath := filepath.Join(suite.tempDir, "stats.yaml")
	err := WriteRunStats(filePath, NewRunStats(suite.sampleRun()))
	suite.NoError(err)

	data, err := os.ReadFile(filePath)
	suite.NoError(err)

	var readStats map[string]any
	err = yaml.Unmarshal(data, &readStats)
	suite.NoError(err)

	suite.Equal("run-1", readStats["id"])
	suite.Equal("golden cross", readStats["strategy"])
	suite.Equal("crossover", readStats["kind"])

	metrics, ok := readStats["metrics"].(map[string]any)
	suite.Require().True(ok)
	suite.Equal(12.5, metrics[MetricTotalReturn])
	suite.Nil(metrics[MetricWinRate])
	suite.Equal("+Inf", metrics[MetricProfitFactor])
}

func (suite *StatisticsTestSuite) TestWriteRunStatsInvalidPath() {
	// Try to write to a non-existent directory
	filePath := filepath.Join(suite.tempDir, "nonexistent", "dir", "stats.yaml")
	err := WriteRunStats(filePath, RunStats{ID: "run-1"})
	suite.Error(err)
}
