package datasource_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/mocks"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

// CachedDataSourceTestSuite is a test suite for CachedDataSource
type CachedDataSourceTestSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	underlying *mocks.MockDataSource
	cached     *datasource.CachedDataSource
	start      time.Time
	end        time.Time
}

func TestCachedDataSourceSuite(t *testing.T) {
	suite.Run(t, new(CachedDataSourceTestSuite))
}

func (suite *CachedDataSourceTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.underlying = mocks.NewMockDataSource(suite.ctrl)
	suite.cached = datasource.NewCachedDataSource(suite.underlying)
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.end = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
}

func testSeries(symbol string) []types.Bar {
	return []types.Bar{
		{Symbol: symbol, Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100},
		{Symbol: symbol, Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Open: 10.5, High: 12, Low: 10, Close: 11.5, Volume: 120},
	}
}

func (suite *CachedDataSourceTestSuite) TestSecondLoadHitsCache() {
	suite.underlying.EXPECT().
		LoadSeries(gomock.Any(), "AAPL", suite.start, suite.end).
		Return(testSeries("AAPL"), nil).
		Times(1)

	first, err := suite.cached.LoadSeries(context.Background(), "AAPL", suite.start, suite.end)
	suite.Require().NoError(err)

	second, err := suite.cached.LoadSeries(context.Background(), "AAPL", suite.start, suite.end)
	suite.Require().NoError(err)

	suite.Equal(first, second)
}

func (suite *CachedDataSourceTestSuite) TestReturnedSliceIsACopy() {
	suite.underlying.EXPECT().
		LoadSeries(gomock.Any(), "AAPL", suite.start, suite.end).
		Return(testSeries("AAPL"), nil).
		Times(1)

	first, err := suite.cached.LoadSeries(context.Background(), "AAPL", suite.start, suite.end)
	suite.Require().NoError(err)

	first[0].Close = 999

	second, err := suite.cached.LoadSeries(context.Background(), "AAPL", suite.start, suite.end)
	suite.Require().NoError(err)
	suite.Equal(10.5, second[0].Close)
}

func (suite *CachedDataSourceTestSuite) TestDifferentRangesAreSeparateEntries() {
	other := suite.end.AddDate(0, -6, 0)

	suite.underlying.EXPECT().
		LoadSeries(gomock.Any(), "AAPL", suite.start, suite.end).
		Return(testSeries("AAPL"), nil).
		Times(1)
	suite.underlying.EXPECT().
		LoadSeries(gomock.Any(), "AAPL", suite.start, other).
		Return(testSeries("AAPL")[:1], nil).
		Times(1)

	full, err := suite.cached.LoadSeries(context.Background(), "AAPL", suite.start, suite.end)
	suite.Require().NoError(err)

	partial, err := suite.cached.LoadSeries(context.Background(), "AAPL", suite.start, other)
	suite.Require().NoError(err)

	suite.Len(full, 2)
	suite.Len(partial, 1)
}

func (suite *CachedDataSourceTestSuite) TestErrorsAreNotCached() {
	gomock.InOrder(
		suite.underlying.EXPECT().
			LoadSeries(gomock.Any(), "AAPL", suite.start, suite.end).
			Return(nil, errors.New(errors.ErrCodeQueryFailed, "boom")),
		suite.underlying.EXPECT().
			LoadSeries(gomock.Any(), "AAPL", suite.start, suite.end).
			Return(testSeries("AAPL"), nil),
	)

	_, err := suite.cached.LoadSeries(context.Background(), "AAPL", suite.start, suite.end)
	suite.True(errors.HasCode(err, errors.ErrCodeQueryFailed))

	bars, err := suite.cached.LoadSeries(context.Background(), "AAPL", suite.start, suite.end)
	suite.Require().NoError(err)
	suite.Len(bars, 2)
}

func (suite *CachedDataSourceTestSuite) TestInitializeClearsCache() {
	suite.underlying.EXPECT().
		LoadSeries(gomock.Any(), "AAPL", suite.start, suite.end).
		Return(testSeries("AAPL"), nil).
		Times(2)
	suite.underlying.EXPECT().Initialize("data.parquet").Return(nil)

	_, err := suite.cached.LoadSeries(context.Background(), "AAPL", suite.start, suite.end)
	suite.Require().NoError(err)

	suite.Require().NoError(suite.cached.Initialize("data.parquet"))

	_, err = suite.cached.LoadSeries(context.Background(), "AAPL", suite.start, suite.end)
	suite.Require().NoError(err)
}

func (suite *CachedDataSourceTestSuite) TestConcurrentLoads() {
	suite.underlying.EXPECT().
		LoadSeries(gomock.Any(), "AAPL", suite.start, suite.end).
		Return(testSeries("AAPL"), nil).
		MinTimes(1).
		MaxTimes(8)

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			bars, err := suite.cached.LoadSeries(context.Background(), "AAPL", suite.start, suite.end)
			suite.NoError(err)
			suite.Len(bars, 2)
		}()
	}

	wg.Wait()
}

func (suite *CachedDataSourceTestSuite) TestPassthroughMethods() {
	suite.underlying.EXPECT().Symbols(gomock.Any()).Return([]string{"AAPL", "MSFT"}, nil)
	suite.underlying.EXPECT().Close().Return(nil)

	symbols, err := suite.cached.Symbols(context.Background())
	suite.Require().NoError(err)
	suite.Equal([]string{"AAPL", "MSFT"}, symbols)

	suite.NoError(suite.cached.Close())
}
