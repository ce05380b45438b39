package datasource

import (
	"context"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestInMemoryDataSource(t *testing.T) {
	bars := []types.Bar{
		{Symbol: "AAPL", Date: day(4), Open: 13, High: 14, Low: 12, Close: 13.5, Volume: 10},
		{Symbol: "AAPL", Date: day(2), Open: 11, High: 12, Low: 10, Close: 11.5, Volume: 10},
		{Symbol: "AAPL", Date: day(3), Open: 12, High: 13, Low: 11, Close: 12.5, Volume: 10},
		{Symbol: "AAPL", Date: day(5), Open: 14, High: 15, Low: 13, Close: 14.5, Volume: 10},
	}

	ds := NewInMemoryDataSource(map[string][]types.Bar{
		"AAPL": bars,
		"MSFT": {{Symbol: "MSFT", Date: day(2), Open: 1, High: 1, Low: 1, Close: 1}},
	})

	t.Run("sorted by date and filtered inclusively", func(t *testing.T) {
		series, err := ds.LoadSeries(context.Background(), "AAPL", day(3), day(4))
		require.NoError(t, err)
		require.Len(t, series, 2)
		assert.Equal(t, day(3), series[0].Date)
		assert.Equal(t, day(4), series[1].Date)
	})

	t.Run("end date includes intraday timestamps", func(t *testing.T) {
		ds := NewInMemoryDataSource(map[string][]types.Bar{
			"SPY": {{Symbol: "SPY", Date: day(2).Add(16 * time.Hour), Open: 1, High: 1, Low: 1, Close: 1}},
		})

		series, err := ds.LoadSeries(context.Background(), "SPY", day(1), day(2))
		require.NoError(t, err)
		assert.Len(t, series, 1)
	})

	t.Run("missing symbol", func(t *testing.T) {
		_, err := ds.LoadSeries(context.Background(), "TSLA", day(1), day(31))
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeDataNotFound))
	})

	t.Run("empty range", func(t *testing.T) {
		_, err := ds.LoadSeries(context.Background(), "AAPL", day(10), day(20))
		assert.True(t, errors.HasCode(err, errors.ErrCodeDataNotFound))
	})

	t.Run("caller mutation does not leak", func(t *testing.T) {
		series, err := ds.LoadSeries(context.Background(), "AAPL", day(1), day(31))
		require.NoError(t, err)
		series[0].Close = -1

		again, err := ds.LoadSeries(context.Background(), "AAPL", day(1), day(31))
		require.NoError(t, err)
		assert.Equal(t, 11.5, again[0].Close)
	})

	t.Run("symbols", func(t *testing.T) {
		symbols, err := ds.Symbols(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := ds.LoadSeries(ctx, "AAPL", day(1), day(31))
		assert.ErrorIs(t, err, context.Canceled)
	})

	assert.NoError(t, ds.Close())
}
