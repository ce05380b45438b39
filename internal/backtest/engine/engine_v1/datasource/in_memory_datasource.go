package datasource

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// InMemoryDataSource serves preloaded bars. It is used by tests and by callers that
// already hold the history in memory.
type InMemoryDataSource struct {
	// data[symbol] is kept sorted by date
	data map[string][]types.Bar
	mu   sync.RWMutex
}

// NewInMemoryDataSource creates a data source over the given bars, keyed by symbol.
// The slices are copied and sorted by date.
func NewInMemoryDataSource(data map[string][]types.Bar) *InMemoryDataSource {
	ds := &InMemoryDataSource{
		data: make(map[string][]types.Bar, len(data)),
		mu:   sync.RWMutex{},
	}

	for symbol, bars := range data {
		ds.Add(symbol, bars...)
	}

	return ds
}

// Add appends bars to symbol's series.
func (ds *InMemoryDataSource) Add(symbol string, bars ...types.Bar) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	series := append(slices.Clone(ds.data[symbol]), bars...)
	slices.SortStableFunc(series, func(a, b types.Bar) int {
		return a.Date.Compare(b.Date)
	})

	ds.data[symbol] = series
}

// Initialize implements DataSource. The in-memory source has nothing to attach.
func (ds *InMemoryDataSource) Initialize(_ string) error {
	return nil
}

// Symbols implements DataSource.
func (ds *InMemoryDataSource) Symbols(_ context.Context) ([]string, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	symbols := make([]string, 0, len(ds.data))
	for symbol := range ds.data {
		symbols = append(symbols, symbol)
	}

	slices.Sort(symbols)

	return symbols, nil
}

// LoadSeries implements DataSource. The returned slice is a copy.
func (ds *InMemoryDataSource) LoadSeries(ctx context.Context, symbol string, start time.Time, end time.Time) ([]types.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds.mu.RLock()
	defer ds.mu.RUnlock()

	series := ds.data[symbol]
	limit := end.AddDate(0, 0, 1)

	from, _ := slices.BinarySearchFunc(series, start, func(bar types.Bar, t time.Time) int {
		return bar.Date.Compare(t)
	})
	to, _ := slices.BinarySearchFunc(series, limit, func(bar types.Bar, t time.Time) int {
		return bar.Date.Compare(t)
	})

	if from >= to {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no bars found for symbol %s between %s and %s",
			symbol, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	return slices.Clone(series[from:to]), nil
}

// Close implements DataSource.
func (ds *InMemoryDataSource) Close() error {
	return nil
}
