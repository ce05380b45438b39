package datasource

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"golang.org/x/sync/singleflight"
)

// CachedDataSource wraps a DataSource and caches loaded series by (symbol, start, end).
// Concurrent loads of the same series share one underlying query. Reruns of the same
// request over one data source then skip the database entirely.
type CachedDataSource struct {
	underlying DataSource
	cache      map[string][]types.Bar
	group      singleflight.Group
	mu         sync.RWMutex
}

// NewCachedDataSource creates a new CachedDataSource wrapping the given DataSource.
func NewCachedDataSource(underlying DataSource) *CachedDataSource {
	return &CachedDataSource{
		underlying: underlying,
		cache:      make(map[string][]types.Bar),
		group:      singleflight.Group{},
		mu:         sync.RWMutex{},
	}
}

// ClearCache clears all cached series. Call this after re-initializing the underlying source.
func (c *CachedDataSource) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[string][]types.Bar)
}

// Initialize implements DataSource and clears the cache.
func (c *CachedDataSource) Initialize(path string) error {
	if err := c.underlying.Initialize(path); err != nil {
		return err
	}

	c.ClearCache()

	return nil
}

// Symbols implements DataSource.
func (c *CachedDataSource) Symbols(ctx context.Context) ([]string, error) {
	return c.underlying.Symbols(ctx)
}

// LoadSeries implements DataSource with caching. Errors are not cached.
func (c *CachedDataSource) LoadSeries(ctx context.Context, symbol string, start time.Time, end time.Time) ([]types.Bar, error) {
	key := buildSeriesKey(symbol, start, end)

	c.mu.RLock()
	if bars, ok := c.cache[key]; ok {
		c.mu.RUnlock()

		return slices.Clone(bars), nil
	}
	c.mu.RUnlock()

	value, err, _ := c.group.Do(key, func() (any, error) {
		bars, err := c.underlying.LoadSeries(ctx, symbol, start, end)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[key] = bars
		c.mu.Unlock()

		return bars, nil
	})
	if err != nil {
		return nil, err
	}

	bars, _ := value.([]types.Bar)

	return slices.Clone(bars), nil
}

// Close implements DataSource.
func (c *CachedDataSource) Close() error {
	return c.underlying.Close()
}

func buildSeriesKey(symbol string, start time.Time, end time.Time) string {
	return fmt.Sprintf("%s|%d|%d", symbol, start.UnixNano(), end.UnixNano())
}
