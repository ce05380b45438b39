package datasource

import (
	"context"
	"slices"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Columns every market data file must provide. Any other numeric column is read as an
// indicator value keyed by the column name.
var baseColumns = []string{"time", "symbol", "open", "high", "low", "close", "volume"}

// DataSource is the read-only boundary to bar and indicator history.
type DataSource interface {
	// Initialize initializes the data source with the given data path (a file or glob in parquet or csv format)
	Initialize(path string) error
	// Symbols returns every distinct symbol available, sorted.
	Symbols(ctx context.Context) ([]string, error)
	// LoadSeries returns the bars of symbol with start <= date <= end in ascending date order.
	// A symbol with no bars in the range yields an ErrCodeDataNotFound error.
	LoadSeries(ctx context.Context, symbol string, start time.Time, end time.Time) ([]types.Bar, error)
	// Close closes the data source and releases any resources
	Close() error
}

func isBaseColumn(name string) bool {
	return slices.Contains(baseColumns, name)
}
