// Package store persists backtest runs. A run is written as a whole and replaced as a
// whole, keyed by its deterministic ID, so re-running the same request never duplicates.
package store

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// RunStore is the persistence boundary for BacktestRun records.
type RunStore interface {
	// GetRun returns the run with the given ID, or None if it does not exist.
	GetRun(ctx context.Context, id string) (optional.Option[types.BacktestRun], error)
	// SaveRun writes the run, replacing any run with the same ID in one transaction.
	SaveRun(ctx context.Context, run types.BacktestRun) error
	// DeleteRun removes the run and everything it owns. Returns ErrCodeRunNotFound if absent.
	DeleteRun(ctx context.Context, id string) error
	// ListRuns returns summaries of every stored run, newest first.
	ListRuns(ctx context.Context) ([]RunSummary, error)
	// Close releases the underlying database.
	Close() error
}

// RunSummary is the run-level record without trades, curves or per-symbol breakdowns.
type RunSummary struct {
	ID               string                   `yaml:"id" json:"id"`
	StrategyName     string                   `yaml:"strategy_name" json:"strategy_name"`
	StrategyKind     types.StrategyKind       `yaml:"strategy_kind" json:"strategy_kind"`
	StartDate        time.Time                `yaml:"start_date" json:"start_date"`
	EndDate          time.Time                `yaml:"end_date" json:"end_date"`
	Symbols          []string                 `yaml:"symbols" json:"symbols"`
	Capital          float64                  `yaml:"capital" json:"capital"`
	Status           types.RunStatus          `yaml:"status" json:"status"`
	Metrics          types.PerformanceMetrics `yaml:"metrics" json:"metrics"`
	SucceededSymbols int                      `yaml:"succeeded_symbols" json:"succeeded_symbols"`
	FailedSymbols    int                      `yaml:"failed_symbols" json:"failed_symbols"`
	CreatedAt        time.Time                `yaml:"created_at" json:"created_at"`
}

// Compile-time interface checks.
var _ RunStore = (*DuckDBStore)(nil)
var _ RunStore = (*SQLiteStore)(nil)
