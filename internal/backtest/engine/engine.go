package engine

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Lifecycle callback types for backtest phases.
// Callbacks with an error return abort the run if they return an error.

// OnRunStartCallback is called once the run identity is known and before any symbol is processed.
type OnRunStartCallback func(runID string, strategyName string, totalSymbols int) error

// OnSymbolStartCallback is called when a symbol task begins. It may be invoked concurrently.
type OnSymbolStartCallback func(symbol string, symbolIndex int, totalSymbols int)

// OnSymbolEndCallback is called when a symbol task ends, whatever its status. It may be invoked concurrently.
type OnSymbolEndCallback func(symbol string, result types.SymbolResult)

// OnRunEndCallback is called when the run finishes (always called via defer).
type OnRunEndCallback func(run types.BacktestRun, err error)

// LifecycleCallbacks holds all lifecycle callback functions for the backtest engine.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnRunStart    *OnRunStartCallback
	OnSymbolStart *OnSymbolStartCallback
	OnSymbolEnd   *OnSymbolEndCallback
	OnRunEnd      *OnRunEndCallback
}

// RunRequest describes one backtest: a strategy replayed over symbols between two dates.
type RunRequest struct {
	Strategy strategy.Definition
	Symbols  []string
	Start    time.Time
	End      time.Time
	// Capital is the starting cash. Zero falls back to the strategy's initial capital.
	Capital float64
}

type Engine interface {
	// Run executes the request and returns the aggregated run.
	// The context can be used to cancel the backtest operation; a cancelled run is
	// returned with status cancelled and an error, and is never persisted.
	Run(ctx context.Context, request RunRequest, callbacks LifecycleCallbacks) (types.BacktestRun, error)
	// GetConfigSchema returns the schema of the engine configuration
	GetConfigSchema() (string, error)
}
