package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/metrics"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/simulator"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/signal"
	"github.com/rxtech-lab/argo-backtest/internal/store"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/version"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type BacktestEngineV1 struct {
	config            BacktestEngineV1Config
	datasource        datasource.DataSource
	store             store.RunStore
	log               *logger.Logger
	indicatorRegistry indicator.IndicatorRegistry
	calculator        *metrics.Calculator
}

// NewBacktestEngineV1 creates the orchestrator. The store is optional; without one runs
// are returned but not persisted.
func NewBacktestEngineV1(config BacktestEngineV1Config, ds datasource.DataSource, runStore store.RunStore, log *logger.Logger) (engine.Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if ds == nil {
		return nil, errors.New(errors.ErrCodeBacktestNoDatasource, "a datasource is required")
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &BacktestEngineV1{
		config:            config,
		datasource:        ds,
		store:             runStore,
		log:               log.Named("backtest"),
		indicatorRegistry: indicator.NewIndicatorRegistry(),
		calculator: metrics.NewCalculator(metrics.Config{
			TradingDaysPerYear: config.TradingDaysPerYear.TakeOr(0),
		}),
	}, nil
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, request engine.RunRequest, callbacks engine.LifecycleCallbacks) (run types.BacktestRun, err error) {
	defer func() {
		if callbacks.OnRunEnd != nil {
			(*callbacks.OnRunEnd)(run, err)
		}
	}()

	capital, err := b.preRunCheck(request)
	if err != nil {
		return types.BacktestRun{}, err
	}

	def := request.Strategy
	symbols := normalizeSymbols(request.Symbols)
	runID := RunID(def.Fingerprint(), symbols, request.Start, request.End, capital)
	log := &logger.Logger{Logger: b.log.With(zap.String("run_id", runID), zap.String("strategy", def.Name()))}

	if existing, ok, err := b.reusableRun(ctx, runID); err != nil {
		return types.BacktestRun{}, err
	} else if ok {
		log.Info("Reusing stored run", zap.String("status", string(existing.Status)))

		return existing, nil
	}

	if callbacks.OnRunStart != nil {
		if err := (*callbacks.OnRunStart)(runID, def.Name(), len(symbols)); err != nil {
			return types.BacktestRun{}, errors.Wrap(errors.ErrCodeBacktestCallbackError, "run start callback failed", err)
		}
	}

	runCtx := ctx

	if timeout, err := b.config.RunTimeout.Take(); err == nil {
		var cancel context.CancelFunc

		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	allocated := capital
	if b.config.CapitalAllocation == CapitalAllocationSplitEqual {
		allocated = capital / float64(len(symbols))
	}

	log.Info("Starting backtest",
		zap.Int("symbols", len(symbols)),
		zap.Time("start", request.Start),
		zap.Time("end", request.End),
		zap.Float64("capital", capital),
		zap.Int("workers", b.config.Workers()),
	)

	outcomes := b.runSymbols(runCtx, def, symbols, request.Start, request.End, allocated, callbacks, log)

	run = b.aggregate(runID, def, symbols, request, capital, outcomes)

	log.Info("Backtest finished",
		zap.String("status", string(run.Status)),
		zap.Int("succeeded", run.SucceededSymbols),
		zap.Int("failed", run.FailedSymbols),
		zap.Int("trades", len(run.Trades)),
		zap.Int("skipped_signals", run.SkippedSignals),
	)

	if run.Status == types.RunStatusCancelled {
		cause := runCtx.Err()
		if cause == nil {
			cause = context.Canceled
		}

		return run, errors.Wrap(errors.ErrCodeBacktestCancelled, "backtest cancelled", cause)
	}

	if b.store != nil {
		if err := b.store.SaveRun(ctx, run); err != nil {
			return run, err
		}
	}

	if run.Status == types.RunStatusFailed {
		return run, errors.Newf(errors.ErrCodeAllSymbolsFailed, "all %d symbols failed", len(symbols))
	}

	return run, nil
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	config := b.config

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return "", fmt.Errorf("failed to generate schema: %w", err)
	}

	return schema, nil
}

// preRunCheck validates the request and returns the capital the run starts with.
func (b *BacktestEngineV1) preRunCheck(request engine.RunRequest) (float64, error) {
	if request.Strategy.IsZero() {
		return 0, errors.New(errors.ErrCodeInvalidRunRequest, "a strategy is required")
	}

	if len(request.Symbols) == 0 {
		return 0, errors.New(errors.ErrCodeInvalidRunRequest, "at least one symbol is required")
	}

	for _, symbol := range normalizeSymbols(request.Symbols) {
		if symbol == "" {
			return 0, errors.New(errors.ErrCodeInvalidRunRequest, "symbols must not be empty")
		}
	}

	if request.Start.IsZero() || request.End.IsZero() {
		return 0, errors.New(errors.ErrCodeInvalidRunRequest, "start and end dates are required")
	}

	if request.End.Before(request.Start) {
		return 0, errors.Newf(errors.ErrCodeInvalidRunRequest, "end date %s is before start date %s",
			request.End.Format(time.DateOnly), request.Start.Format(time.DateOnly))
	}

	capital := request.Capital
	if capital == 0 {
		capital = request.Strategy.Execution().InitialCapital
	}

	if math.IsNaN(capital) || math.IsInf(capital, 0) || capital <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidRunRequest, "capital must be a positive number, got %v", capital)
	}

	if err := version.CheckCompatibility(version.GetVersion(), request.Strategy.EngineVersion()); err != nil {
		return 0, err
	}

	return capital, nil
}

// reusableRun returns the stored run with the same identity when the rerun policy allows
// reusing it. Failed runs are always recomputed.
func (b *BacktestEngineV1) reusableRun(ctx context.Context, runID string) (types.BacktestRun, bool, error) {
	if b.store == nil || b.config.RerunPolicy != RerunPolicyReuse {
		return types.BacktestRun{}, false, nil
	}

	existing, err := b.store.GetRun(ctx, runID)
	if err != nil {
		return types.BacktestRun{}, false, err
	}

	if existing.IsNone() {
		return types.BacktestRun{}, false, nil
	}

	run := existing.Unwrap()
	if run.Status == types.RunStatusFailed {
		return types.BacktestRun{}, false, nil
	}

	return run, true, nil
}

// runSymbols simulates every symbol on a bounded worker pool. Symbols that were not
// started before the context was cancelled are reported as cancelled.
func (b *BacktestEngineV1) runSymbols(
	ctx context.Context,
	def strategy.Definition,
	symbols []string,
	start, end time.Time,
	allocated float64,
	callbacks engine.LifecycleCallbacks,
	log *logger.Logger,
) []symbolOutcome {
	outcomes := make([]symbolOutcome, len(symbols))

	var g errgroup.Group

	g.SetLimit(b.config.Workers())

	for i, symbol := range symbols {
		if ctx.Err() != nil {
			outcomes[i] = cancelledOutcome(symbol, allocated)

			continue
		}

		g.Go(func() error {
			outcomes[i] = b.runSymbol(ctx, def, symbol, i, len(symbols), start, end, allocated, callbacks, log)

			return nil
		})
	}

	// tasks never return errors; failures are recorded in their outcome
	_ = g.Wait()

	return outcomes
}

func cancelledOutcome(symbol string, allocated float64) symbolOutcome {
	return symbolOutcome{
		allocated: allocated,
		result: types.SymbolResult{
			Symbol: symbol,
			Status: types.SymbolStatusCancelled,
			Error:  "cancelled before start",
		},
	}
}

// runSymbol runs one symbol task. Errors and panics are isolated to the symbol.
func (b *BacktestEngineV1) runSymbol(
	ctx context.Context,
	def strategy.Definition,
	symbol string,
	index, total int,
	start, end time.Time,
	allocated float64,
	callbacks engine.LifecycleCallbacks,
	log *logger.Logger,
) (outcome symbolOutcome) {
	if ctx.Err() != nil {
		return cancelledOutcome(symbol, allocated)
	}

	if callbacks.OnSymbolStart != nil {
		(*callbacks.OnSymbolStart)(symbol, index, total)
	}

	defer func() {
		if callbacks.OnSymbolEnd != nil {
			(*callbacks.OnSymbolEnd)(symbol, outcome.result)
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			log.Error("Symbol task panicked", zap.String("symbol", symbol), zap.Any("panic", r))

			outcome = symbolOutcome{
				allocated: allocated,
				result: types.SymbolResult{
					Symbol: symbol,
					Status: types.SymbolStatusFailed,
					Error:  errors.Newf(errors.ErrCodeSimulationFailed, "panic: %v", r).Error(),
				},
			}
		}
	}()

	result, err := b.simulateSymbol(ctx, def, symbol, start, end, allocated, log)
	if err != nil {
		status := types.SymbolStatusFailed
		if ctx.Err() != nil {
			status = types.SymbolStatusCancelled
		} else {
			logFailure := log.Error
			if errors.IsDataError(err) {
				// bad or missing data is expected at scale
				logFailure = log.Warn
			}

			logFailure("Symbol failed",
				zap.String("symbol", symbol),
				zap.Int("code", int(errors.GetCode(err))),
				zap.Error(err),
			)
		}

		return symbolOutcome{
			allocated: allocated,
			result: types.SymbolResult{
				Symbol: symbol,
				Status: status,
				Error:  err.Error(),
			},
		}
	}

	return symbolOutcome{allocated: allocated, result: result}
}

// simulateSymbol loads, validates and enriches one symbol's series, then replays the
// strategy's signals through a fresh simulator.
func (b *BacktestEngineV1) simulateSymbol(
	ctx context.Context,
	def strategy.Definition,
	symbol string,
	start, end time.Time,
	allocated float64,
	log *logger.Logger,
) (types.SymbolResult, error) {
	bars, err := b.datasource.LoadSeries(ctx, symbol, start, end)
	if err != nil {
		return types.SymbolResult{}, err
	}

	if err := types.ValidateSeries(symbol, bars); err != nil {
		return types.SymbolResult{}, err
	}

	if b.config.ComputeMissingIndicators {
		enriched, computed, err := indicator.Enrich(b.indicatorRegistry, bars, def.RequiredIndicators())
		if err != nil {
			return types.SymbolResult{}, err
		}

		if len(computed) > 0 {
			log.Debug("Computed missing indicators", zap.String("symbol", symbol), zap.Strings("indicators", computed))
		}

		bars = enriched
	}

	detector := signal.NewDetector(def)
	sim := simulator.New(symbol, def.Execution(), simulator.Config{Logger: log})

	result, err := sim.Run(bars, detector.Detect(symbol, bars), allocated)
	if err != nil {
		return types.SymbolResult{}, errors.NewSymbolError(symbol, err)
	}

	symbolMetrics := b.calculator.Calculate(result.Trades, result.EquityCurve)
	symbolMetrics[types.MetricBuyAndHoldReturn] = metrics.BuyAndHoldReturn(bars)

	return types.SymbolResult{
		Symbol:         symbol,
		Status:         types.SymbolStatusSucceeded,
		Trades:         result.Trades,
		EquityCurve:    result.EquityCurve,
		Metrics:        symbolMetrics,
		SkippedSignals: result.SkippedSignals,
		Warnings:       result.Warnings,
	}, nil
}

// aggregate builds the run record from the symbol outcomes.
func (b *BacktestEngineV1) aggregate(
	runID string,
	def strategy.Definition,
	symbols []string,
	request engine.RunRequest,
	capital float64,
	outcomes []symbolOutcome,
) types.BacktestRun {
	cancelled := false

	run := types.BacktestRun{
		ID:                  runID,
		StrategyName:        def.Name(),
		StrategyKind:        def.Kind(),
		StrategyFingerprint: def.Fingerprint(),
		StartDate:           request.Start,
		EndDate:             request.End,
		Symbols:             symbols,
		Capital:             capital,
		EngineVersion:       version.GetVersion(),
		CreatedAt:           time.Now().UTC(),
	}

	for _, outcome := range outcomes {
		result := outcome.result
		run.SymbolResults = append(run.SymbolResults, result)
		run.SkippedSignals += result.SkippedSignals
		run.Warnings = append(run.Warnings, result.Warnings...)

		switch result.Status {
		case types.SymbolStatusSucceeded:
			run.SucceededSymbols++
		case types.SymbolStatusCancelled:
			cancelled = true

			run.Warnings = append(run.Warnings, types.Warning{
				Symbol:  result.Symbol,
				Kind:    types.WarningKindCancelled,
				Message: result.Error,
			})
		default:
			run.FailedSymbols++

			run.Warnings = append(run.Warnings, types.Warning{
				Symbol:  result.Symbol,
				Kind:    types.WarningKindDataError,
				Message: result.Error,
			})
		}
	}

	run.Trades = mergeTrades(outcomes)
	run.EquityCurve = mergeEquity(outcomes, b.config.CapitalAllocation == CapitalAllocationSplitEqual)
	run.Metrics = b.calculator.Calculate(run.Trades, run.EquityCurve)
	run.Status = runStatus(outcomes, cancelled)

	return run
}
