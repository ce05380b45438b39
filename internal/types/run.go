package types

import (
	"time"
)

// RunStatus is the terminal status of a backtest run.
type RunStatus string

const (
	RunStatusCompleted             RunStatus = "completed"
	RunStatusCompletedWithFailures RunStatus = "completed_with_failures"
	RunStatusFailed                RunStatus = "failed"
	RunStatusCancelled             RunStatus = "cancelled"
)

// SymbolStatus is the outcome of one symbol's task within a run.
type SymbolStatus string

const (
	SymbolStatusSucceeded SymbolStatus = "succeeded"
	SymbolStatusFailed    SymbolStatus = "failed"
	SymbolStatusCancelled SymbolStatus = "cancelled"
)

// WarningKind classifies non-fatal issues collected during a run.
type WarningKind string

const (
	WarningKindSkippedSignal WarningKind = "skipped_signal"
	WarningKindDataError     WarningKind = "data_error"
	WarningKindCancelled     WarningKind = "cancelled"
)

// Warning is a non-fatal issue attached to a run or a symbol result.
type Warning struct {
	Symbol  string      `yaml:"symbol" json:"symbol"`
	Date    time.Time   `yaml:"date,omitempty" json:"date,omitempty"`
	Kind    WarningKind `yaml:"kind" json:"kind"`
	Message string      `yaml:"message" json:"message"`
}

// SymbolResult is the per-symbol breakdown of a run.
type SymbolResult struct {
	Symbol         string             `yaml:"symbol" json:"symbol"`
	Status         SymbolStatus       `yaml:"status" json:"status"`
	Error          string             `yaml:"error,omitempty" json:"error,omitempty"`
	Trades         []Trade            `yaml:"-" json:"trades"`
	EquityCurve    EquityCurve        `yaml:"-" json:"equity_curve"`
	Metrics        PerformanceMetrics `yaml:"metrics" json:"metrics"`
	SkippedSignals int                `yaml:"skipped_signals" json:"skipped_signals"`
	Warnings       []Warning          `yaml:"warnings,omitempty" json:"warnings,omitempty"`
}

// BacktestRun is the persisted record of one backtest execution.
type BacktestRun struct {
	// ID is derived from the run identity (strategy fingerprint, date range, symbols, capital)
	ID                  string             `yaml:"id" json:"id"`
	StrategyName        string             `yaml:"strategy_name" json:"strategy_name"`
	StrategyKind        StrategyKind       `yaml:"strategy_kind" json:"strategy_kind"`
	StrategyFingerprint string             `yaml:"strategy_fingerprint" json:"strategy_fingerprint"`
	StartDate           time.Time          `yaml:"start_date" json:"start_date"`
	EndDate             time.Time          `yaml:"end_date" json:"end_date"`
	Symbols             []string           `yaml:"symbols" json:"symbols"`
	Capital             float64            `yaml:"capital" json:"capital"`
	Status              RunStatus          `yaml:"status" json:"status"`
	Trades              []Trade            `yaml:"-" json:"trades"`
	EquityCurve         EquityCurve        `yaml:"-" json:"equity_curve"`
	Metrics             PerformanceMetrics `yaml:"metrics" json:"metrics"`
	SymbolResults       []SymbolResult     `yaml:"symbol_results" json:"symbol_results"`
	SucceededSymbols    int                `yaml:"succeeded_symbols" json:"succeeded_symbols"`
	FailedSymbols       int                `yaml:"failed_symbols" json:"failed_symbols"`
	SkippedSignals      int                `yaml:"skipped_signals" json:"skipped_signals"`
	Warnings            []Warning          `yaml:"warnings,omitempty" json:"warnings,omitempty"`
	EngineVersion       string             `yaml:"engine_version" json:"engine_version"`
	CreatedAt           time.Time          `yaml:"created_at" json:"created_at"`
}

// SymbolResult returns the breakdown for symbol, if present.
func (r BacktestRun) SymbolResult(symbol string) (SymbolResult, bool) {
	for _, result := range r.SymbolResults {
		if result.Symbol == symbol {
			return result, true
		}
	}

	return SymbolResult{}, false
}
