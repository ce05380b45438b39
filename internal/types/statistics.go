package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RunStats is the YAML summary written next to a backtest's result files.
type RunStats struct {
	// ID is the run identity.
	ID string `yaml:"id"`
	// Timestamp is when the run was executed.
	Timestamp time.Time `yaml:"timestamp"`
	// Strategy name and kind.
	Strategy string       `yaml:"strategy"`
	Kind     StrategyKind `yaml:"kind"`
	// Period covered by the run.
	StartDate time.Time `yaml:"start_date"`
	EndDate   time.Time `yaml:"end_date"`
	Status    RunStatus `yaml:"status"`
	Symbols   []string  `yaml:"symbols"`
	// Portfolio-level metrics.
	Metrics PerformanceMetrics `yaml:"metrics"`
	// Per-symbol breakdown.
	SymbolResults []SymbolStats `yaml:"symbol_results"`
	// Number of signals that could not be acted on.
	SkippedSignals int       `yaml:"skipped_signals"`
	Warnings       []Warning `yaml:"warnings,omitempty"`
}

// SymbolStats is the per-symbol part of RunStats.
type SymbolStats struct {
	Symbol         string             `yaml:"symbol"`
	Status         SymbolStatus       `yaml:"status"`
	Error          string             `yaml:"error,omitempty"`
	NumberOfTrades int                `yaml:"number_of_trades"`
	Metrics        PerformanceMetrics `yaml:"metrics"`
}

// NewRunStats builds the YAML summary of a run.
func NewRunStats(run BacktestRun) RunStats {
	stats := RunStats{
		ID:             run.ID,
		Timestamp:      run.CreatedAt,
		Strategy:       run.StrategyName,
		Kind:           run.StrategyKind,
		StartDate:      run.StartDate,
		EndDate:        run.EndDate,
		Status:         run.Status,
		Symbols:        run.Symbols,
		Metrics:        run.Metrics,
		SkippedSignals: run.SkippedSignals,
		Warnings:       run.Warnings,
	}

	for _, result := range run.SymbolResults {
		stats.SymbolResults = append(stats.SymbolResults, SymbolStats{
			Symbol:         result.Symbol,
			Status:         result.Status,
			Error:          result.Error,
			NumberOfTrades: len(result.Trades),
			Metrics:        result.Metrics,
		})
	}

	return stats
}

func WriteRunStats(path string, stats RunStats) error {
	// Marshal the struct to YAML
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal run stats to YAML: %w", err)
	}

	// Write the YAML data to the file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run stats to file: %w", err)
	}

	return nil
}
