package engine

import (
	"slices"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/metrics"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// symbolOutcome is the result slot of one symbol task. Each slot is written by exactly
// one worker and read after the pool is joined.
type symbolOutcome struct {
	result    types.SymbolResult
	allocated float64
}

func (o symbolOutcome) succeeded() bool {
	return o.result.Status == types.SymbolStatusSucceeded
}

// mergeTrades returns every succeeded symbol's trades as one ledger ordered by exit date,
// symbol and entry date.
func mergeTrades(outcomes []symbolOutcome) []types.Trade {
	var trades []types.Trade

	for _, outcome := range outcomes {
		if outcome.succeeded() {
			trades = append(trades, outcome.result.Trades...)
		}
	}

	slices.SortStableFunc(trades, metrics.CompareTrades)

	return trades
}

// mergeEquity sums per-symbol equity on the union of all curve dates. A symbol
// contributes its allocated cash before its first point and its last value after its
// final point. Symbols that did not succeed contribute their allocation as flat cash
// when holdCash is set and nothing otherwise.
func mergeEquity(outcomes []symbolOutcome, holdCash bool) types.EquityCurve {
	var dates []time.Time

	for _, outcome := range outcomes {
		if !outcome.succeeded() {
			continue
		}

		for _, point := range outcome.result.EquityCurve {
			dates = append(dates, point.Date)
		}
	}

	if len(dates) == 0 {
		return nil
	}

	slices.SortFunc(dates, time.Time.Compare)
	dates = slices.CompactFunc(dates, time.Time.Equal)

	var idle float64

	for _, outcome := range outcomes {
		if !outcome.succeeded() && holdCash {
			idle += outcome.allocated
		}
	}

	curve := make(types.EquityCurve, len(dates))
	cursors := make([]int, len(outcomes))

	for i, date := range dates {
		value := idle

		for j, outcome := range outcomes {
			if !outcome.succeeded() {
				continue
			}

			points := outcome.result.EquityCurve
			for cursors[j] < len(points) && !points[cursors[j]].Date.After(date) {
				cursors[j]++
			}

			if cursors[j] == 0 {
				value += outcome.allocated
			} else {
				value += points[cursors[j]-1].Value
			}
		}

		curve[i] = types.EquityPoint{Date: date, Value: value}
	}

	return curve
}

// runStatus derives the terminal status from the symbol outcomes.
func runStatus(outcomes []symbolOutcome, cancelled bool) types.RunStatus {
	if cancelled {
		return types.RunStatusCancelled
	}

	succeeded := 0

	for _, outcome := range outcomes {
		if outcome.succeeded() {
			succeeded++
		}
	}

	switch {
	case succeeded == 0:
		return types.RunStatusFailed
	case succeeded < len(outcomes):
		return types.RunStatusCompletedWithFailures
	default:
		return types.RunStatusCompleted
	}
}
