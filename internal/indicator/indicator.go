// Package indicator computes indicator series over a symbol's bars. Every value at
// index i depends only on bars[0..i]. Undefined values (warm-up) are NaN.
package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Indicator computes one named series over a bar history.
type Indicator interface {
	// Name returns the indicator name as it appears in Bar.Indicators (e.g. "sma_20")
	Name() string
	// Compute returns one value per bar; NaN where the indicator is not yet defined
	Compute(bars []types.Bar) []float64
}

func closes(bars []types.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, bar := range bars {
		out[i] = bar.Close
	}

	return out
}

func volumes(bars []types.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, bar := range bars {
		out[i] = bar.Volume
	}

	return out
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	return out
}
