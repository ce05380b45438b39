package indicator

import (
	"fmt"
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// ATR implements the Average True Range with Wilder's smoothing.
type ATR struct {
	period int
}

// NewATR creates a new ATR indicator.
func NewATR(period int) Indicator {
	return &ATR{period: period}
}

// Name returns atr_N.
func (a *ATR) Name() string {
	return fmt.Sprintf("atr_%d", a.period)
}

// Compute returns the ATR. The first period-1 values are NaN; the first defined value
// is the mean true range, later values are smoothed as (prev*(n-1) + tr) / n.
func (a *ATR) Compute(bars []types.Bar) []float64 {
	out := nanSeries(len(bars))
	if a.period <= 0 || len(bars) < a.period {
		return out
	}

	trueRanges := make([]float64, len(bars))
	for i, bar := range bars {
		tr := bar.High - bar.Low
		if i > 0 {
			prevClose := bars[i-1].Close
			tr = math.Max(tr, math.Max(math.Abs(bar.High-prevClose), math.Abs(bar.Low-prevClose)))
		}

		trueRanges[i] = tr
	}

	atr := 0.0
	for i := 0; i < a.period; i++ {
		atr += trueRanges[i]
	}

	atr /= float64(a.period)
	out[a.period-1] = atr

	for i := a.period; i < len(bars); i++ {
		atr = (atr*float64(a.period-1) + trueRanges[i]) / float64(a.period)
		out[i] = atr
	}

	return out
}
