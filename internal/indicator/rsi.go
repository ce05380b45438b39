package indicator

import (
	"fmt"
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// RSI implements the Relative Strength Index with Wilder's smoothing.
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator.
func NewRSI(period int) Indicator {
	return &RSI{period: period}
}

// Name returns rsi_N.
func (r *RSI) Name() string {
	return fmt.Sprintf("rsi_%d", r.period)
}

// Compute returns the RSI series. The first value is NaN since it has no price change.
// Average gain and loss are exponentially smoothed with alpha = 1/period, seeded with
// the first change.
func (r *RSI) Compute(bars []types.Bar) []float64 {
	out := nanSeries(len(bars))
	if r.period <= 0 || len(bars) < 2 {
		return out
	}

	alpha := 1.0 / float64(r.period)
	avgGain, avgLoss := 0.0, 0.0

	for i := 1; i < len(bars); i++ {
		change := bars[i].Close - bars[i-1].Close
		gain := math.Max(change, 0)
		loss := math.Max(-change, 0)

		if i == 1 {
			avgGain, avgLoss = gain, loss
		} else {
			avgGain = alpha*gain + (1-alpha)*avgGain
			avgLoss = alpha*loss + (1-alpha)*avgLoss
		}

		switch {
		case avgLoss == 0 && avgGain == 0:
			// flat prices, undefined
		case avgLoss == 0:
			out[i] = 100
		default:
			rs := avgGain / avgLoss
			out[i] = 100 - (100 / (1 + rs))
		}
	}

	return out
}
