package indicator

import (
	"fmt"
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// EMA indicator implements Exponential Moving Average calculation.
type EMA struct {
	period int
}

// NewEMA creates a new EMA indicator.
func NewEMA(period int) Indicator {
	return &EMA{period: period}
}

// Name returns ema_N.
func (e *EMA) Name() string {
	return fmt.Sprintf("ema_%d", e.period)
}

// Compute returns the EMA of close prices, seeded with the first close.
func (e *EMA) Compute(bars []types.Bar) []float64 {
	return exponentialMovingAverage(closes(bars), e.period)
}

// exponentialMovingAverage uses alpha = 2/(span+1) and no warm-up adjustment:
// EMA[0] = x[0], EMA[i] = alpha*x[i] + (1-alpha)*EMA[i-1].
// NaN inputs before the first defined value are skipped.
func exponentialMovingAverage(values []float64, span int) []float64 {
	out := nanSeries(len(values))
	if span <= 0 {
		return out
	}

	alpha := 2.0 / float64(span+1)
	started := false
	ema := 0.0

	for i, v := range values {
		if math.IsNaN(v) {
			if started {
				out[i] = ema
			}

			continue
		}

		if !started {
			ema = v
			started = true
		} else {
			ema = alpha*v + (1-alpha)*ema
		}

		out[i] = ema
	}

	return out
}
