package indicator

import (
	"fmt"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// SMA is the simple moving average of close prices, or of volume when OnVolume is set.
type SMA struct {
	period   int
	onVolume bool
}

// NewSMA creates a close-price SMA.
func NewSMA(period int) Indicator {
	return &SMA{period: period}
}

// NewVolumeSMA creates a volume SMA.
func NewVolumeSMA(period int) Indicator {
	return &SMA{period: period, onVolume: true}
}

// Name returns sma_N or sma_vol_N.
func (m *SMA) Name() string {
	if m.onVolume {
		return fmt.Sprintf("sma_vol_%d", m.period)
	}

	return fmt.Sprintf("sma_%d", m.period)
}

// Compute returns the rolling mean. The first period-1 values are NaN.
func (m *SMA) Compute(bars []types.Bar) []float64 {
	if m.onVolume {
		return rollingMean(volumes(bars), m.period)
	}

	return rollingMean(closes(bars), m.period)
}

func rollingMean(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}

	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}

		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}

	return out
}
