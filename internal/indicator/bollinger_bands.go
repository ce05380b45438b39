package indicator

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Bollinger band components.
const (
	BollingerUpper  = "bb_upper"
	BollingerMiddle = "bb_middle"
	BollingerLower  = "bb_lower"
)

// BollingerBands computes one band of the 20 period, 2 standard deviation Bollinger Bands.
type BollingerBands struct {
	band   string
	period int
	numStd float64
}

// NewBollingerBands creates a Bollinger Bands indicator for band (bb_upper, bb_middle or bb_lower).
func NewBollingerBands(band string) Indicator {
	return &BollingerBands{
		band:   band,
		period: 20,
		numStd: 2,
	}
}

// Name returns the band name.
func (b *BollingerBands) Name() string {
	return b.band
}

// Compute returns the band using the rolling sample standard deviation.
func (b *BollingerBands) Compute(bars []types.Bar) []float64 {
	prices := closes(bars)
	middle := rollingMean(prices, b.period)

	if b.band == BollingerMiddle {
		return middle
	}

	out := nanSeries(len(bars))

	for i := b.period - 1; i < len(prices); i++ {
		if math.IsNaN(middle[i]) {
			continue
		}

		std, err := stats.StandardDeviationSample(prices[i-b.period+1 : i+1])
		if err != nil {
			continue
		}

		if b.band == BollingerUpper {
			out[i] = middle[i] + std*b.numStd
		} else {
			out[i] = middle[i] - std*b.numStd
		}
	}

	return out
}
