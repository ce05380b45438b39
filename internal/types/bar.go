package types

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Bar is one trading day's OHLCV record for a symbol together with the indicator values
// computed for that day. Indicators are keyed by name (e.g. "ema_9", "sma_20", "rsi_14",
// "sma_vol_20").
type Bar struct {
	Symbol     string             `yaml:"symbol" json:"symbol" csv:"symbol"`
	Date       time.Time          `yaml:"date" json:"date" csv:"date"`
	Open       float64            `yaml:"open" json:"open" csv:"open"`
	High       float64            `yaml:"high" json:"high" csv:"high"`
	Low        float64            `yaml:"low" json:"low" csv:"low"`
	Close      float64            `yaml:"close" json:"close" csv:"close"`
	Volume     float64            `yaml:"volume" json:"volume" csv:"volume"`
	Indicators map[string]float64 `yaml:"indicators,omitempty" json:"indicators,omitempty" csv:"-"`
}

// Indicator returns the named indicator value. NaN and absent values are reported as missing.
func (b Bar) Indicator(name string) (float64, bool) {
	if b.Indicators == nil {
		return 0, false
	}

	v, ok := b.Indicators[name]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}

	return v, true
}

// WithIndicator returns a copy of the bar with the indicator set. The receiver's map is not modified.
func (b Bar) WithIndicator(name string, value float64) Bar {
	indicators := make(map[string]float64, len(b.Indicators)+1)
	for k, v := range b.Indicators {
		indicators[k] = v
	}

	indicators[name] = value
	b.Indicators = indicators

	return b
}

// ValidateSeries checks that a symbol's series is usable for simulation: dates strictly
// increasing, prices positive and finite, high >= low and volume non-negative.
func ValidateSeries(symbol string, bars []Bar) error {
	if len(bars) == 0 {
		return errors.Newf(errors.ErrCodeDataNotFound, "no bars for symbol %s", symbol)
	}

	for i, bar := range bars {
		if bar.Symbol != "" && bar.Symbol != symbol {
			return errors.Newf(errors.ErrCodeCorruptData, "bar %d belongs to %s, expected %s", i, bar.Symbol, symbol)
		}

		for _, price := range []float64{bar.Open, bar.High, bar.Low, bar.Close} {
			if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
				return errors.Newf(errors.ErrCodeCorruptData, "invalid price %v on %s", price, bar.Date.Format(time.DateOnly))
			}
		}

		if bar.High < bar.Low {
			return errors.Newf(errors.ErrCodeCorruptData, "high %.4f below low %.4f on %s", bar.High, bar.Low, bar.Date.Format(time.DateOnly))
		}

		if math.IsNaN(bar.Volume) || bar.Volume < 0 {
			return errors.Newf(errors.ErrCodeCorruptData, "invalid volume %v on %s", bar.Volume, bar.Date.Format(time.DateOnly))
		}

		if i > 0 && !bar.Date.After(bars[i-1].Date) {
			return errors.Newf(errors.ErrCodeCorruptData, "bars out of order at %s", bar.Date.Format(time.DateOnly))
		}
	}

	return nil
}
