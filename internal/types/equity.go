package types

import "time"

// EquityPoint is the portfolio value (cash plus open positions marked to market) at the
// close of a simulated trading day.
type EquityPoint struct {
	Date  time.Time `yaml:"date" json:"date" csv:"date"`
	Value float64   `yaml:"value" json:"value" csv:"value"`
}

// EquityCurve is a series of equity points with strictly increasing dates.
type EquityCurve []EquityPoint

// Initial returns the first value of the curve, or 0 if the curve is empty.
func (c EquityCurve) Initial() float64 {
	if len(c) == 0 {
		return 0
	}

	return c[0].Value
}

// Final returns the last value of the curve, or 0 if the curve is empty.
func (c EquityCurve) Final() float64 {
	if len(c) == 0 {
		return 0
	}

	return c[len(c)-1].Value
}

// DailyReturns returns the simple return between consecutive points.
// Points with a non-positive previous value are skipped.
func (c EquityCurve) DailyReturns() []float64 {
	if len(c) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(c)-1)
	for i := 1; i < len(c); i++ {
		prev := c[i-1].Value
		if prev <= 0 {
			continue
		}

		returns = append(returns, c[i].Value/prev-1)
	}

	return returns
}
