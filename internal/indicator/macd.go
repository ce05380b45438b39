package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// MACD components.
const (
	MACDLine      = "macd_line"
	MACDSignal    = "macd_signal"
	MACDHistogram = "macd_hist"
)

// MACD computes one component of the 12/26/9 MACD.
type MACD struct {
	component string
	fast      int
	slow      int
	signal    int
}

// NewMACD creates a MACD indicator for component (macd_line, macd_signal or macd_hist).
func NewMACD(component string) Indicator {
	return &MACD{
		component: component,
		fast:      12,
		slow:      26,
		signal:    9,
	}
}

// Name returns the component name.
func (m *MACD) Name() string {
	return m.component
}

// Compute returns the selected component.
func (m *MACD) Compute(bars []types.Bar) []float64 {
	prices := closes(bars)
	fast := exponentialMovingAverage(prices, m.fast)
	slow := exponentialMovingAverage(prices, m.slow)

	line := make([]float64, len(bars))
	for i := range line {
		line[i] = fast[i] - slow[i]
	}

	if m.component == MACDLine {
		return line
	}

	signal := exponentialMovingAverage(line, m.signal)
	if m.component == MACDSignal {
		return signal
	}

	hist := make([]float64, len(bars))
	for i := range hist {
		hist[i] = line[i] - signal[i]
	}

	return hist
}
