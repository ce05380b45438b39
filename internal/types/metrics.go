package types

import (
	"encoding/json"
	"math"
	"sort"
)

// Metric names produced by the metrics calculator.
const (
	MetricTotalReturn          = "total_return"
	MetricCAGR                 = "cagr"
	MetricMaxDrawdown          = "max_drawdown"
	MetricVolatility           = "volatility"
	MetricSharpeRatio          = "sharpe_ratio"
	MetricSortinoRatio         = "sortino_ratio"
	MetricCalmarRatio          = "calmar_ratio"
	MetricWinRate              = "win_rate"
	MetricProfitFactor         = "profit_factor"
	MetricAverageWin           = "average_win"
	MetricAverageLoss          = "average_loss"
	MetricLargestWin           = "largest_win"
	MetricLargestLoss          = "largest_loss"
	MetricMaxConsecutiveWins   = "max_consecutive_wins"
	MetricMaxConsecutiveLosses = "max_consecutive_losses"
	MetricTotalTrades          = "total_trades"
	MetricWinningTrades        = "winning_trades"
	MetricLosingTrades         = "losing_trades"
	MetricAverageHoldingDays   = "average_holding_days"
	MetricTradeFrequency       = "trade_frequency"
	MetricExposureTime         = "exposure_time"
	MetricInitialEquity        = "initial_equity"
	MetricFinalEquity          = "final_equity"
	MetricNetProfit            = "net_profit"
	MetricTotalCommission      = "total_commission"
	MetricTotalSlippage        = "total_slippage"
	// MetricBuyAndHoldReturn is only reported in per-symbol breakdowns
	MetricBuyAndHoldReturn = "buy_and_hold_return"
)

// NoData is the sentinel for a metric that is undefined for the given input
// (e.g. win rate with zero trades). It is never silently coerced to zero.
var NoData = math.NaN()

// PositiveInfinity is the sentinel for unbounded ratios such as the profit factor
// of a ledger without losing trades.
var PositiveInfinity = math.Inf(1)

// IsNoData reports whether v is the NoData sentinel.
func IsNoData(v float64) bool {
	return math.IsNaN(v)
}

// PerformanceMetrics is a named map of metric values. Values may be NoData or +Inf.
type PerformanceMetrics map[string]float64

// Get returns the metric value and whether the metric is defined.
func (m PerformanceMetrics) Get(name string) (float64, bool) {
	v, ok := m[name]
	if !ok || math.IsNaN(v) {
		return 0, false
	}

	return v, true
}

// Names returns the metric names in sorted order.
func (m PerformanceMetrics) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// MarshalJSON encodes NoData as null and infinities as the strings "+Inf" and "-Inf",
// since encoding/json rejects non-finite floats.
func (m PerformanceMetrics) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m))
	for name, v := range m {
		out[name] = encodeMetricValue(v)
	}

	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (m *PerformanceMetrics) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(PerformanceMetrics, len(raw))
	for name, v := range raw {
		out[name] = decodeMetricValue(v)
	}

	*m = out

	return nil
}

// MarshalYAML encodes NoData and infinities the same way as MarshalJSON.
func (m PerformanceMetrics) MarshalYAML() (any, error) {
	out := make(map[string]any, len(m))
	for name, v := range m {
		out[name] = encodeMetricValue(v)
	}

	return out, nil
}

func encodeMetricValue(v float64) any {
	switch {
	case math.IsNaN(v):
		return nil
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	default:
		return v
	}
}

func decodeMetricValue(v any) float64 {
	switch value := v.(type) {
	case float64:
		return value
	case string:
		switch value {
		case "+Inf", "Inf":
			return math.Inf(1)
		case "-Inf":
			return math.Inf(-1)
		}
	}

	return math.NaN()
}
