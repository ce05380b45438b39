// Package metrics computes performance metrics from a trade ledger and an equity curve.
// Undefined results are reported with the types.NoData sentinel instead of errors.
package metrics

import (
	"cmp"
	"math"
	"slices"

	"github.com/montanaflynn/stats"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Config holds the calendar conventions used for annualization.
type Config struct {
	TradingDaysPerYear  float64 `yaml:"trading_days_per_year"`
	CalendarDaysPerYear float64 `yaml:"calendar_days_per_year"`
	DaysPerMonth        float64 `yaml:"days_per_month"`
}

// DefaultConfig returns 252 trading days, 365 calendar days and 30.4375 days per month.
func DefaultConfig() Config {
	return Config{
		TradingDaysPerYear:  252,
		CalendarDaysPerYear: 365,
		DaysPerMonth:        30.4375,
	}
}

// Calculator computes PerformanceMetrics. It holds no state besides its configuration
// and is safe for concurrent use.
type Calculator struct {
	config Config
}

// NewCalculator creates a calculator. Zero fields fall back to DefaultConfig.
func NewCalculator(config Config) *Calculator {
	defaults := DefaultConfig()

	if config.TradingDaysPerYear <= 0 {
		config.TradingDaysPerYear = defaults.TradingDaysPerYear
	}

	if config.CalendarDaysPerYear <= 0 {
		config.CalendarDaysPerYear = defaults.CalendarDaysPerYear
	}

	if config.DaysPerMonth <= 0 {
		config.DaysPerMonth = defaults.DaysPerMonth
	}

	return &Calculator{config: config}
}

// Calculate returns every metric for trades and curve. It does not modify its inputs.
func (c *Calculator) Calculate(trades []types.Trade, curve types.EquityCurve) types.PerformanceMetrics {
	m := make(types.PerformanceMetrics, 32)

	c.returnMetrics(m, curve)
	c.riskMetrics(m, curve)
	c.tradeMetrics(m, trades)
	c.activityMetrics(m, trades, curve)

	return m
}

func (c *Calculator) returnMetrics(m types.PerformanceMetrics, curve types.EquityCurve) {
	m[types.MetricInitialEquity] = types.NoData
	m[types.MetricFinalEquity] = types.NoData
	m[types.MetricNetProfit] = types.NoData
	m[types.MetricTotalReturn] = types.NoData
	m[types.MetricCAGR] = types.NoData

	if len(curve) == 0 {
		return
	}

	initial, final := curve.Initial(), curve.Final()
	m[types.MetricInitialEquity] = initial
	m[types.MetricFinalEquity] = final
	m[types.MetricNetProfit] = final - initial

	if initial <= 0 {
		return
	}

	m[types.MetricTotalReturn] = final/initial - 1

	daysElapsed := curve[len(curve)-1].Date.Sub(curve[0].Date).Hours() / 24
	if daysElapsed > 0 && final >= 0 {
		m[types.MetricCAGR] = math.Pow(final/initial, c.config.CalendarDaysPerYear/daysElapsed) - 1
	}
}

func (c *Calculator) riskMetrics(m types.PerformanceMetrics, curve types.EquityCurve) {
	m[types.MetricMaxDrawdown] = types.NoData
	m[types.MetricVolatility] = types.NoData
	m[types.MetricSharpeRatio] = types.NoData
	m[types.MetricSortinoRatio] = types.NoData
	m[types.MetricCalmarRatio] = types.NoData

	if len(curve) == 0 {
		return
	}

	maxDrawdown := MaxDrawdown(curve)
	m[types.MetricMaxDrawdown] = maxDrawdown

	returns := curve.DailyReturns()
	annualization := math.Sqrt(c.config.TradingDaysPerYear)

	volatility := sampleStdDev(returns) * annualization
	m[types.MetricVolatility] = volatility

	mean := 0.0
	if len(returns) > 0 {
		mean, _ = stats.Mean(returns)
	}

	annualReturn := mean * c.config.TradingDaysPerYear

	if volatility > 0 {
		m[types.MetricSharpeRatio] = annualReturn / volatility
	}

	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}

	if downsideDeviation := sampleStdDev(downside) * annualization; downsideDeviation > 0 {
		m[types.MetricSortinoRatio] = annualReturn / downsideDeviation
	}

	if cagr := m[types.MetricCAGR]; maxDrawdown > 0 && !math.IsNaN(cagr) {
		m[types.MetricCalmarRatio] = cagr / maxDrawdown
	}
}

func (c *Calculator) tradeMetrics(m types.PerformanceMetrics, trades []types.Trade) {
	n := len(trades)

	m[types.MetricTotalTrades] = float64(n)
	m[types.MetricWinningTrades] = 0
	m[types.MetricLosingTrades] = 0
	m[types.MetricMaxConsecutiveWins] = 0
	m[types.MetricMaxConsecutiveLosses] = 0
	m[types.MetricTotalCommission] = 0
	m[types.MetricTotalSlippage] = 0
	m[types.MetricWinRate] = types.NoData
	m[types.MetricProfitFactor] = types.NoData
	m[types.MetricAverageWin] = types.NoData
	m[types.MetricAverageLoss] = types.NoData
	m[types.MetricLargestWin] = types.NoData
	m[types.MetricLargestLoss] = types.NoData

	if n == 0 {
		return
	}

	var wins, losses []float64
	commission, slippage := 0.0, 0.0

	for _, trade := range trades {
		switch {
		case trade.IsWin():
			wins = append(wins, trade.NetPnL)
		case trade.IsLoss():
			losses = append(losses, trade.NetPnL)
		}

		commission += trade.Commission
		slippage += trade.Slippage
	}

	m[types.MetricWinningTrades] = float64(len(wins))
	m[types.MetricLosingTrades] = float64(len(losses))
	m[types.MetricTotalCommission] = commission
	m[types.MetricTotalSlippage] = slippage
	m[types.MetricWinRate] = float64(len(wins)) / float64(n)

	grossProfit, _ := stats.Sum(wins)
	grossLoss, _ := stats.Sum(losses)

	switch {
	case grossLoss < 0:
		m[types.MetricProfitFactor] = grossProfit / math.Abs(grossLoss)
	case grossProfit > 0:
		m[types.MetricProfitFactor] = types.PositiveInfinity
	}

	if len(wins) > 0 {
		m[types.MetricAverageWin] = grossProfit / float64(len(wins))
		m[types.MetricLargestWin], _ = stats.Max(wins)
	}

	if len(losses) > 0 {
		m[types.MetricAverageLoss] = grossLoss / float64(len(losses))
		m[types.MetricLargestLoss], _ = stats.Min(losses)
	}

	maxWins, maxLosses := Streaks(trades)
	m[types.MetricMaxConsecutiveWins] = float64(maxWins)
	m[types.MetricMaxConsecutiveLosses] = float64(maxLosses)
}

func (c *Calculator) activityMetrics(m types.PerformanceMetrics, trades []types.Trade, curve types.EquityCurve) {
	m[types.MetricAverageHoldingDays] = types.NoData
	m[types.MetricTradeFrequency] = types.NoData
	m[types.MetricExposureTime] = types.NoData

	if len(trades) == 0 {
		return
	}

	holding := make([]float64, len(trades))
	for i, trade := range trades {
		holding[i] = float64(trade.HoldingDays)
	}

	m[types.MetricAverageHoldingDays], _ = stats.Mean(holding)

	days := daysInRange(trades, curve)
	if days <= 0 {
		return
	}

	totalHolding, _ := stats.Sum(holding)
	m[types.MetricTradeFrequency] = float64(len(trades)) / (days / c.config.DaysPerMonth)
	m[types.MetricExposureTime] = totalHolding / days
}

// daysInRange is the number of calendar days spanned by the curve, both ends included,
// or by the trades when there is no curve.
func daysInRange(trades []types.Trade, curve types.EquityCurve) float64 {
	if len(curve) > 0 {
		return float64(types.CalendarDaysBetween(curve[0].Date, curve[len(curve)-1].Date) + 1)
	}

	first, last := trades[0].EntryDate, trades[0].ExitDate
	for _, trade := range trades[1:] {
		if trade.EntryDate.Before(first) {
			first = trade.EntryDate
		}

		if trade.ExitDate.After(last) {
			last = trade.ExitDate
		}
	}

	return float64(types.CalendarDaysBetween(first, last) + 1)
}

// MaxDrawdown returns the largest peak-to-trough decline as a fraction of the peak.
func MaxDrawdown(curve types.EquityCurve) float64 {
	peak := math.Inf(-1)
	maxDrawdown := 0.0

	for _, point := range curve {
		peak = math.Max(peak, point.Value)
		if peak <= 0 {
			continue
		}

		maxDrawdown = math.Max(maxDrawdown, (peak-point.Value)/peak)
	}

	return maxDrawdown
}

// Streaks returns the longest runs of winning and losing trades, ordered by exit date.
// Break-even trades end both runs.
func Streaks(trades []types.Trade) (maxWins, maxLosses int) {
	ordered := slices.Clone(trades)
	slices.SortStableFunc(ordered, CompareTrades)

	wins, losses := 0, 0

	for _, trade := range ordered {
		switch {
		case trade.IsWin():
			wins++
			losses = 0
		case trade.IsLoss():
			losses++
			wins = 0
		default:
			wins, losses = 0, 0
		}

		maxWins = max(maxWins, wins)
		maxLosses = max(maxLosses, losses)
	}

	return maxWins, maxLosses
}

// CompareTrades orders trades by exit date, then symbol, then entry date.
func CompareTrades(a, b types.Trade) int {
	return cmp.Or(
		a.ExitDate.Compare(b.ExitDate),
		cmp.Compare(a.Symbol, b.Symbol),
		a.EntryDate.Compare(b.EntryDate),
	)
}

// BuyAndHoldReturn returns the return of holding from the first close to the last close.
func BuyAndHoldReturn(bars []types.Bar) float64 {
	if len(bars) == 0 || bars[0].Close <= 0 {
		return types.NoData
	}

	return bars[len(bars)-1].Close/bars[0].Close - 1
}

// sampleStdDev is the sample standard deviation, 0 for fewer than two samples.
func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	sd, err := stats.StandardDeviationSample(values)
	if err != nil || math.IsNaN(sd) {
		return 0
	}

	return sd
}
