package simulator

import (
	"slices"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/simulator/commission_fee"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/mocks"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type SimulatorTestSuite struct {
	suite.Suite
}

func TestSimulatorSuite(t *testing.T) {
	suite.Run(t, new(SimulatorTestSuite))
}

func day(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func bar(i int, open, high, low, close float64) types.Bar {
	return types.Bar{
		Symbol: "AAPL",
		Date:   day(i),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: 1000,
	}
}

// flatBars returns n bars with every price at p.
func flatBars(n int, p float64) []types.Bar {
	bars := make([]types.Bar, n)
	for i := range bars {
		bars[i] = bar(i, p, p, p, p)
	}

	return bars
}

func entry(i int) types.SignalEvent {
	return types.SignalEvent{Symbol: "AAPL", Date: day(i), Direction: types.SignalDirectionEntry, Kind: types.StrategyKindCrossover}
}

func exit(i int) types.SignalEvent {
	return types.SignalEvent{Symbol: "AAPL", Date: day(i), Direction: types.SignalDirectionExit, Kind: types.StrategyKindCrossover}
}

func policy(mutate func(*strategy.ExecutionPolicy)) strategy.ExecutionPolicy {
	p := strategy.ExecutionPolicy{
		PositionSizing:      strategy.PositionSizingPercentOfEquity,
		PositionSizePercent: 100,
		CommissionModel:     strategy.CommissionModelZero,
	}

	if mutate != nil {
		mutate(&p)
	}

	return p
}

func (suite *SimulatorTestSuite) run(p strategy.ExecutionPolicy, bars []types.Bar, cash float64, events ...types.SignalEvent) Result {
	result, err := New("AAPL", p, Config{}).Run(bars, slices.Values(events), cash)
	suite.Require().NoError(err)

	return result
}

func (suite *SimulatorTestSuite) costBars() []types.Bar {
	return []types.Bar{
		bar(0, 178, 179, 177, 178),
		bar(1, 180.50, 182, 180, 181),
		bar(2, 190, 196, 189, 195),
		bar(3, 195.30, 196, 194, 195.5),
	}
}

func (suite *SimulatorTestSuite) TestCostAccounting() {
	p := policy(func(p *strategy.ExecutionPolicy) {
		p.PositionSizing = strategy.PositionSizingFixedAmount
		p.PositionSizePercent = 0
		p.PositionSizeAmount = 18050
		p.CommissionModel = strategy.CommissionModelPerShare
		p.CommissionPerShare = 0.005
		p.SlippagePercent = 0.1
	})

	result := suite.run(p, suite.costBars(), 100000, entry(0), exit(2))
	suite.Require().Len(result.Trades, 1)

	trade := result.Trades[0]
	suite.Equal(int64(100), trade.Shares)
	suite.Equal(180.50, trade.EntryPrice)
	suite.Equal(195.30, trade.ExitPrice)
	suite.InDelta(1480.00, trade.GrossPnL, 1e-9)
	suite.InDelta(1.00, trade.Commission, 1e-9)
	suite.InDelta(37.58, trade.Slippage, 1e-9)
	suite.InDelta(1441.42, trade.NetPnL, 1e-9)
	suite.Equal(types.ExitReasonExitSignal, trade.ExitReason)
	suite.False(trade.LiquidatedAtEnd)
	suite.InDelta(101441.42, result.FinalCash, 1e-9)
	suite.InDelta(101441.42, result.EquityCurve.Final(), 1e-9)
	suite.InDelta(1441.42/18050*100, trade.ReturnPercent, 1e-9)
	suite.Equal(2, trade.HoldingDays)
}

func (suite *SimulatorTestSuite) TestCostAccountingOnePercentSlippage() {
	p := policy(func(p *strategy.ExecutionPolicy) {
		p.PositionSizing = strategy.PositionSizingFixedAmount
		p.PositionSizePercent = 0
		p.PositionSizeAmount = 18050
		p.CommissionModel = strategy.CommissionModelPerShare
		p.CommissionPerShare = 0.005
		p.SlippagePercent = 1
	})

	result := suite.run(p, suite.costBars(), 100000, entry(0), exit(2))
	suite.Require().Len(result.Trades, 1)
	suite.InDelta(375.80, result.Trades[0].Slippage, 1e-9)
	suite.InDelta(1103.20, result.Trades[0].NetPnL, 1e-9)
}

func (suite *SimulatorTestSuite) TestEntryFillsAtNextOpen() {
	bars := []types.Bar{
		bar(0, 10, 10, 10, 10),
		bar(1, 11, 12, 10, 12),
		bar(2, 12, 13, 11, 13),
	}

	result := suite.run(policy(nil), bars, 1100, entry(0))
	suite.Require().Len(result.Trades, 1)

	trade := result.Trades[0]
	suite.Equal(day(1), trade.EntryDate)
	suite.Equal(11.0, trade.EntryPrice)
	suite.Equal(int64(100), trade.Shares)
	suite.True(trade.EntryDate.After(day(0)))
}

func (suite *SimulatorTestSuite) TestEntryOnLastBarSkipped() {
	result := suite.run(policy(nil), flatBars(3, 10), 1000, entry(2))

	suite.Empty(result.Trades)
	suite.Equal(1, result.SkippedSignals)
	suite.Require().Len(result.Warnings, 1)
	suite.Equal(types.WarningKindSkippedSignal, result.Warnings[0].Kind)
	suite.Contains(result.Warnings[0].Message, SkipReasonNoNextBar)
	suite.Equal(1000.0, result.FinalCash)
}

func (suite *SimulatorTestSuite) TestLiquidatedAtEnd() {
	bars := []types.Bar{
		bar(0, 10, 10, 10, 10),
		bar(1, 10, 11, 10, 11),
		bar(2, 11, 12, 11, 12),
	}

	p := policy(func(p *strategy.ExecutionPolicy) {
		p.CommissionModel = strategy.CommissionModelPerShare
		p.CommissionPerShare = 0.01
	})

	result := suite.run(p, bars, 1000, entry(0))
	suite.Require().Len(result.Trades, 1)

	trade := result.Trades[0]
	suite.True(trade.LiquidatedAtEnd)
	suite.Equal(types.ExitReasonLiquidatedAtEnd, trade.ExitReason)
	suite.Equal(12.0, trade.ExitPrice)
	suite.Equal(day(2), trade.ExitDate)
	suite.Equal(types.PositionStateFlat, result.FinalState)

	// 99 shares: 100 * 10 + 1.00 commission exceeds 1000
	suite.Equal(int64(99), trade.Shares)
	suite.InDelta(result.FinalCash, result.EquityCurve.Final(), 1e-9)
	suite.InDelta(1000-990-0.99+99*12-0.99, result.FinalCash, 1e-9)
}

func (suite *SimulatorTestSuite) TestExitPrecedenceStopBeforeTarget() {
	bars := []types.Bar{
		bar(0, 100, 100, 100, 100),
		bar(1, 100, 100, 100, 100),
		bar(2, 100, 115, 90, 100), // both stop and target touched
		bar(3, 100, 100, 100, 100),
	}

	p := policy(func(p *strategy.ExecutionPolicy) {
		p.StopLossPercent = -5
		p.TakeProfitPercent = 10
	})

	result := suite.run(p, bars, 10000, entry(0))
	suite.Require().Len(result.Trades, 1)
	suite.Equal(types.ExitReasonStopLoss, result.Trades[0].ExitReason)
	suite.Equal(95.0, result.Trades[0].ExitPrice)
	suite.Equal(day(2), result.Trades[0].ExitDate)
}

func (suite *SimulatorTestSuite) TestTakeProfitFillsAtLevel() {
	bars := []types.Bar{
		bar(0, 100, 100, 100, 100),
		bar(1, 100, 100, 100, 100),
		bar(2, 101, 112, 100, 111),
		bar(3, 111, 111, 111, 111),
	}

	p := policy(func(p *strategy.ExecutionPolicy) {
		p.StopLossPercent = -5
		p.TakeProfitPercent = 10
	})

	result := suite.run(p, bars, 10000, entry(0))
	suite.Require().Len(result.Trades, 1)
	suite.Equal(types.ExitReasonTakeProfit, result.Trades[0].ExitReason)
	suite.Equal(110.0, result.Trades[0].ExitPrice)
	suite.InDelta(1000.0, result.Trades[0].NetPnL, 1e-9)
}

func (suite *SimulatorTestSuite) TestNoExitOnEntryBar() {
	bars := []types.Bar{
		bar(0, 100, 100, 100, 100),
		bar(1, 100, 100, 80, 100), // entry bar dips below the stop
		bar(2, 100, 100, 100, 100),
	}

	p := policy(func(p *strategy.ExecutionPolicy) {
		p.StopLossPercent = -5
	})

	result := suite.run(p, bars, 10000, entry(0))
	suite.Require().Len(result.Trades, 1)
	suite.Equal(types.ExitReasonLiquidatedAtEnd, result.Trades[0].ExitReason)
}

func (suite *SimulatorTestSuite) TestTrailingStop() {
	bars := []types.Bar{
		bar(0, 100, 100, 100, 100),
		bar(1, 100, 110, 100, 110), // entry at 100, hwm 110
		bar(2, 112, 121, 111, 120), // hwm 120
		bar(3, 115, 116, 107, 110), // level 108, low 107
		bar(4, 110, 110, 110, 110),
	}

	p := policy(func(p *strategy.ExecutionPolicy) {
		p.TrailingStopPercent = 10
	})

	result := suite.run(p, bars, 10000, entry(0))
	suite.Require().Len(result.Trades, 1)
	suite.Equal(types.ExitReasonTrailingStop, result.Trades[0].ExitReason)
	suite.Equal(108.0, result.Trades[0].ExitPrice)
	suite.Equal(day(3), result.Trades[0].ExitDate)
}

func (suite *SimulatorTestSuite) TestTrailingStopStartsAtEntryBarClose() {
	bars := []types.Bar{
		bar(0, 100, 100, 100, 100),
		bar(1, 100, 100, 89, 90), // entry at 100, hwm 90
		bar(2, 94, 95, 94, 94.5), // level 85.5, low 94
		bar(3, 93, 94, 92, 92),
	}

	p := policy(func(p *strategy.ExecutionPolicy) {
		p.TrailingStopPercent = 5
	})

	result := suite.run(p, bars, 10000, entry(0))
	suite.Require().Len(result.Trades, 1)
	suite.Equal(types.ExitReasonLiquidatedAtEnd, result.Trades[0].ExitReason)
	suite.Equal(92.0, result.Trades[0].ExitPrice)
}

func (suite *SimulatorTestSuite) TestSignalsBetweenBarsFillOnNextBar() {
	bars := []types.Bar{
		bar(0, 10, 10, 10, 10),
		bar(2, 11, 11, 11, 11),
		bar(4, 12, 12, 12, 12),
		bar(6, 13, 13, 13, 13),
		bar(8, 14, 14, 14, 14),
	}

	result := suite.run(policy(nil), bars, 1000, entry(1), exit(5))
	suite.Require().Len(result.Trades, 1)

	trade := result.Trades[0]
	suite.Equal(day(2), trade.EntryDate)
	suite.Equal(11.0, trade.EntryPrice)
	suite.Equal(day(6), trade.ExitDate)
	suite.Equal(13.0, trade.ExitPrice)
	suite.Equal(types.ExitReasonExitSignal, trade.ExitReason)
}

func (suite *SimulatorTestSuite) TestSignalBeforeFirstBarFillsOnFirstBar() {
	bars := []types.Bar{
		bar(2, 11, 11, 11, 11),
		bar(3, 12, 12, 12, 12),
	}

	result := suite.run(policy(nil), bars, 1000, entry(0))
	suite.Require().Len(result.Trades, 1)
	suite.Equal(day(2), result.Trades[0].EntryDate)
	suite.Equal(11.0, result.Trades[0].EntryPrice)
}

func (suite *SimulatorTestSuite) TestHoldingPeriod() {
	p := policy(func(p *strategy.ExecutionPolicy) {
		p.MaxHoldingDays = 2
	})

	bars := flatBars(6, 10)
	bars[3].Open = 11

	result := suite.run(p, bars, 1000, entry(0))
	suite.Require().Len(result.Trades, 1)
	suite.Equal(types.ExitReasonHoldingPeriod, result.Trades[0].ExitReason)
	suite.Equal(day(3), result.Trades[0].ExitDate)
	suite.Equal(11.0, result.Trades[0].ExitPrice)
}

func (suite *SimulatorTestSuite) TestEntryWhilePositionOpenSkipped() {
	result := suite.run(policy(nil), flatBars(5, 10), 1000, entry(0), entry(1), exit(3))

	suite.Require().Len(result.Trades, 1)
	suite.Equal(1, result.SkippedSignals)
	suite.Contains(result.Warnings[0].Message, SkipReasonPositionOpen)
	suite.Equal(day(4), result.Trades[0].ExitDate)
}

func (suite *SimulatorTestSuite) TestInsufficientCash() {
	result := suite.run(policy(nil), flatBars(3, 100), 50, entry(0))

	suite.Empty(result.Trades)
	suite.Equal(1, result.SkippedSignals)
	suite.Contains(result.Warnings[0].Message, SkipReasonInsufficientCash)
	suite.Equal(50.0, result.FinalCash)
}

func (suite *SimulatorTestSuite) TestExitWithoutPositionIgnored() {
	result := suite.run(policy(nil), flatBars(3, 10), 1000, exit(0))

	suite.Empty(result.Trades)
	suite.Zero(result.SkippedSignals)
}

func (suite *SimulatorTestSuite) TestPercentOfEquitySizing() {
	p := policy(func(p *strategy.ExecutionPolicy) {
		p.PositionSizePercent = 50
	})

	result := suite.run(p, flatBars(3, 10), 1000, entry(0))
	suite.Require().Len(result.Trades, 1)
	suite.Equal(int64(50), result.Trades[0].Shares)
}

func (suite *SimulatorTestSuite) TestEquityCurve() {
	bars := []types.Bar{
		bar(0, 10, 10, 10, 10),
		bar(1, 10, 12, 10, 12),
		bar(2, 12, 13, 9, 9),
		bar(3, 9, 9, 9, 9),
	}

	result := suite.run(policy(nil), bars, 1000, entry(0), exit(2))
	suite.Require().Len(result.EquityCurve, 4)

	suite.Equal(1000.0, result.EquityCurve[0].Value)
	suite.Equal(1200.0, result.EquityCurve[1].Value) // 0 cash + 100 * 12
	suite.Equal(900.0, result.EquityCurve[2].Value)
	suite.Equal(900.0, result.EquityCurve[3].Value) // exited at open 9

	for i, point := range result.EquityCurve {
		suite.Equal(bars[i].Date, point.Date)
	}
}

func (suite *SimulatorTestSuite) TestNoLookahead() {
	bars := []types.Bar{
		bar(0, 10, 10, 10, 10),
		bar(1, 11, 11, 11, 11),
		bar(2, 12, 12, 12, 12),
		bar(3, 13, 13, 13, 13),
	}

	baseline := suite.run(policy(nil), bars, 1000, entry(0))

	mutated := slices.Clone(bars)
	mutated[2] = bar(2, 50, 60, 40, 55)
	mutated[3] = bar(3, 70, 80, 60, 75)

	changed := suite.run(policy(nil), mutated, 1000, entry(0))

	suite.Equal(baseline.Trades[0].EntryPrice, changed.Trades[0].EntryPrice)
	suite.Equal(baseline.Trades[0].EntryDate, changed.Trades[0].EntryDate)
	suite.Equal(baseline.Trades[0].Shares, changed.Trades[0].Shares)
	suite.Equal(baseline.EquityCurve[1], changed.EquityCurve[1])
}

func (suite *SimulatorTestSuite) TestDeterminism() {
	bars := flatBars(10, 10)
	events := []types.SignalEvent{entry(1), exit(3), entry(5), exit(7)}

	a := suite.run(policy(nil), bars, 1000, events...)
	b := suite.run(policy(nil), bars, 1000, events...)

	suite.Equal(a, b)
	suite.Len(a.Trades, 2)
}

func (suite *SimulatorTestSuite) TestCustomCommission() {
	sim := New("AAPL", policy(nil), Config{Commission: commission_fee.NewInteractiveBrokerCommissionFee()})

	result, err := sim.Run(flatBars(3, 10), slices.Values([]types.SignalEvent{entry(0)}), 1000)
	suite.Require().NoError(err)
	suite.Require().Len(result.Trades, 1)
	suite.InDelta(2.0, result.Trades[0].Commission, 1e-9)
}

func (suite *SimulatorTestSuite) TestCommissionCalculatorPerLeg() {
	ctrl := gomock.NewController(suite.T())
	commission := mocks.NewMockCommissionFee(ctrl)
	commission.EXPECT().Calculate(gomock.Any()).Return(0.5).MinTimes(2)

	sim := New("AAPL", policy(nil), Config{Commission: commission})

	result, err := sim.Run(flatBars(3, 10), slices.Values([]types.SignalEvent{entry(0)}), 1000)
	suite.Require().NoError(err)
	suite.Require().Len(result.Trades, 1)
	suite.InDelta(1.0, result.Trades[0].Commission, 1e-9)
	suite.Positive(result.Trades[0].Shares)
}

func (suite *SimulatorTestSuite) TestEdgeCases() {
	sim := New("AAPL", policy(nil), Config{})

	result, err := sim.Run(nil, nil, 1000)
	suite.NoError(err)
	suite.Equal(1000.0, result.FinalCash)
	suite.Empty(result.EquityCurve)

	_, err = sim.Run(flatBars(2, 10), nil, -1)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	result, err = sim.Run(flatBars(2, 10), nil, 1000)
	suite.NoError(err)
	suite.Len(result.EquityCurve, 2)

	other := entry(0)
	other.Symbol = "MSFT"
	result, err = sim.Run(flatBars(3, 10), slices.Values([]types.SignalEvent{other}), 1000)
	suite.NoError(err)
	suite.Empty(result.Trades)
	suite.Equal(1, result.SkippedSignals)
}
