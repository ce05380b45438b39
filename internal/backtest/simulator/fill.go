package simulator

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
)

// fillPendingEntry fills an entry signal from an earlier bar at this bar's open.
func (s *Simulator) fillPendingEntry(r *run, bar types.Bar, i int) error {
	if r.pendingEntry == nil {
		return nil
	}

	event := *r.pendingEntry
	r.pendingEntry = nil

	if r.state != types.PositionStateFlat {
		s.skip(r, event, SkipReasonPositionOpen)
		return nil
	}

	price := decimal.NewFromFloat(bar.Open)

	shares := s.sizePosition(r.cash, price)
	if shares <= 0 {
		s.skip(r, event, SkipReasonInsufficientCash)
		return nil
	}

	state, err := types.Transition(r.state, types.PositionEventEntryFill)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSimulationFailed, "entry fill rejected", err)
	}

	commission, slippage := s.costs(shares, price)
	cost := price.Mul(decimal.NewFromInt(shares)).Add(commission).Add(slippage)

	r.state = state
	r.cash = r.cash.Sub(cost)
	r.entryIndex = i
	r.position = types.Position{
		Symbol:          s.symbol,
		EntryDate:       bar.Date,
		EntryPrice:      bar.Open,
		Shares:          shares,
		EntryCommission: commission.InexactFloat64(),
		EntrySlippage:   slippage.InexactFloat64(),
		DaysHeld:        0,
		HighWaterMark:   bar.Close,
	}

	return nil
}

// sizePosition returns the number of whole shares to buy at price. The allocation is a
// percent of current equity or a fixed amount capped at cash; shares are then reduced
// until price, commission and slippage fit in cash.
func (s *Simulator) sizePosition(cash, price decimal.Decimal) int64 {
	if !price.IsPositive() || !cash.IsPositive() {
		return 0
	}

	var allocated decimal.Decimal

	switch s.policy.PositionSizing {
	case strategy.PositionSizingFixedAmount:
		allocated = decimal.Min(decimal.NewFromFloat(s.policy.PositionSizeAmount), cash)
	default:
		// flat when sizing, so equity equals cash
		allocated = cash.Mul(decimal.NewFromFloat(s.policy.PositionSizeFraction()))
	}

	shares := allocated.Div(price).Floor().IntPart()
	if shares <= 0 {
		return 0
	}

	// proportional first step, then one share at a time
	total := s.totalCost(shares, price)
	if total.GreaterThan(cash) {
		scaled := decimal.NewFromInt(shares).Mul(cash).Div(total).Floor().IntPart()
		shares = max(scaled, 0)
	}

	for shares > 0 && s.totalCost(shares, price).GreaterThan(cash) {
		shares--
	}

	return shares
}

func (s *Simulator) totalCost(shares int64, price decimal.Decimal) decimal.Decimal {
	commission, slippage := s.costs(shares, price)

	return price.Mul(decimal.NewFromInt(shares)).Add(commission).Add(slippage)
}

// costs returns the commission and slippage of one leg.
func (s *Simulator) costs(shares int64, price decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	commission := decimal.NewFromFloat(s.commission.Calculate(float64(shares)))
	slippage := price.Mul(decimal.NewFromInt(shares)).Mul(s.slippage)

	return commission, slippage
}

// checkExit evaluates the exit rules for bar i in precedence order. The first match wins.
func (s *Simulator) checkExit(r *run, bar types.Bar, i int) (types.ExitReason, float64, bool) {
	entry := r.position.EntryPrice

	if sl, ok := s.policy.StopLoss(); ok {
		level := entry * (1 + sl)
		if bar.Low <= level {
			return types.ExitReasonStopLoss, level, true
		}
	}

	if tp, ok := s.policy.TakeProfit(); ok {
		level := entry * (1 + tp)
		if bar.High >= level {
			return types.ExitReasonTakeProfit, level, true
		}
	}

	if trail, ok := s.policy.TrailingStop(); ok {
		level := r.position.HighWaterMark * (1 - trail)
		if bar.Low < level {
			return types.ExitReasonTrailingStop, level, true
		}
	}

	if maxDays, ok := s.policy.HoldingPeriod(); ok && i-r.entryIndex >= maxDays {
		return types.ExitReasonHoldingPeriod, bar.Open, true
	}

	if r.pendingExit != nil {
		return types.ExitReasonExitSignal, bar.Open, true
	}

	return "", 0, false
}

// exit closes the open position at price and records the trade.
func (s *Simulator) exit(r *run, bar types.Bar, price float64, reason types.ExitReason) error {
	state, err := types.Transition(r.state, types.PositionEventExitFill)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSimulationFailed, "exit fill rejected", err)
	}

	price = roundPrice(price)
	pos := r.position
	shares := decimal.NewFromInt(pos.Shares)
	entryPrice := decimal.NewFromFloat(pos.EntryPrice)
	exitPrice := decimal.NewFromFloat(price)

	exitCommission, exitSlippage := s.costs(pos.Shares, exitPrice)
	commission := decimal.NewFromFloat(pos.EntryCommission).Add(exitCommission)
	slippage := decimal.NewFromFloat(pos.EntrySlippage).Add(exitSlippage)

	gross := exitPrice.Sub(entryPrice).Mul(shares)
	net := gross.Sub(commission).Sub(slippage)

	returnPercent := 0.0
	if basis := entryPrice.Mul(shares); basis.IsPositive() {
		returnPercent = net.Div(basis).Mul(hundred).InexactFloat64()
	}

	r.cash = r.cash.Add(exitPrice.Mul(shares)).Sub(exitCommission).Sub(exitSlippage)
	r.state = state
	r.position = types.Position{}

	r.result.Trades = append(r.result.Trades, types.Trade{
		Symbol:          s.symbol,
		EntryDate:       pos.EntryDate,
		EntryPrice:      pos.EntryPrice,
		ExitDate:        bar.Date,
		ExitPrice:       price,
		Shares:          pos.Shares,
		GrossPnL:        gross.InexactFloat64(),
		Commission:      commission.InexactFloat64(),
		Slippage:        slippage.InexactFloat64(),
		NetPnL:          net.InexactFloat64(),
		ReturnPercent:   returnPercent,
		HoldingDays:     types.CalendarDaysBetween(pos.EntryDate, bar.Date),
		ExitReason:      reason,
		LiquidatedAtEnd: reason == types.ExitReasonLiquidatedAtEnd,
	})

	return nil
}

// roundPrice trims float noise from computed stop and target levels.
func roundPrice(price float64) float64 {
	return math.Round(price*1e8) / 1e8
}
