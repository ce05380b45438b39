// Package simulator turns a symbol's signal events into fills, trades and a daily
// equity curve under a strategy's execution policy.
package simulator

import (
	"iter"
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/simulator/commission_fee"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Skip reasons recorded for entry signals that could not be acted on.
const (
	SkipReasonPositionOpen     = "position_open"
	SkipReasonNoNextBar        = "no_next_bar"
	SkipReasonInsufficientCash = "insufficient_cash"
	SkipReasonDuplicateSignal  = "duplicate_signal"
	SkipReasonSymbolMismatch   = "symbol_mismatch"
)

var hundred = decimal.NewFromInt(100)

// Config holds the collaborators of a simulator.
type Config struct {
	// Commission calculates per-leg commissions. Defaults to the policy's commission model.
	Commission commission_fee.CommissionFee
	// Logger receives debug entries for skipped signals. Defaults to a no-op logger.
	Logger *logger.Logger
}

// Result is the outcome of simulating one symbol.
type Result struct {
	Trades         []types.Trade
	EquityCurve    types.EquityCurve
	FinalCash      float64
	FinalState     types.PositionState
	SkippedSignals int
	Warnings       []types.Warning
}

// Simulator replays signals for one symbol. A Simulator is not safe for concurrent use;
// create one per symbol task.
type Simulator struct {
	symbol     string
	policy     strategy.ExecutionPolicy
	commission commission_fee.CommissionFee
	logger     *logger.Logger

	slippage decimal.Decimal
}

// New creates a simulator for symbol.
func New(symbol string, policy strategy.ExecutionPolicy, config Config) *Simulator {
	commission := config.Commission
	if commission == nil {
		commission = commission_fee.GetCommissionFeeHandler(commission_fee.Broker(policy.CommissionModel), policy.CommissionPerShare)
	}

	log := config.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Simulator{
		symbol:     symbol,
		policy:     policy,
		commission: commission,
		logger:     log,
		slippage:   decimal.NewFromFloat(policy.SlippageFraction()),
	}
}

// run holds the mutable state of a single Run call.
type run struct {
	cash     decimal.Decimal
	state    types.PositionState
	position types.Position
	// entryIndex is the bar index of the entry fill
	entryIndex int

	pendingEntry *types.SignalEvent
	pendingExit  *types.SignalEvent

	result Result
}

// Run simulates bars against signals, starting with startingCash. bars must be the
// symbol's validated series in ascending order; signals must be in date order.
//
// For bar i the simulator:
//  1. registers the signals dated before bar i that are not yet registered
//  2. fills a pending entry at the open if flat
//  3. checks exits for a position entered before bar i, in order stop-loss,
//     take-profit, trailing stop, holding period, exit signal
//  4. registers the signals dated on bar i
//  5. records equity as cash plus shares marked at the close
//
// A signal dated D therefore acts on the first bar after D, whether or not a bar
// exists on D. The trailing stop tracks the highest close since entry, the entry bar
// included.
//
// A position still open after the last bar is closed at the final close.
func (s *Simulator) Run(bars []types.Bar, signals iter.Seq[types.SignalEvent], startingCash float64) (Result, error) {
	if math.IsNaN(startingCash) || math.IsInf(startingCash, 0) || startingCash < 0 {
		return Result{}, errors.Newf(errors.ErrCodeInvalidParameter, "starting cash must be a non-negative number, got %v", startingCash)
	}

	r := &run{
		cash:  decimal.NewFromFloat(startingCash),
		state: types.PositionStateFlat,
	}

	if len(bars) == 0 {
		r.result.FinalCash = startingCash
		r.result.FinalState = types.PositionStateFlat

		return r.result, nil
	}

	if signals == nil {
		signals = func(func(types.SignalEvent) bool) {}
	}

	next, stop := iter.Pull(signals)
	defer stop()

	peeked, hasPeeked := next()
	last := len(bars) - 1

	r.result.EquityCurve = make(types.EquityCurve, 0, len(bars))

	for i, bar := range bars {
		// signals dated between the previous bar and this one act on this bar
		for hasPeeked && peeked.Date.Before(bar.Date) {
			s.register(r, peeked, false)
			peeked, hasPeeked = next()
		}

		if err := s.fillPendingEntry(r, bar, i); err != nil {
			return Result{}, err
		}

		if r.state == types.PositionStateOpen && i > r.entryIndex {
			if reason, price, ok := s.checkExit(r, bar, i); ok {
				if err := s.exit(r, bar, price, reason); err != nil {
					return Result{}, err
				}
			}
		}

		r.pendingExit = nil

		for hasPeeked && !peeked.Date.After(bar.Date) {
			s.register(r, peeked, i == last)
			peeked, hasPeeked = next()
		}

		if r.state == types.PositionStateOpen {
			r.position.DaysHeld = i - r.entryIndex
			r.position.HighWaterMark = math.Max(r.position.HighWaterMark, bar.Close)
		}

		r.result.EquityCurve = append(r.result.EquityCurve, types.EquityPoint{
			Date:  bar.Date,
			Value: s.equity(r, bar.Close).InexactFloat64(),
		})
	}

	// anything after the last bar has no bar to fill on
	for hasPeeked {
		s.register(r, peeked, true)
		peeked, hasPeeked = next()
	}

	if r.state == types.PositionStateOpen {
		final := bars[last]
		if err := s.exit(r, final, final.Close, types.ExitReasonLiquidatedAtEnd); err != nil {
			return Result{}, err
		}

		r.result.EquityCurve[last].Value = r.cash.InexactFloat64()
	}

	r.result.FinalCash = r.cash.InexactFloat64()
	r.result.FinalState = r.state

	return r.result, nil
}

// register records a signal as pending for the next bar it can act on.
func (s *Simulator) register(r *run, event types.SignalEvent, lastBar bool) {
	if event.Symbol != "" && event.Symbol != s.symbol {
		s.skip(r, event, SkipReasonSymbolMismatch)
		return
	}

	switch event.Direction {
	case types.SignalDirectionEntry:
		switch {
		case lastBar:
			s.skip(r, event, SkipReasonNoNextBar)
		case r.pendingEntry != nil:
			s.skip(r, event, SkipReasonDuplicateSignal)
		default:
			pending := event
			r.pendingEntry = &pending
		}
	case types.SignalDirectionExit:
		if r.state != types.PositionStateOpen {
			s.logger.Debug("Ignoring exit signal without open position",
				zap.String("symbol", s.symbol),
				zap.Time("date", event.Date),
			)

			return
		}

		pending := event
		r.pendingExit = &pending
	}
}

func (s *Simulator) skip(r *run, event types.SignalEvent, reason string) {
	r.result.SkippedSignals++
	r.result.Warnings = append(r.result.Warnings, types.Warning{
		Symbol:  s.symbol,
		Date:    event.Date,
		Kind:    types.WarningKindSkippedSignal,
		Message: string(event.Direction) + " signal skipped: " + reason,
	})

	s.logger.Debug("Skipped signal",
		zap.String("symbol", s.symbol),
		zap.Time("date", event.Date),
		zap.String("direction", string(event.Direction)),
		zap.String("reason", reason),
	)
}

func (s *Simulator) equity(r *run, mark float64) decimal.Decimal {
	if r.state != types.PositionStateOpen {
		return r.cash
	}

	return r.cash.Add(decimal.NewFromInt(r.position.Shares).Mul(decimal.NewFromFloat(mark)))
}
