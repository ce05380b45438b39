package types

import (
	"time"
)

// ExitReason records which rule closed a trade.
type ExitReason string

const (
	ExitReasonStopLoss        ExitReason = "stop_loss"
	ExitReasonTakeProfit      ExitReason = "take_profit"
	ExitReasonTrailingStop    ExitReason = "trailing_stop"
	ExitReasonHoldingPeriod   ExitReason = "holding_period"
	ExitReasonExitSignal      ExitReason = "exit_signal"
	ExitReasonLiquidatedAtEnd ExitReason = "liquidated_at_end"
)

// Trade is a closed round trip. Trades are immutable once closed and are the unit
// consumed by the metrics calculator.
type Trade struct {
	Symbol     string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	EntryDate  time.Time `yaml:"entry_date" json:"entry_date" csv:"entry_date"`
	EntryPrice float64   `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	ExitDate   time.Time `yaml:"exit_date" json:"exit_date" csv:"exit_date"`
	ExitPrice  float64   `yaml:"exit_price" json:"exit_price" csv:"exit_price"`
	Shares     int64     `yaml:"shares" json:"shares" csv:"shares"`
	// GrossPnL is (exit price - entry price) * shares
	GrossPnL float64 `yaml:"gross_pnl" json:"gross_pnl" csv:"gross_pnl"`
	// Commission is the commission paid on both legs
	Commission float64 `yaml:"commission" json:"commission" csv:"commission"`
	// Slippage is the slippage cost of both legs
	Slippage float64 `yaml:"slippage" json:"slippage" csv:"slippage"`
	// NetPnL is GrossPnL - Commission - Slippage
	NetPnL float64 `yaml:"net_pnl" json:"net_pnl" csv:"net_pnl"`
	// ReturnPercent is NetPnL relative to the entry cost basis, in percent
	ReturnPercent float64 `yaml:"return_percent" json:"return_percent" csv:"return_percent"`
	// HoldingDays is the number of calendar days between entry and exit
	HoldingDays int        `yaml:"holding_days" json:"holding_days" csv:"holding_days"`
	ExitReason  ExitReason `yaml:"exit_reason" json:"exit_reason" csv:"exit_reason"`
	// LiquidatedAtEnd marks a position force-closed at the final bar rather than by a rule
	LiquidatedAtEnd bool `yaml:"liquidated_at_end" json:"liquidated_at_end" csv:"liquidated_at_end"`
}

// IsWin reports whether the trade made money after costs.
func (t Trade) IsWin() bool {
	return t.NetPnL > 0
}

// IsLoss reports whether the trade lost money after costs.
func (t Trade) IsLoss() bool {
	return t.NetPnL < 0
}

// CalendarDaysBetween returns the whole calendar days from start to end.
func CalendarDaysBetween(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	return int(e.Sub(s).Hours() / 24)
}
