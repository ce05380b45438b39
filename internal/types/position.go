package types

import (
	"time"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// PositionState is the per-symbol position state. A symbol is either flat or holds exactly
// one open long position; pyramiding is not supported.
type PositionState string

const (
	PositionStateFlat PositionState = "flat"
	PositionStateOpen PositionState = "open"
)

// PositionEvent drives the position state machine.
type PositionEvent string

const (
	PositionEventEntryFill PositionEvent = "entry_fill"
	PositionEventExitFill  PositionEvent = "exit_fill"
)

// Transition returns the state that follows applying event to state.
//
//	Flat --entry_fill--> Open --exit_fill--> Flat
func Transition(state PositionState, event PositionEvent) (PositionState, error) {
	switch state {
	case PositionStateFlat:
		switch event {
		case PositionEventEntryFill:
			return PositionStateOpen, nil
		case PositionEventExitFill:
			return state, errors.New(errors.ErrCodeInvalidTransition, "cannot exit a flat position")
		}
	case PositionStateOpen:
		switch event {
		case PositionEventExitFill:
			return PositionStateFlat, nil
		case PositionEventEntryFill:
			return state, errors.New(errors.ErrCodeInvalidTransition, "position already open")
		}
	}

	return state, errors.Newf(errors.ErrCodeInvalidTransition, "unknown transition %s on %s", event, state)
}

// Position is the open position of a symbol.
type Position struct {
	Symbol     string    `yaml:"symbol" json:"symbol"`
	EntryDate  time.Time `yaml:"entry_date" json:"entry_date"`
	EntryPrice float64   `yaml:"entry_price" json:"entry_price"`
	Shares     int64     `yaml:"shares" json:"shares"`
	// EntryCommission and EntrySlippage are the costs paid on the entry leg
	EntryCommission float64 `yaml:"entry_commission" json:"entry_commission"`
	EntrySlippage   float64 `yaml:"entry_slippage" json:"entry_slippage"`
	// DaysHeld is the number of trading bars elapsed since the entry bar
	DaysHeld int `yaml:"days_held" json:"days_held"`
	// HighWaterMark is the highest close since entry, used by the trailing stop
	HighWaterMark float64 `yaml:"high_water_mark" json:"high_water_mark"`
}
