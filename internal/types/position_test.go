package types

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	state, err := Transition(PositionStateFlat, PositionEventEntryFill)
	require.NoError(t, err)
	assert.Equal(t, PositionStateOpen, state)

	state, err = Transition(state, PositionEventExitFill)
	require.NoError(t, err)
	assert.Equal(t, PositionStateFlat, state)
}

func TestInvalidTransition(t *testing.T) {
	state, err := Transition(PositionStateFlat, PositionEventExitFill)
	assert.Equal(t, PositionStateFlat, state)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidTransition))

	state, err = Transition(PositionStateOpen, PositionEventEntryFill)
	assert.Equal(t, PositionStateOpen, state)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidTransition))

	_, err = Transition(PositionState("unknown"), PositionEventEntryFill)
	assert.Error(t, err)
}

func TestTradeOutcome(t *testing.T) {
	assert.True(t, Trade{NetPnL: 1}.IsWin())
	assert.True(t, Trade{NetPnL: -1}.IsLoss())
	assert.False(t, Trade{NetPnL: 0}.IsWin())
	assert.False(t, Trade{NetPnL: 0}.IsLoss())
}

func TestCalendarDaysBetween(t *testing.T) {
	start := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, CalendarDaysBetween(start, start))
	assert.Equal(t, 3, CalendarDaysBetween(start, start.AddDate(0, 0, 3).Add(5*time.Hour)))
	assert.Equal(t, 366, CalendarDaysBetween(start, start.AddDate(1, 0, 0)))
}

func TestEquityCurve(t *testing.T) {
	curve := EquityCurve{
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Value: 100},
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Value: 110},
		{Date: time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), Value: 99},
	}

	assert.Equal(t, 100.0, curve.Initial())
	assert.Equal(t, 99.0, curve.Final())

	returns := curve.DailyReturns()
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.1, returns[0], 1e-12)
	assert.InDelta(t, -0.1, returns[1], 1e-12)

	assert.Nil(t, EquityCurve{}.DailyReturns())
	assert.Equal(t, 0.0, EquityCurve{}.Final())
}
