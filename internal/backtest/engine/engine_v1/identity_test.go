package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunID(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	base := RunID("fp", []string{"AAPL", "MSFT"}, start, end, 100000)

	t.Run("is a version 5 uuid", func(t *testing.T) {
		id, err := uuid.Parse(base)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(5), id.Version())
	})

	t.Run("ignores symbol order and duplicates", func(t *testing.T) {
		assert.Equal(t, base, RunID("fp", []string{"MSFT", "AAPL", "AAPL"}, start, end, 100000))
		assert.Equal(t, base, RunID("fp", []string{" MSFT", "AAPL "}, start, end, 100000))
	})

	t.Run("same instant in another zone", func(t *testing.T) {
		ny, err := time.LoadLocation("America/New_York")
		if err != nil {
			t.Skip("timezone data unavailable")
		}

		assert.Equal(t, base, RunID("fp", []string{"AAPL", "MSFT"}, start.In(ny), end.In(ny), 100000))
	})

	t.Run("every component changes the identity", func(t *testing.T) {
		variants := []string{
			RunID("other", []string{"AAPL", "MSFT"}, start, end, 100000),
			RunID("fp", []string{"AAPL"}, start, end, 100000),
			RunID("fp", []string{"AAPL", "MSFT"}, start.AddDate(0, 0, 1), end, 100000),
			RunID("fp", []string{"AAPL", "MSFT"}, start, end.AddDate(0, 0, 1), 100000),
			RunID("fp", []string{"AAPL", "MSFT"}, start, end, 100000.5),
		}

		for _, variant := range variants {
			assert.NotEqual(t, base, variant)
		}
	})
}

func TestNormalizeSymbols(t *testing.T) {
	assert.Equal(t, []string{"AAPL", "GOOG", "MSFT"}, normalizeSymbols([]string{"MSFT", "GOOG", "AAPL", "MSFT"}))
	assert.Empty(t, normalizeSymbols(nil))
}
