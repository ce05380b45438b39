package indicator_test

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEnrichComputesRegisteredIndicatorOnce(t *testing.T) {
	ctrl := gomock.NewController(t)

	bars := []types.Bar{
		{Symbol: "AAPL", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 10, Indicators: map[string]float64{"sma_2": 9}},
		{Symbol: "AAPL", Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Close: 11, Indicators: map[string]float64{"sma_2": 10.5}},
	}

	custom := mocks.NewMockIndicator(ctrl)
	custom.EXPECT().Name().Return("custom").AnyTimes()
	custom.EXPECT().Compute(bars).Return([]float64{1, 2}).Times(1)

	registry := indicator.NewIndicatorRegistry()
	require.NoError(t, registry.RegisterIndicator(custom))

	enriched, computed, err := indicator.Enrich(registry, bars, []string{"custom", "sma_2"})
	require.NoError(t, err)

	assert.Equal(t, []string{"custom"}, computed)
	assert.Equal(t, 2.0, enriched[1].Indicators["custom"])
	assert.Equal(t, 10.5, enriched[1].Indicators["sma_2"])
	// input maps are untouched
	assert.NotContains(t, bars[0].Indicators, "custom")
}
