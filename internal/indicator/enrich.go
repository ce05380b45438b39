package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Enrich returns bars with every indicator in names that the bars do not carry computed
// from the bars themselves. An indicator counts as carried when at least one bar has a
// key for it. The input slice and its maps are not modified.
func Enrich(registry IndicatorRegistry, bars []types.Bar, names []string) ([]types.Bar, []string, error) {
	var missing []Indicator

	for _, name := range names {
		if carried(bars, name) {
			continue
		}

		indicator, err := registry.GetIndicator(name)
		if err != nil {
			return nil, nil, err
		}

		missing = append(missing, indicator)
	}

	if len(missing) == 0 {
		return bars, nil, nil
	}

	enriched := make([]types.Bar, len(bars))
	for i, bar := range bars {
		indicators := make(map[string]float64, len(bar.Indicators)+len(missing))
		for k, v := range bar.Indicators {
			indicators[k] = v
		}

		bar.Indicators = indicators
		enriched[i] = bar
	}

	computed := make([]string, 0, len(missing))

	for _, indicator := range missing {
		series := indicator.Compute(bars)
		for i := range enriched {
			enriched[i].Indicators[indicator.Name()] = series[i]
		}

		computed = append(computed, indicator.Name())
	}

	return enriched, computed, nil
}

func carried(bars []types.Bar, name string) bool {
	for _, bar := range bars {
		if _, ok := bar.Indicators[name]; ok {
			return true
		}
	}

	return false
}
