package signal

import (
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

func evaluateCrossover(p strategy.CrossoverParams, prev, curr types.Bar) []types.SignalEvent {
	direction, evidence, ok := detectCross(prev, curr, p.FastIndicator, p.SlowIndicator)
	if !ok {
		return nil
	}

	switch direction {
	case crossUp:
		return []types.SignalEvent{{
			Direction: types.SignalDirectionEntry,
			Reason:    "golden cross: " + p.FastIndicator + " crossed above " + p.SlowIndicator,
			Evidence:  evidence,
		}}
	case crossDown:
		return []types.SignalEvent{{
			Direction: types.SignalDirectionExit,
			Reason:    "death cross: " + p.FastIndicator + " crossed below " + p.SlowIndicator,
			Evidence:  evidence,
		}}
	}

	return nil
}

// evaluateMultiIndicator requires a golden cross confirmed on the same bar by RSI, volume
// and optionally trend. A missing confirmation indicator suppresses the entry.
func evaluateMultiIndicator(p strategy.MultiIndicatorParams, prev, curr types.Bar) []types.SignalEvent {
	direction, evidence, ok := detectCross(prev, curr, p.FastIndicator, p.SlowIndicator)
	if !ok {
		return nil
	}

	switch direction {
	case crossDown:
		return []types.SignalEvent{{
			Direction: types.SignalDirectionExit,
			Reason:    "death cross: " + p.FastIndicator + " crossed below " + p.SlowIndicator,
			Evidence:  evidence,
		}}
	case crossUp:
		rsi, ok := curr.Indicator(p.RSIIndicator)
		if !ok || rsi < p.RSIMin || rsi > p.RSIMax {
			return nil
		}

		volumeAverage, ok := curr.Indicator(p.VolumeIndicator)
		if !ok || curr.Volume < p.VolumeMultiplier*volumeAverage {
			return nil
		}

		evidence[p.RSIIndicator] = rsi
		evidence[p.VolumeIndicator] = volumeAverage
		evidence["volume"] = curr.Volume

		if p.RequireTrend {
			trend, ok := curr.Indicator(p.TrendIndicator)
			if !ok || curr.Close <= trend {
				return nil
			}

			evidence[p.TrendIndicator] = trend
			evidence["close"] = curr.Close
		}

		return []types.SignalEvent{{
			Direction: types.SignalDirectionEntry,
			Reason:    "confirmed golden cross: " + p.FastIndicator + " crossed above " + p.SlowIndicator,
			Evidence:  evidence,
		}}
	}

	return nil
}

func evaluateRSIExtremes(p strategy.RSIExtremesParams, prev, curr types.Bar) []types.SignalEvent {
	before, after, ok := pair(prev, curr, p.RSIIndicator)
	if !ok {
		return nil
	}

	evidence := map[string]float64{
		p.RSIIndicator:           after,
		"prev_" + p.RSIIndicator: before,
	}

	switch {
	case before >= p.Oversold && after < p.Oversold:
		return []types.SignalEvent{{
			Direction: types.SignalDirectionEntry,
			Reason:    "rsi crossed below oversold",
			Evidence:  evidence,
		}}
	case before <= p.Overbought && after > p.Overbought:
		return []types.SignalEvent{{
			Direction: types.SignalDirectionExit,
			Reason:    "rsi crossed above overbought",
			Evidence:  evidence,
		}}
	}

	return nil
}
