// Package signal replays a strategy over a symbol's bar history and emits entry and
// exit candidates. Detection is causal: the event for bar i reads bars i-1 and i only.
package signal

import (
	"fmt"
	"iter"

	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Detector evaluates one strategy definition. It is stateless and safe for concurrent use.
type Detector struct {
	definition strategy.Definition
	evaluate   func(prev, curr types.Bar) []types.SignalEvent
}

// NewDetector creates a detector for def. It panics if def's kind has no rule set,
// which only happens for a Definition not built by strategy.New.
func NewDetector(def strategy.Definition) *Detector {
	d := &Detector{definition: def}

	switch def.Kind() {
	case types.StrategyKindCrossover:
		params := def.Crossover()
		d.evaluate = func(prev, curr types.Bar) []types.SignalEvent {
			return evaluateCrossover(params, prev, curr)
		}
	case types.StrategyKindMultiIndicator:
		params := def.MultiIndicator()
		d.evaluate = func(prev, curr types.Bar) []types.SignalEvent {
			return evaluateMultiIndicator(params, prev, curr)
		}
	case types.StrategyKindRSIExtremes:
		params := def.RSIExtremes()
		d.evaluate = func(prev, curr types.Bar) []types.SignalEvent {
			return evaluateRSIExtremes(params, prev, curr)
		}
	default:
		panic(fmt.Sprintf("signal: unsupported strategy kind %q", def.Kind()))
	}

	return d
}

// Detect returns the signal events for bars, which must be one symbol's series in
// ascending date order. The sequence is lazy and can be iterated more than once;
// identical input always yields an identical sequence.
func (d *Detector) Detect(symbol string, bars []types.Bar) iter.Seq[types.SignalEvent] {
	return func(yield func(types.SignalEvent) bool) {
		for i := 1; i < len(bars); i++ {
			prev, curr := bars[i-1], bars[i]

			for _, event := range d.evaluate(prev, curr) {
				event.Symbol = symbol
				event.Date = curr.Date
				event.Kind = d.definition.Kind()

				if !yield(event) {
					return
				}
			}
		}
	}
}

// Collect drains Detect into a slice.
func (d *Detector) Collect(symbol string, bars []types.Bar) []types.SignalEvent {
	var events []types.SignalEvent
	for event := range d.Detect(symbol, bars) {
		events = append(events, event)
	}

	return events
}

// pair reads an indicator on two consecutive bars. ok is false if either value is missing.
func pair(prev, curr types.Bar, name string) (before, after float64, ok bool) {
	before, okPrev := prev.Indicator(name)
	after, okCurr := curr.Indicator(name)

	return before, after, okPrev && okCurr
}

type cross int

const (
	noCross cross = iota
	crossUp
	crossDown
)

// detectCross compares fast against slow on two consecutive bars.
// Up: fast <= slow before and fast > slow after. Down: fast >= slow before and fast < slow after.
func detectCross(prev, curr types.Bar, fastName, slowName string) (cross, map[string]float64, bool) {
	fastPrev, fastCurr, okFast := pair(prev, curr, fastName)
	slowPrev, slowCurr, okSlow := pair(prev, curr, slowName)

	if !okFast || !okSlow {
		return noCross, nil, false
	}

	evidence := map[string]float64{
		fastName:           fastCurr,
		slowName:           slowCurr,
		"prev_" + fastName: fastPrev,
		"prev_" + slowName: slowPrev,
	}

	switch {
	case fastPrev <= slowPrev && fastCurr > slowCurr:
		return crossUp, evidence, true
	case fastPrev >= slowPrev && fastCurr < slowCurr:
		return crossDown, evidence, true
	default:
		return noCross, evidence, true
	}
}
