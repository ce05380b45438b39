package types

import "time"

// SignalDirection tells the simulator whether a signal proposes opening or closing a position.
type SignalDirection string

const (
	// SignalDirectionEntry proposes opening a long position
	SignalDirectionEntry SignalDirection = "entry"
	// SignalDirectionExit proposes closing the open position
	SignalDirectionExit SignalDirection = "exit"
)

// StrategyKind is the closed set of supported strategy families.
type StrategyKind string

const (
	StrategyKindCrossover      StrategyKind = "crossover"
	StrategyKindMultiIndicator StrategyKind = "multi_indicator"
	StrategyKindRSIExtremes    StrategyKind = "rsi_extremes"
)

// AllStrategyKinds lists every strategy kind. Used by the JSON schema.
var AllStrategyKinds = []any{
	StrategyKindCrossover,
	StrategyKindMultiIndicator,
	StrategyKindRSIExtremes,
}

// SignalEvent is an entry or exit candidate produced by the signal detector.
// Events are never mutated after emission.
type SignalEvent struct {
	// Symbol is the symbol of the signal
	Symbol string `yaml:"symbol" json:"symbol"`
	// Date is the date of the bar that generated the signal
	Date time.Time `yaml:"date" json:"date"`
	// Direction is entry or exit
	Direction SignalDirection `yaml:"direction" json:"direction"`
	// Kind is the strategy kind that produced the signal
	Kind StrategyKind `yaml:"kind" json:"kind"`
	// Reason is a short human-readable description, e.g. "golden cross"
	Reason string `yaml:"reason" json:"reason"`
	// Evidence holds the indicator values that triggered the signal
	Evidence map[string]float64 `yaml:"evidence" json:"evidence"`
}
