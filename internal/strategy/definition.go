// Package strategy holds declarative strategy definitions: the closed set of strategy
// kinds, their parameters, and the execution policy applied by the simulator.
package strategy

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Document is the file form of a strategy. Exactly the parameter block matching Kind
// must be present.
type Document struct {
	Name          string             `yaml:"name" json:"name" jsonschema:"title=Name,description=Human readable strategy name,required" validate:"required"`
	Description   string             `yaml:"description,omitempty" json:"description,omitempty" jsonschema:"title=Description"`
	EngineVersion string             `yaml:"engine_version,omitempty" json:"engine_version,omitempty" jsonschema:"title=Engine Version,description=Version or semver constraint the engine must satisfy" validate:"omitempty,engine_version"`
	Kind          types.StrategyKind `yaml:"kind" json:"kind" jsonschema:"title=Kind,enum=crossover,enum=multi_indicator,enum=rsi_extremes,required" validate:"required,oneof=crossover multi_indicator rsi_extremes"`

	Crossover      *CrossoverParams      `yaml:"crossover,omitempty" json:"crossover,omitempty" jsonschema:"title=Crossover Parameters"`
	MultiIndicator *MultiIndicatorParams `yaml:"multi_indicator,omitempty" json:"multi_indicator,omitempty" jsonschema:"title=Multi Indicator Parameters"`
	RSIExtremes    *RSIExtremesParams    `yaml:"rsi_extremes,omitempty" json:"rsi_extremes,omitempty" jsonschema:"title=RSI Extremes Parameters"`

	Execution ExecutionPolicy `yaml:"execution" json:"execution" jsonschema:"title=Execution Policy"`
}

// Definition is a validated, immutable strategy. The zero value is not usable; build one
// with New, Load or LoadFile.
type Definition struct {
	doc         Document
	params      Params
	fingerprint string
}

// New applies defaults to doc, validates it and returns the resulting Definition.
func New(doc Document) (Definition, error) {
	resolved := resolve(doc)

	if err := validate(resolved); err != nil {
		return Definition{}, err
	}

	var params Params

	switch resolved.Kind {
	case types.StrategyKindCrossover:
		params = *resolved.Crossover
	case types.StrategyKindMultiIndicator:
		params = *resolved.MultiIndicator
	case types.StrategyKindRSIExtremes:
		params = *resolved.RSIExtremes
	default:
		return Definition{}, errors.Newf(errors.ErrCodeUnsupportedStrategy, "unsupported strategy kind %q", resolved.Kind)
	}

	fingerprint, err := fingerprintOf(resolved)
	if err != nil {
		return Definition{}, err
	}

	return Definition{
		doc:         resolved,
		params:      params,
		fingerprint: fingerprint,
	}, nil
}

// resolve returns a deep copy of doc with defaults applied.
func resolve(doc Document) Document {
	if doc.Crossover != nil {
		p := doc.Crossover.withDefaults()
		doc.Crossover = &p
	}

	if doc.MultiIndicator != nil {
		p := doc.MultiIndicator.withDefaults()
		doc.MultiIndicator = &p
	}

	if doc.RSIExtremes != nil {
		p := doc.RSIExtremes.withDefaults()
		doc.RSIExtremes = &p
	}

	// a kind without a block gets the default parameters
	switch doc.Kind {
	case types.StrategyKindCrossover:
		if doc.Crossover == nil && doc.MultiIndicator == nil && doc.RSIExtremes == nil {
			p := CrossoverParams{}.withDefaults()
			doc.Crossover = &p
		}
	case types.StrategyKindMultiIndicator:
		if doc.Crossover == nil && doc.MultiIndicator == nil && doc.RSIExtremes == nil {
			p := MultiIndicatorParams{}.withDefaults()
			doc.MultiIndicator = &p
		}
	case types.StrategyKindRSIExtremes:
		if doc.Crossover == nil && doc.MultiIndicator == nil && doc.RSIExtremes == nil {
			p := RSIExtremesParams{}.withDefaults()
			doc.RSIExtremes = &p
		}
	}

	doc.Execution = doc.Execution.withDefaults()

	return doc
}

func fingerprintOf(doc Document) (string, error) {
	// description is documentation only
	doc.Description = ""

	data, err := json.Marshal(doc)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidStrategy, "failed to encode strategy", err)
	}

	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:]), nil
}

// Name returns the strategy name.
func (d Definition) Name() string {
	return d.doc.Name
}

// Kind returns the strategy kind.
func (d Definition) Kind() types.StrategyKind {
	return d.doc.Kind
}

// Params returns the kind-specific parameters.
func (d Definition) Params() Params {
	return d.params
}

// Crossover returns the crossover parameters. Only meaningful when Kind is crossover.
func (d Definition) Crossover() CrossoverParams {
	if d.doc.Crossover == nil {
		return CrossoverParams{}
	}

	return *d.doc.Crossover
}

// MultiIndicator returns the multi-indicator parameters. Only meaningful when Kind is
// multi_indicator.
func (d Definition) MultiIndicator() MultiIndicatorParams {
	if d.doc.MultiIndicator == nil {
		return MultiIndicatorParams{}
	}

	return *d.doc.MultiIndicator
}

// RSIExtremes returns the RSI extremes parameters. Only meaningful when Kind is rsi_extremes.
func (d Definition) RSIExtremes() RSIExtremesParams {
	if d.doc.RSIExtremes == nil {
		return RSIExtremesParams{}
	}

	return *d.doc.RSIExtremes
}

// Execution returns the execution policy.
func (d Definition) Execution() ExecutionPolicy {
	return d.doc.Execution
}

// EngineVersion returns the engine version requirement, empty when unconstrained.
func (d Definition) EngineVersion() string {
	return d.doc.EngineVersion
}

// Fingerprint returns the SHA-256 of the canonical JSON form of the resolved definition.
// Two definitions with identical semantics have the same fingerprint.
func (d Definition) Fingerprint() string {
	return d.fingerprint
}

// Document returns a copy of the resolved file form, defaults included.
func (d Definition) Document() Document {
	return resolve(d.doc)
}

// IsZero reports whether d was not built by New.
func (d Definition) IsZero() bool {
	return d.params == nil
}

// RequiredIndicators returns the sorted indicator names the strategy reads.
func (d Definition) RequiredIndicators() []string {
	var names []string

	switch d.Kind() {
	case types.StrategyKindCrossover:
		p := d.Crossover()
		names = []string{p.FastIndicator, p.SlowIndicator}
	case types.StrategyKindMultiIndicator:
		p := d.MultiIndicator()
		names = []string{p.FastIndicator, p.SlowIndicator, p.RSIIndicator, p.VolumeIndicator}
		if p.RequireTrend {
			names = append(names, p.TrendIndicator)
		}
	case types.StrategyKindRSIExtremes:
		names = []string{d.RSIExtremes().RSIIndicator}
	}

	slices.Sort(names)

	return slices.Compact(names)
}
