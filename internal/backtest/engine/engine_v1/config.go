package engine

import (
	"encoding/json"
	"reflect"
	"runtime"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"gopkg.in/yaml.v2"
)

// CapitalAllocation decides how the run's capital is spread across symbols.
type CapitalAllocation string

const (
	// CapitalAllocationSplitEqual gives every requested symbol capital / N. Failed symbols
	// keep their share as cash in the portfolio curve.
	CapitalAllocationSplitEqual CapitalAllocation = "split_equal"
	// CapitalAllocationPerSymbol gives every symbol the full capital.
	CapitalAllocationPerSymbol CapitalAllocation = "per_symbol"
)

// AllCapitalAllocations lists the supported allocation policies.
var AllCapitalAllocations = []any{CapitalAllocationSplitEqual, CapitalAllocationPerSymbol}

// RerunPolicy decides what happens when a run with the same identity is already stored.
type RerunPolicy string

const (
	RerunPolicyReuse     RerunPolicy = "reuse"
	RerunPolicyOverwrite RerunPolicy = "overwrite"
)

// AllRerunPolicies lists the supported rerun policies.
var AllRerunPolicies = []any{RerunPolicyReuse, RerunPolicyOverwrite}

type BacktestEngineV1Config struct {
	MaxWorkers               optional.Option[int]           `yaml:"max_workers" json:"max_workers" jsonschema:"title=Max Workers,description=Number of symbols simulated in parallel. Defaults to the number of CPUs,minimum=1"`
	RunTimeout               optional.Option[time.Duration] `yaml:"run_timeout" json:"run_timeout" jsonschema:"title=Run Timeout,description=Optional deadline for the whole run (e.g. 5m)"`
	CapitalAllocation        CapitalAllocation              `yaml:"capital_allocation" json:"capital_allocation" jsonschema:"title=Capital Allocation,description=How the run capital is spread across symbols,default=split_equal"`
	RerunPolicy              RerunPolicy                    `yaml:"rerun_policy" json:"rerun_policy" jsonschema:"title=Rerun Policy,description=Whether a stored run with the same identity is returned or recomputed,default=reuse"`
	ComputeMissingIndicators bool                           `yaml:"compute_missing_indicators" json:"compute_missing_indicators" jsonschema:"title=Compute Missing Indicators,description=Compute indicators the strategy needs but the data does not carry,default=true"`
	TradingDaysPerYear       optional.Option[float64]       `yaml:"trading_days_per_year" json:"trading_days_per_year" jsonschema:"title=Trading Days Per Year,description=Annualization factor for volatility and ratios,minimum=1"`
}

// UnmarshalYAML implements custom unmarshaling for BacktestEngineV1Config
func (c *BacktestEngineV1Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type Config struct {
		MaxWorkers               *int              `yaml:"max_workers"`
		RunTimeout               *time.Duration    `yaml:"run_timeout"`
		CapitalAllocation        CapitalAllocation `yaml:"capital_allocation"`
		RerunPolicy              RerunPolicy       `yaml:"rerun_policy"`
		ComputeMissingIndicators *bool             `yaml:"compute_missing_indicators"`
		TradingDaysPerYear       *float64          `yaml:"trading_days_per_year"`
	}

	var config Config
	if err := unmarshal(&config); err != nil {
		return err
	}

	*c = EmptyConfig()

	if config.MaxWorkers != nil {
		c.MaxWorkers = optional.Some(*config.MaxWorkers)
	}

	if config.RunTimeout != nil {
		c.RunTimeout = optional.Some(*config.RunTimeout)
	}

	if config.CapitalAllocation != "" {
		c.CapitalAllocation = config.CapitalAllocation
	}

	if config.RerunPolicy != "" {
		c.RerunPolicy = config.RerunPolicy
	}

	if config.ComputeMissingIndicators != nil {
		c.ComputeMissingIndicators = *config.ComputeMissingIndicators
	}

	if config.TradingDaysPerYear != nil {
		c.TradingDaysPerYear = optional.Some(*config.TradingDaysPerYear)
	}

	return nil
}

// ParseConfig reads a YAML engine configuration and validates it.
// An empty document yields EmptyConfig.
func ParseConfig(data []byte) (BacktestEngineV1Config, error) {
	config := EmptyConfig()

	if err := yaml.Unmarshal(data, &config); err != nil {
		return BacktestEngineV1Config{}, errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to parse engine config", err)
	}

	if err := config.Validate(); err != nil {
		return BacktestEngineV1Config{}, err
	}

	return config, nil
}

// Validate checks the configured values.
func (c BacktestEngineV1Config) Validate() error {
	if workers, err := c.MaxWorkers.Take(); err == nil && workers < 1 {
		return errors.Newf(errors.ErrCodeBacktestConfigError, "max_workers must be at least 1, got %d", workers)
	}

	if timeout, err := c.RunTimeout.Take(); err == nil && timeout <= 0 {
		return errors.Newf(errors.ErrCodeBacktestConfigError, "run_timeout must be positive, got %s", timeout)
	}

	switch c.CapitalAllocation {
	case CapitalAllocationSplitEqual, CapitalAllocationPerSymbol:
	default:
		return errors.Newf(errors.ErrCodeBacktestConfigError, "unsupported capital_allocation %q", c.CapitalAllocation)
	}

	switch c.RerunPolicy {
	case RerunPolicyReuse, RerunPolicyOverwrite:
	default:
		return errors.Newf(errors.ErrCodeBacktestConfigError, "unsupported rerun_policy %q", c.RerunPolicy)
	}

	if days, err := c.TradingDaysPerYear.Take(); err == nil && days < 1 {
		return errors.Newf(errors.ErrCodeBacktestConfigError, "trading_days_per_year must be at least 1, got %v", days)
	}

	return nil
}

// Workers returns the worker pool size.
func (c BacktestEngineV1Config) Workers() int {
	return c.MaxWorkers.TakeOr(runtime.NumCPU())
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			switch t.String() {
			case "optional.Option[int]":
				return &jsonschema.Schema{Type: "integer"}
			case "optional.Option[float64]":
				return &jsonschema.Schema{Type: "number"}
			case "optional.Option[time.Duration]":
				return &jsonschema.Schema{Type: "string", Pattern: `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`}
			case "engine.CapitalAllocation":
				return &jsonschema.Schema{Type: "string", Enum: AllCapitalAllocations}
			case "engine.RerunPolicy":
				return &jsonschema.Schema{Type: "string", Enum: AllRerunPolicies}
			}

			return nil
		},
	}

	// Generate schema from BacktestEngineV1Config struct
	schema := reflector.Reflect(c)

	// Set schema metadata
	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// EmptyConfig returns a BacktestEngineV1Config with default values
func EmptyConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		MaxWorkers:               optional.None[int](),
		RunTimeout:               optional.None[time.Duration](),
		CapitalAllocation:        CapitalAllocationSplitEqual,
		RerunPolicy:              RerunPolicyReuse,
		ComputeMissingIndicators: true,
		TradingDaysPerYear:       optional.None[float64](),
	}
}
