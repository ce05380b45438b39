package strategy

// Default indicator names and thresholds used when a strategy leaves them out.
const (
	DefaultFastIndicator    = "ema_9"
	DefaultSlowIndicator    = "sma_20"
	DefaultRSIIndicator     = "rsi_14"
	DefaultVolumeIndicator  = "sma_vol_20"
	DefaultTrendIndicator   = "sma_50"
	DefaultVolumeMultiplier = 1.0
	DefaultRSIMin           = 30.0
	DefaultRSIMax           = 70.0
	DefaultOversold         = 30.0
	DefaultOverbought       = 70.0
)

// Params is the kind-specific parameter record of a strategy.
// It is one of CrossoverParams, MultiIndicatorParams or RSIExtremesParams.
type Params interface {
	isParams()
}

// CrossoverParams configures a moving-average crossover strategy.
type CrossoverParams struct {
	FastIndicator string `yaml:"fast_indicator" json:"fast_indicator" jsonschema:"title=Fast Indicator,description=Fast moving average indicator name,default=ema_9" validate:"omitempty,indicator_name"`
	SlowIndicator string `yaml:"slow_indicator" json:"slow_indicator" jsonschema:"title=Slow Indicator,description=Slow moving average indicator name,default=sma_20" validate:"omitempty,indicator_name,nefield=FastIndicator"`
}

func (CrossoverParams) isParams() {}

func (p CrossoverParams) withDefaults() CrossoverParams {
	if p.FastIndicator == "" {
		p.FastIndicator = DefaultFastIndicator
	}

	if p.SlowIndicator == "" {
		p.SlowIndicator = DefaultSlowIndicator
	}

	return p
}

// MultiIndicatorParams confirms a crossover with RSI, volume and optionally trend filters.
// RSIMin and RSIMax both zero means the default range.
type MultiIndicatorParams struct {
	FastIndicator    string  `yaml:"fast_indicator" json:"fast_indicator" jsonschema:"title=Fast Indicator,default=ema_9" validate:"omitempty,indicator_name"`
	SlowIndicator    string  `yaml:"slow_indicator" json:"slow_indicator" jsonschema:"title=Slow Indicator,default=sma_20" validate:"omitempty,indicator_name,nefield=FastIndicator"`
	RSIIndicator     string  `yaml:"rsi_indicator" json:"rsi_indicator" jsonschema:"title=RSI Indicator,default=rsi_14" validate:"omitempty,indicator_name"`
	RSIMin           float64 `yaml:"rsi_min" json:"rsi_min" jsonschema:"title=RSI Min,minimum=0,maximum=100,default=30" validate:"gte=0,lte=100"`
	RSIMax           float64 `yaml:"rsi_max" json:"rsi_max" jsonschema:"title=RSI Max,minimum=0,maximum=100,default=70" validate:"gte=0,lte=100"`
	VolumeIndicator  string  `yaml:"volume_indicator" json:"volume_indicator" jsonschema:"title=Volume Average Indicator,default=sma_vol_20" validate:"omitempty,indicator_name"`
	VolumeMultiplier float64 `yaml:"volume_multiplier" json:"volume_multiplier" jsonschema:"title=Volume Multiplier,description=Volume must be at least this multiple of the volume average,minimum=0,default=1" validate:"gte=0"`
	RequireTrend     bool    `yaml:"require_trend" json:"require_trend" jsonschema:"title=Require Trend,description=Require close above the trend moving average"`
	TrendIndicator   string  `yaml:"trend_indicator" json:"trend_indicator" jsonschema:"title=Trend Indicator,default=sma_50" validate:"omitempty,indicator_name"`
}

func (MultiIndicatorParams) isParams() {}

func (p MultiIndicatorParams) withDefaults() MultiIndicatorParams {
	if p.FastIndicator == "" {
		p.FastIndicator = DefaultFastIndicator
	}

	if p.SlowIndicator == "" {
		p.SlowIndicator = DefaultSlowIndicator
	}

	if p.RSIIndicator == "" {
		p.RSIIndicator = DefaultRSIIndicator
	}

	if p.RSIMin == 0 && p.RSIMax == 0 {
		p.RSIMin = DefaultRSIMin
		p.RSIMax = DefaultRSIMax
	}

	if p.VolumeIndicator == "" {
		p.VolumeIndicator = DefaultVolumeIndicator
	}

	if p.VolumeMultiplier == 0 {
		p.VolumeMultiplier = DefaultVolumeMultiplier
	}

	if p.TrendIndicator == "" {
		p.TrendIndicator = DefaultTrendIndicator
	}

	return p
}

// RSIExtremesParams configures an RSI oversold/overbought strategy.
// Oversold and Overbought both zero means the defaults.
type RSIExtremesParams struct {
	RSIIndicator string  `yaml:"rsi_indicator" json:"rsi_indicator" jsonschema:"title=RSI Indicator,default=rsi_14" validate:"omitempty,indicator_name"`
	Oversold     float64 `yaml:"oversold" json:"oversold" jsonschema:"title=Oversold,minimum=0,maximum=100,default=30" validate:"gte=0,lte=100"`
	Overbought   float64 `yaml:"overbought" json:"overbought" jsonschema:"title=Overbought,minimum=0,maximum=100,default=70" validate:"gte=0,lte=100"`
}

func (RSIExtremesParams) isParams() {}

func (p RSIExtremesParams) withDefaults() RSIExtremesParams {
	if p.RSIIndicator == "" {
		p.RSIIndicator = DefaultRSIIndicator
	}

	if p.Oversold == 0 && p.Overbought == 0 {
		p.Oversold = DefaultOversold
		p.Overbought = DefaultOverbought
	}

	return p
}
