package strategy

// PositionSizing selects how much capital an entry allocates.
type PositionSizing string

const (
	PositionSizingPercentOfEquity PositionSizing = "percent_of_equity"
	PositionSizingFixedAmount     PositionSizing = "fixed_amount"
)

// CommissionModel selects the commission calculator.
type CommissionModel string

const (
	CommissionModelPerShare          CommissionModel = "per_share"
	CommissionModelInteractiveBroker CommissionModel = "interactive_broker"
	CommissionModelZero              CommissionModel = "zero"
)

// ExecutionPolicy holds capital, sizing, cost and exit rules. Percent fields are in
// percent units (0.1 means 0.1 %). Exit rules set to zero are disabled.
type ExecutionPolicy struct {
	InitialCapital      float64         `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,description=Starting cash when the run request does not specify capital,minimum=0" validate:"gte=0"`
	PositionSizing      PositionSizing  `yaml:"position_sizing" json:"position_sizing" jsonschema:"title=Position Sizing,enum=percent_of_equity,enum=fixed_amount,default=percent_of_equity" validate:"omitempty,oneof=percent_of_equity fixed_amount"`
	PositionSizePercent float64         `yaml:"position_size_percent" json:"position_size_percent" jsonschema:"title=Position Size Percent,description=Percent of current equity allocated per entry,minimum=0,maximum=100" validate:"gte=0,lte=100"`
	PositionSizeAmount  float64         `yaml:"position_size_amount" json:"position_size_amount" jsonschema:"title=Position Size Amount,description=Fixed amount allocated per entry,minimum=0" validate:"gte=0"`
	CommissionPerShare  float64         `yaml:"commission_per_share" json:"commission_per_share" jsonschema:"title=Commission Per Share,minimum=0" validate:"gte=0"`
	CommissionModel     CommissionModel `yaml:"commission_model" json:"commission_model" jsonschema:"title=Commission Model,enum=per_share,enum=interactive_broker,enum=zero,default=per_share" validate:"omitempty,oneof=per_share interactive_broker zero"`
	SlippagePercent     float64         `yaml:"slippage_percent" json:"slippage_percent" jsonschema:"title=Slippage Percent,description=Adverse price move applied to each fill in percent,minimum=0,maximum=100" validate:"gte=0,lt=100"`
	MaxHoldingDays      int             `yaml:"max_holding_days" json:"max_holding_days" jsonschema:"title=Max Holding Days,description=Exit after this many trading days,minimum=0" validate:"gte=0"`
	StopLossPercent     float64         `yaml:"stop_loss_percent" json:"stop_loss_percent" jsonschema:"title=Stop Loss Percent,description=Negative percent move from entry that triggers an exit (e.g. -5),exclusiveMinimum=-100,maximum=0" validate:"gt=-100,lte=0"`
	TakeProfitPercent   float64         `yaml:"take_profit_percent" json:"take_profit_percent" jsonschema:"title=Take Profit Percent,description=Positive percent move from entry that triggers an exit,minimum=0" validate:"gte=0"`
	TrailingStopPercent float64         `yaml:"trailing_stop_percent" json:"trailing_stop_percent" jsonschema:"title=Trailing Stop Percent,description=Percent drawdown from the highest close since entry that triggers an exit,minimum=0,exclusiveMaximum=100" validate:"gte=0,lt=100"`
}

func (p ExecutionPolicy) withDefaults() ExecutionPolicy {
	if p.PositionSizing == "" {
		if p.PositionSizeAmount > 0 && p.PositionSizePercent == 0 {
			p.PositionSizing = PositionSizingFixedAmount
		} else {
			p.PositionSizing = PositionSizingPercentOfEquity
		}
	}

	if p.PositionSizing == PositionSizingPercentOfEquity && p.PositionSizePercent == 0 {
		p.PositionSizePercent = 100
	}

	if p.CommissionModel == "" {
		p.CommissionModel = CommissionModelPerShare
	}

	return p
}

// SlippageFraction returns the slippage as a fraction of the fill price.
func (p ExecutionPolicy) SlippageFraction() float64 {
	return p.SlippagePercent / 100
}

// PositionSizeFraction returns the fraction of equity allocated per entry.
func (p ExecutionPolicy) PositionSizeFraction() float64 {
	return p.PositionSizePercent / 100
}

// StopLoss returns the stop-loss as a negative fraction and whether it is enabled.
func (p ExecutionPolicy) StopLoss() (float64, bool) {
	return p.StopLossPercent / 100, p.StopLossPercent < 0
}

// TakeProfit returns the take-profit as a positive fraction and whether it is enabled.
func (p ExecutionPolicy) TakeProfit() (float64, bool) {
	return p.TakeProfitPercent / 100, p.TakeProfitPercent > 0
}

// TrailingStop returns the trailing stop as a positive fraction and whether it is enabled.
func (p ExecutionPolicy) TrailingStop() (float64, bool) {
	return p.TrailingStopPercent / 100, p.TrailingStopPercent > 0
}

// HoldingPeriod returns the maximum holding period in bars and whether it is enabled.
func (p ExecutionPolicy) HoldingPeriod() (int, bool) {
	return p.MaxHoldingDays, p.MaxHoldingDays > 0
}
