package commission_fee

type CommissionFee interface {
	// Calculate the commission fee for a given number of shares and returns the fee in USD
	Calculate(quantity float64) float64
}

type Broker string

const (
	BrokerPerShare          Broker = "per_share"
	BrokerInteractiveBroker Broker = "interactive_broker"
	BrokerZero              Broker = "zero"
)

var AllBrokers = []any{
	BrokerPerShare,
	BrokerInteractiveBroker,
	BrokerZero,
}

// GetCommissionFeeHandler returns the calculator for broker. ratePerShare is the
// per-share commission; interactive_broker falls back to its standard rate when it is 0.
func GetCommissionFeeHandler(broker Broker, ratePerShare float64) CommissionFee {
	switch broker {
	case BrokerPerShare:
		return NewPerShareCommissionFee(ratePerShare)
	case BrokerInteractiveBroker:
		if ratePerShare > 0 {
			return &InteractiveBrokerCommissionFee{rate: ratePerShare}
		}

		return NewInteractiveBrokerCommissionFee()
	case BrokerZero:
		return NewZeroCommissionFee()
	default:
		return NewZeroCommissionFee()
	}
}
