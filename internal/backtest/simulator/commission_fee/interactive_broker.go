package commission_fee

const (
	interactiveBrokerRate       = 0.005
	interactiveBrokerMinimumFee = 1.0
)

// InteractiveBrokerCommissionFee charges per share with a one dollar minimum per order.
type InteractiveBrokerCommissionFee struct {
	rate float64
}

func NewInteractiveBrokerCommissionFee() CommissionFee {
	return &InteractiveBrokerCommissionFee{rate: interactiveBrokerRate}
}

func (c *InteractiveBrokerCommissionFee) Calculate(quantity float64) float64 {
	fee := c.rate * quantity
	if fee < interactiveBrokerMinimumFee {
		return interactiveBrokerMinimumFee
	}

	return fee
}
