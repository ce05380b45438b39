package commission_fee

// PerShareCommissionFee charges a flat rate per share with no minimum.
type PerShareCommissionFee struct {
	rate float64
}

func NewPerShareCommissionFee(rate float64) CommissionFee {
	return &PerShareCommissionFee{rate: rate}
}

func (c *PerShareCommissionFee) Calculate(quantity float64) float64 {
	if quantity <= 0 {
		return 0
	}

	return c.rate * quantity
}
