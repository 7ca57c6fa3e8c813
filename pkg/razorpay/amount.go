package razorpay

import "github.com/shopspring/decimal"

var paisePerRupee = decimal.NewFromInt(100)

// ToPaise converts a rupee amount to the gateway's minor unit, rounding half away from zero.
func ToPaise(amount decimal.Decimal) int64 {
	return amount.Mul(paisePerRupee).Round(0).IntPart()
}

func FromPaise(paise int64) decimal.Decimal {
	return decimal.New(paise, -2)
}
