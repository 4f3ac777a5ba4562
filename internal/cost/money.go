package cost

import "github.com/shopspring/decimal"

const (
	moneyPlaces = 2
	ratePlaces  = 6
)

// Round rounds half away from zero to 2 places. Every monetary value is passed
// through Round at the point it is produced.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}

// Convert multiplies amount by rate and rounds the product.
func Convert(amount, rate decimal.Decimal) decimal.Decimal {
	return Round(amount.Mul(rate))
}

func roundRate(d decimal.Decimal) decimal.Decimal {
	return d.Round(ratePlaces)
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
