package warehouse

import "github.com/shopspring/decimal"

const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Price range buckets.
const (
	PriceRangeBudget   = "Budget"
	PriceRangeMidRange = "Mid-range"
	PriceRangePremium  = "Premium"
)

var (
	budgetCeiling   = decimal.NewFromInt(50)
	midRangeCeiling = decimal.NewFromInt(200)
)

// RoundMoney rounds a currency value to cents, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}

// LineTotal is round(unit_price * quantity, 2).
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return RoundMoney(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// DiscountAmount applies a percentage to an already rounded gross amount.
func DiscountAmount(gross, percentage decimal.Decimal) decimal.Decimal {
	return RoundMoney(gross.Mul(percentage).Div(hundred))
}

// Profit is round(line_total - round(cost * quantity, 2), 2).
func Profit(lineTotal, cost decimal.Decimal, quantity int) decimal.Decimal {
	totalCost := RoundMoney(cost.Mul(decimal.NewFromInt(int64(quantity))))
	return RoundMoney(lineTotal.Sub(totalCost))
}

// PriceRange buckets a list price: Budget up to 50, Mid-range up to 200,
// Premium above.
func PriceRange(price decimal.Decimal) string {
	switch {
	case price.LessThanOrEqual(budgetCeiling):
		return PriceRangeBudget
	case price.LessThanOrEqual(midRangeCeiling):
		return PriceRangeMidRange
	default:
		return PriceRangePremium
	}
}
