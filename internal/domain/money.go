package domain

import "github.com/shopspring/decimal"

// FormatMoney rounds to two places. Only used for display.
func FormatMoney(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
