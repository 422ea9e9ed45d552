package domain

import "github.com/shopspring/decimal"

// Product is the catalog view needed to build a cart line.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Image string
	Stock int
}
