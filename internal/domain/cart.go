package domain

import "github.com/shopspring/decimal"

// LineItem is one product entry in the cart. LineTotal is always UnitPrice × Quantity.
type LineItem struct {
	ProductID      string          `json:"productId"`
	Name           string          `json:"name"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	Image          string          `json:"image"`
	StockAtAddTime int             `json:"stockAtAddTime"`
	Quantity       int             `json:"quantity"`
	LineTotal      decimal.Decimal `json:"lineTotal"`
}

// CartState is the full cart. Items keep insertion order.
type CartState struct {
	Items         []LineItem      `json:"items"`
	TotalQuantity int             `json:"totalQuantity"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
}

func EmptyCart() CartState {
	return CartState{
		Items:      []LineItem{},
		TotalPrice: decimal.Zero,
	}
}

func (c CartState) IsEmpty() bool {
	return len(c.Items) == 0
}

// Clone returns a copy that shares no slice memory with c.
func (c CartState) Clone() CartState {
	items := make([]LineItem, len(c.Items))
	copy(items, c.Items)
	return CartState{
		Items:         items,
		TotalQuantity: c.TotalQuantity,
		TotalPrice:    c.TotalPrice,
	}
}

// Find returns the index of the line holding productID, or -1.
func (c CartState) Find(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}
