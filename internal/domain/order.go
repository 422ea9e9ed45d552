package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

type PriceBreakdown struct {
	ItemsPrice    decimal.Decimal `json:"itemsPrice"`
	TaxPrice      decimal.Decimal `json:"taxPrice"`
	ShippingPrice decimal.Decimal `json:"shippingPrice"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
}

// OrderDraft is the payload submitted to the order service.
type OrderDraft struct {
	Items    []LineItem
	Shipping ShippingInfo
	Payment  PaymentIntent
	Prices   PriceBreakdown
	// IdempotencyKey identifies the checkout attempt that produced the draft.
	IdempotencyKey string
}

// Order is the client's read-only projection of an order owned by the order service.
type Order struct {
	ID          string
	Items       []LineItem
	Shipping    ShippingInfo
	Payment     PaymentIntent
	Prices      PriceBreakdown
	Status      OrderStatus
	CreatedAt   time.Time
	DeliveredAt *time.Time
}
