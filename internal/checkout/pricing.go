package checkout

import (
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// Pricing turns an items subtotal into the full order breakdown. Shipping is free
// only when the subtotal is strictly above FreeShippingOver.
type Pricing struct {
	TaxRate          decimal.Decimal
	FreeShippingOver decimal.Decimal
	FlatShippingFee  decimal.Decimal
}

func DefaultPricing() Pricing {
	return Pricing{
		TaxRate:          decimal.RequireFromString("0.10"),
		FreeShippingOver: decimal.NewFromInt(50),
		FlatShippingFee:  decimal.NewFromInt(10),
	}
}

func (p Pricing) Quote(itemsPrice decimal.Decimal) domain.PriceBreakdown {
	tax := itemsPrice.Mul(p.TaxRate)
	shipping := p.FlatShippingFee
	if itemsPrice.GreaterThan(p.FreeShippingOver) {
		shipping = decimal.Zero
	}
	return domain.PriceBreakdown{
		ItemsPrice:    itemsPrice,
		TaxPrice:      tax,
		ShippingPrice: shipping,
		TotalPrice:    itemsPrice.Add(tax).Add(shipping),
	}
}
