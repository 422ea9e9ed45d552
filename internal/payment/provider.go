// Package payment authorizes card payments for a checkout attempt.
package payment

import (
	"context"
	"errors"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrDeclined is returned when the provider refuses the charge.
var ErrDeclined = errors.New("payment declined")

// Authorization is one request to charge a card.
type Authorization struct {
	Amount    decimal.Decimal
	Currency  string
	Billing   domain.BillingDetails
	CardToken string
}

// Provider returns the intent reported by the payment processor. Implementations
// never report success before the processor has answered.
type Provider interface {
	Authorize(ctx context.Context, a Authorization) (domain.PaymentIntent, error)
}
