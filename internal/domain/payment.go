package domain

import "fmt"

type PaymentMethod string

const (
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

// ParsePaymentMethod accepts the wire names plus the short "cod" alias.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch s {
	case "card":
		return PaymentMethodCard, nil
	case "cash_on_delivery", "cod":
		return PaymentMethodCashOnDelivery, nil
	default:
		return "", fmt.Errorf("unknown payment method %q", s)
	}
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// PaymentIntent is the outcome of one authorization attempt.
type PaymentIntent struct {
	ID     string        `json:"id"`
	Status PaymentStatus `json:"status"`
	Method PaymentMethod `json:"method"`
	Mocked bool          `json:"mocked,omitempty"`
}

// Captured reports whether money may have moved for this intent.
func (p PaymentIntent) Captured() bool {
	return p.Method == PaymentMethodCard && p.Status == PaymentStatusSucceeded
}

// PaymentSelection is the user's choice for one checkout attempt.
type PaymentSelection struct {
	Method PaymentMethod
	// CardToken identifies the card for the provider handshake (e.g. "tok_visa").
	CardToken string
}
