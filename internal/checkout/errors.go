package checkout

import (
	"errors"
	"fmt"

	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/domain"
)

var (
	ErrEmptyCart                  = errors.New("cart is empty, nothing to checkout")
	ErrIncompleteShipping         = errors.New("shipping information is incomplete")
	ErrInvalidPhone               = errors.New("phone number must be at least 10 characters")
	ErrPaymentDeclined            = errors.New("payment declined")
	ErrOrderRejected              = errors.New("order rejected")
	ErrPaymentCapturedOrderFailed = errors.New("payment captured but order was not created")
	ErrUnknownPaymentMethod       = errors.New("unknown payment method")
	ErrIllegalTransition          = errors.New("illegal transition of checkout state")

	// ErrInvalidQuantity is the ledger's error, re-exported so callers see one taxonomy.
	ErrInvalidQuantity = cart.ErrInvalidQuantity
)

// Error is the classified result of a failed attempt. Reason is one of the
// package sentinels; Err is the underlying cause, if any.
type Error struct {
	AttemptID string
	// State is the step that was running when the attempt failed.
	State  State
	Reason error
	Err    error
	// Payment is set once an intent exists, so callers can follow up on it.
	Payment *domain.PaymentIntent
	// Field names the offending shipping field for IncompleteShipping.
	Field string
}

func (e *Error) Error() string {
	msg := e.Reason.Error()
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Field)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return fmt.Sprintf("checkout failed while %s: %s", e.State, msg)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}

// Recoverable reports whether the user may simply retry or correct input.
func (e *Error) Recoverable() bool {
	return !errors.Is(e.Reason, ErrPaymentCapturedOrderFailed)
}

// Code is a stable snake_case identifier for the reason.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrIncompleteShipping):
		return "incomplete_shipping"
	case errors.Is(err, ErrInvalidPhone):
		return "invalid_phone"
	case errors.Is(err, ErrUnknownPaymentMethod):
		return "unknown_payment_method"
	case errors.Is(err, ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, ErrPaymentDeclined):
		return "payment_declined"
	case errors.Is(err, ErrPaymentCapturedOrderFailed):
		return "payment_captured_order_failed"
	case errors.Is(err, ErrOrderRejected):
		return "order_rejected"
	default:
		return "internal"
	}
}
