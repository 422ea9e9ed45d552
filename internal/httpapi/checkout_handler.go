package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/domain"
)

type Checkout interface {
	PlaceOrder(ctx context.Context, req checkout.Request) (*checkout.Receipt, error)
}

type CheckoutHandler struct {
	checkout Checkout
	cart     CartLedger
	timeout  time.Duration
}

func NewCheckoutHandler(c Checkout, ledger CartLedger, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: c,
		cart:     ledger,
		timeout:  timeout,
	}
}

type PlaceOrderRequestDTO struct {
	ShippingInfo  domain.ShippingInfo `json:"shipping_info"`
	PaymentMethod string              `json:"payment_method"`
	CardToken     string              `json:"card_token,omitempty"`
	CustomerName  string              `json:"customer_name,omitempty"`
}

type PlaceOrderResponseDTO struct {
	OrderID   string                `json:"order_id"`
	AttemptID string                `json:"attempt_id"`
	Payment   domain.PaymentIntent  `json:"payment"`
	Prices    domain.PriceBreakdown `json:"prices"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req PlaceOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "unknown_payment_method", err.Error())
		return
	}

	receipt, err := h.checkout.PlaceOrder(ctx, checkout.Request{
		Cart:     h.cart.Snapshot(),
		Shipping: req.ShippingInfo,
		Payment: domain.PaymentSelection{
			Method:    method,
			CardToken: req.CardToken,
		},
		Customer: req.CustomerName,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, PlaceOrderResponseDTO{
		OrderID:   receipt.OrderID,
		AttemptID: receipt.AttemptID,
		Payment:   receipt.Payment,
		Prices:    receipt.Breakdown,
	})
}
