package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/go_storefront/internal/backend"
	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/orders"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError maps domain errors onto HTTP statuses. Checkout failures keep their
// classification so the client can tell a retryable decline from a captured payment.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var checkoutErr *checkout.Error
	if errors.As(err, &checkoutErr) {
		respondJSON(w, checkoutStatus(checkoutErr), checkoutErrorResponse(checkoutErr))
		return
	}

	var (
		status int
		code   string
	)
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		status, code = http.StatusUnprocessableEntity, "invalid_quantity"
	case errors.Is(err, cart.ErrOutOfStock):
		status, code = http.StatusUnprocessableEntity, "out_of_stock"
	case errors.Is(err, cart.ErrInvalidItem):
		status, code = http.StatusBadRequest, "invalid_item"
	case errors.Is(err, orders.ErrInvalidOrderID):
		status, code = http.StatusBadRequest, "invalid_order_id"
	case errors.Is(err, backend.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, backend.ErrUnavailable):
		status, code = http.StatusServiceUnavailable, "service_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "timeout"
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"request_id", getRequestID(r.Context()),
			"error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	respondError(w, status, code, err.Error())
}

func checkoutStatus(e *checkout.Error) int {
	switch {
	case errors.Is(e.Reason, checkout.ErrPaymentDeclined):
		return http.StatusPaymentRequired
	case errors.Is(e.Reason, checkout.ErrPaymentCapturedOrderFailed):
		return http.StatusConflict
	case errors.Is(e.Reason, checkout.ErrOrderRejected):
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}

func checkoutErrorResponse(e *checkout.Error) ErrorResponse {
	resp := ErrorResponse{
		Error: e.Reason.Error(),
		Code:  checkout.Code(e.Reason),
	}
	switch {
	case e.Field != "":
		resp.Details = "field: " + e.Field
	case errors.Is(e.Reason, checkout.ErrPaymentCapturedOrderFailed) && e.Payment != nil:
		resp.Details = "payment " + e.Payment.ID + " was captured; quote attempt " + e.AttemptID + " to support"
	case e.Err != nil:
		resp.Details = e.Err.Error()
	}
	return resp
}
