package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/orders"
	"github.com/go-chi/chi/v5"
)

type OrderHistory interface {
	List(ctx context.Context) ([]orders.Summary, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
}

type OrdersHandler struct {
	orders  OrderHistory
	timeout time.Duration
}

func NewOrdersHandler(history OrderHistory, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  history,
		timeout: timeout,
	}
}

type OrderResponseDTO struct {
	ID          string                `json:"id"`
	Status      domain.OrderStatus    `json:"status"`
	Items       []CartItemDTO         `json:"items"`
	Shipping    domain.ShippingInfo   `json:"shipping_info"`
	Payment     domain.PaymentIntent  `json:"payment"`
	Prices      domain.PriceBreakdown `json:"prices"`
	CreatedAt   time.Time             `json:"created_at"`
	DeliveredAt *time.Time            `json:"delivered_at,omitempty"`
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	list, err := h.orders.List(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if list == nil {
		list = []orders.Summary{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"orders": list})
}

// GET /api/v1/orders/{id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	o, err := h.orders.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	items := toCartResponse(domain.CartState{Items: o.Items}).Items
	respondJSON(w, http.StatusOK, OrderResponseDTO{
		ID:          o.ID,
		Status:      o.Status,
		Items:       items,
		Shipping:    o.Shipping,
		Payment:     o.Payment,
		Prices:      o.Prices,
		CreatedAt:   o.CreatedAt,
		DeliveredAt: o.DeliveredAt,
	})
}
