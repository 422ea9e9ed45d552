// Package orders is the read-only view of the customer's order history.
package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrInvalidOrderID = errors.New("order id must not be empty")

// Source is the order service as seen by this client.
type Source interface {
	MyOrders(ctx context.Context) ([]domain.Order, error)
	Order(ctx context.Context, id string) (*domain.Order, error)
}

type Service struct {
	source  Source
	timeout time.Duration
}

func NewService(source Source, timeout time.Duration) *Service {
	return &Service{source: source, timeout: timeout}
}

// Summary is one row of the order history list.
type Summary struct {
	ID         string             `json:"id"`
	Status     domain.OrderStatus `json:"status"`
	ItemCount  int                `json:"item_count"`
	TotalPrice decimal.Decimal    `json:"total_price"`
	CreatedAt  time.Time          `json:"created_at"`
	Delivered  bool               `json:"delivered"`
}

func Summarize(o domain.Order) Summary {
	count := 0
	for _, it := range o.Items {
		count += it.Quantity
	}
	return Summary{
		ID:         o.ID,
		Status:     NormalizeStatus(string(o.Status)),
		ItemCount:  count,
		TotalPrice: o.Prices.TotalPrice,
		CreatedAt:  o.CreatedAt,
		Delivered:  o.DeliveredAt != nil,
	}
}

// NormalizeStatus maps whatever casing the backend uses onto the known statuses.
// Anything unknown is treated as still processing.
func NormalizeStatus(s string) domain.OrderStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shipped":
		return domain.OrderStatusShipped
	case "delivered":
		return domain.OrderStatusDelivered
	case "cancelled", "canceled":
		return domain.OrderStatusCancelled
	default:
		return domain.OrderStatusProcessing
	}
}

// List returns the customer's orders, newest first.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	list, err := s.source.MyOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	out := make([]Summary, len(list))
	for i, o := range list {
		out[i] = Summarize(o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidOrderID
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	o, err := s.source.Order(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}
	o.Status = NormalizeStatus(string(o.Status))
	return o, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
