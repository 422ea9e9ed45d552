package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockSource implements Source for testing
type MockSource struct {
	Orders      []domain.Order
	Single      *domain.Order
	Err         error
	GotID       string
	HadDeadline bool
}

func (m *MockSource) MyOrders(ctx context.Context) ([]domain.Order, error) {
	_, m.HadDeadline = ctx.Deadline()
	return m.Orders, m.Err
}

func (m *MockSource) Order(_ context.Context, id string) (*domain.Order, error) {
	m.GotID = id
	return m.Single, m.Err
}

func TestList_SummarizesNewestFirst(t *testing.T) {
	now := time.Now()
	src := &MockSource{Orders: []domain.Order{
		{
			ID:        "old",
			Status:    "processing",
			CreatedAt: now.Add(-time.Hour),
			Items:     []domain.LineItem{{Quantity: 2}, {Quantity: 3}},
			Prices:    domain.PriceBreakdown{TotalPrice: decimal.NewFromInt(54)},
		},
		{ID: "new", Status: "Delivered", CreatedAt: now, DeliveredAt: &now},
	}}
	svc := NewService(src, time.Second)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.True(t, src.HadDeadline)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, domain.OrderStatusDelivered, list[0].Status)
	assert.True(t, list[0].Delivered)
	assert.Equal(t, domain.OrderStatusProcessing, list[1].Status)
	assert.Equal(t, 5, list[1].ItemCount)
	assert.True(t, list[1].TotalPrice.Equal(decimal.NewFromInt(54)))
}

func TestList_Error(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewService(&MockSource{Err: boom}, 0).List(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestGet(t *testing.T) {
	src := &MockSource{Single: &domain.Order{ID: "o1", Status: "SHIPPED"}}
	svc := NewService(src, 0)

	o, err := svc.Get(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", src.GotID)
	assert.Equal(t, domain.OrderStatusShipped, o.Status)

	_, err = svc.Get(context.Background(), " ")
	assert.ErrorIs(t, err, ErrInvalidOrderID)
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, domain.OrderStatusCancelled, NormalizeStatus("canceled"))
	assert.Equal(t, domain.OrderStatusCancelled, NormalizeStatus("Cancelled"))
	assert.Equal(t, domain.OrderStatusProcessing, NormalizeStatus("on hold"))
}
