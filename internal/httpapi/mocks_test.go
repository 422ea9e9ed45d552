package httpapi

import (
	"context"
	"sync"

	"github.com/fjod/go_storefront/internal/cart/store"
	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/orders"
)

type memoryStore struct {
	mu    sync.Mutex
	state *domain.CartState
	err   error
}

func (m *memoryStore) Load(context.Context) (domain.CartState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return domain.CartState{}, store.ErrNotFound
	}
	return m.state.Clone(), nil
}

func (m *memoryStore) Save(_ context.Context, state domain.CartState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	s := state.Clone()
	m.state = &s
	return nil
}

type MockCatalog struct {
	Products map[string]domain.Product
	Err      error
}

func (m *MockCatalog) Product(_ context.Context, id string) (*domain.Product, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.Products[id]
	if !ok {
		return nil, errNotFoundForTest
	}
	return &p, nil
}

type MockCheckout struct {
	Receipt *checkout.Receipt
	Err     error
	Got     checkout.Request
	Calls   int
}

func (m *MockCheckout) PlaceOrder(_ context.Context, req checkout.Request) (*checkout.Receipt, error) {
	m.Calls++
	m.Got = req
	return m.Receipt, m.Err
}

type MockHistory struct {
	Summaries []orders.Summary
	Order     *domain.Order
	Err       error
	GotID     string
}

func (m *MockHistory) List(context.Context) ([]orders.Summary, error) {
	return m.Summaries, m.Err
}

func (m *MockHistory) Get(_ context.Context, id string) (*domain.Order, error) {
	m.GotID = id
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Order, nil
}
