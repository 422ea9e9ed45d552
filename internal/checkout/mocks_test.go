package checkout

import (
	"context"
	"sync"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/payment"
)

// MockProvider implements payment.Provider for testing
type MockProvider struct {
	Intent domain.PaymentIntent
	Err    error
	Calls  []payment.Authorization
	// OnAuthorize runs while the authorization is in flight.
	OnAuthorize func()
}

func (m *MockProvider) Authorize(_ context.Context, a payment.Authorization) (domain.PaymentIntent, error) {
	m.Calls = append(m.Calls, a)
	if m.OnAuthorize != nil {
		m.OnAuthorize()
	}
	return m.Intent, m.Err
}

// MockOrders implements OrderPlacer for testing
type MockOrders struct {
	Order  *domain.Order
	Err    error
	Drafts []domain.OrderDraft
}

func (m *MockOrders) PlaceOrder(_ context.Context, draft domain.OrderDraft) (*domain.Order, error) {
	m.Drafts = append(m.Drafts, draft)
	return m.Order, m.Err
}

// MockSettler implements CartSettler for testing
type MockSettler struct {
	Calls   int
	Ordered []domain.LineItem
	Err     error
}

func (m *MockSettler) RemoveOrdered(_ context.Context, ordered []domain.LineItem) error {
	m.Calls++
	m.Ordered = ordered
	return m.Err
}

// MockEscalator implements Escalator for testing
type MockEscalator struct {
	Escalations []Escalation
	Err         error
	CtxErr      error
}

func (m *MockEscalator) Escalate(ctx context.Context, e Escalation) error {
	m.CtxErr = ctx.Err()
	m.Escalations = append(m.Escalations, e)
	return m.Err
}

// memoryStore implements cart.Store for end-to-end tests
type memoryStore struct {
	mu    sync.Mutex
	state *domain.CartState
}

func (s *memoryStore) Load(context.Context) (domain.CartState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return domain.EmptyCart(), nil
	}
	return s.state.Clone(), nil
}

func (s *memoryStore) Save(_ context.Context, state domain.CartState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := state.Clone()
	s.state = &c
	return nil
}
