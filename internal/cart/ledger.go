package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fjod/go_storefront/internal/cart/store"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/metrics"
	"github.com/shopspring/decimal"
)

// Store persists the whole cart under one fixed key.
// Consumers define this interface, not the storage implementations.
type Store interface {
	Load(ctx context.Context) (domain.CartState, error)
	Save(ctx context.Context, state domain.CartState) error
}

// Ledger owns the cart for one client session. Every mutation recomputes the
// aggregates from the item list and writes the result to the store before returning.
type Ledger struct {
	mu      sync.Mutex
	state   domain.CartState
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Ledger)

func WithLogger(l *slog.Logger) Option {
	return func(led *Ledger) { led.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(led *Ledger) { led.metrics = m }
}

// Open loads the persisted cart. A missing or unreadable cart starts empty.
func Open(ctx context.Context, st Store, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		store:  st,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}

	state, err := st.Load(ctx)
	switch {
	case err == nil:
		// persisted line totals are not trusted, another writer may have produced them
		for i := range state.Items {
			state.Items[i].LineTotal = lineTotal(state.Items[i].UnitPrice, state.Items[i].Quantity)
		}
		l.state = recompute(state.Items)
	case errors.Is(err, store.ErrNotFound):
		l.state = domain.EmptyCart()
	default:
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return l, nil
}

// Snapshot returns a copy of the current cart.
func (l *Ledger) Snapshot() domain.CartState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Clone()
}

func (l *Ledger) AddItem(ctx context.Context, candidate domain.LineItem) error {
	if candidate.ProductID == "" || candidate.UnitPrice.IsNegative() {
		return ErrInvalidItem
	}
	if candidate.Quantity < 1 {
		return ErrInvalidQuantity
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	items := l.state.Clone().Items
	if idx := l.state.Find(candidate.ProductID); idx >= 0 {
		// the price recorded on first add wins
		existing := &items[idx]
		existing.Quantity += candidate.Quantity
		existing.LineTotal = lineTotal(existing.UnitPrice, existing.Quantity)
	} else {
		candidate.LineTotal = lineTotal(candidate.UnitPrice, candidate.Quantity)
		items = append(items, candidate)
	}

	return l.commit(ctx, "add", items)
}

// RemoveItem is a no-op for a product that is not in the cart.
func (l *Ledger) RemoveItem(ctx context.Context, productID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := make([]domain.LineItem, 0, len(l.state.Items))
	for _, item := range l.state.Items {
		if item.ProductID != productID {
			items = append(items, item)
		}
	}
	return l.commit(ctx, "remove", items)
}

// SetQuantity only enforces the stock recorded when the item was added;
// callers re-check live stock themselves.
func (l *Ledger) SetQuantity(ctx context.Context, productID string, quantity int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.state.Find(productID)
	if idx < 0 {
		return fmt.Errorf("%w: product %s is not in the cart", ErrInvalidItem, productID)
	}
	if quantity < 1 {
		return fmt.Errorf("%w: %d is below 1", ErrInvalidQuantity, quantity)
	}
	stock := l.state.Items[idx].StockAtAddTime
	if quantity > stock {
		return fmt.Errorf("%w: only %d items available in stock", ErrInvalidQuantity, stock)
	}

	items := l.state.Clone().Items
	items[idx].Quantity = quantity
	items[idx].LineTotal = lineTotal(items[idx].UnitPrice, quantity)
	return l.commit(ctx, "set_quantity", items)
}

func (l *Ledger) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.commit(ctx, "clear", nil)
}

// RemoveOrdered takes the ordered quantities out of the cart after a successful
// checkout. Lines added or grown after the snapshot was taken keep the difference.
func (l *Ledger) RemoveOrdered(ctx context.Context, ordered []domain.LineItem) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	bought := make(map[string]int, len(ordered))
	for _, it := range ordered {
		bought[it.ProductID] += it.Quantity
	}

	items := make([]domain.LineItem, 0, len(l.state.Items))
	for _, item := range l.state.Items {
		remaining := item.Quantity - bought[item.ProductID]
		if remaining < 1 {
			continue
		}
		item.Quantity = remaining
		item.LineTotal = lineTotal(item.UnitPrice, remaining)
		items = append(items, item)
	}
	return l.commit(ctx, "remove_ordered", items)
}

// commit installs the new item list and persists it. The in-memory state is
// authoritative: it stays updated even when the write fails.
func (l *Ledger) commit(ctx context.Context, op string, items []domain.LineItem) error {
	l.state = recompute(items)
	l.metrics.CartMutation(op)

	if err := l.store.Save(ctx, l.state.Clone()); err != nil {
		l.logger.ErrorContext(ctx, "cart persist failed", "op", op, "error", err)
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}

func recompute(items []domain.LineItem) domain.CartState {
	state := domain.EmptyCart()
	if len(items) > 0 {
		state.Items = items
	}
	for _, item := range state.Items {
		state.TotalQuantity += item.Quantity
		state.TotalPrice = state.TotalPrice.Add(item.LineTotal)
	}
	return state
}

func lineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// FromProduct builds the candidate line for adding quantity units of p.
func FromProduct(p domain.Product, quantity int) (domain.LineItem, error) {
	if p.Stock < 1 {
		return domain.LineItem{}, ErrOutOfStock
	}
	if quantity < 1 || quantity > p.Stock {
		return domain.LineItem{}, fmt.Errorf("%w: only %d items available in stock", ErrInvalidQuantity, p.Stock)
	}
	return domain.LineItem{
		ProductID:      p.ID,
		Name:           p.Name,
		UnitPrice:      p.Price,
		Image:          p.Image,
		StockAtAddTime: p.Stock,
		Quantity:       quantity,
	}, nil
}
