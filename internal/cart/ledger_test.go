package cart

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/fjod/go_storefront/internal/cart/store"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore implements Store for testing
type memoryStore struct {
	m       sync.Mutex
	state   *domain.CartState
	saves   int
	loadErr error
	saveErr error
}

func (s *memoryStore) Load(context.Context) (domain.CartState, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.loadErr != nil {
		return domain.CartState{}, s.loadErr
	}
	if s.state == nil {
		return domain.CartState{}, store.ErrNotFound
	}
	return s.state.Clone(), nil
}

func (s *memoryStore) Save(_ context.Context, state domain.CartState) error {
	s.m.Lock()
	defer s.m.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.state = &state
	return nil
}

func item(id, price string, qty, stock int) domain.LineItem {
	return domain.LineItem{
		ProductID:      id,
		Name:           "product " + id,
		UnitPrice:      decimal.RequireFromString(price),
		Image:          "https://img/" + id + ".jpg",
		StockAtAddTime: stock,
		Quantity:       qty,
	}
}

func openLedger(t *testing.T, st *memoryStore) *Ledger {
	t.Helper()
	l, err := Open(context.Background(), st)
	require.NoError(t, err)
	return l
}

func assertTotals(t *testing.T, state domain.CartState) {
	t.Helper()
	qty := 0
	total := decimal.Zero
	for _, it := range state.Items {
		assert.True(t, it.LineTotal.Equal(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))),
			"line total of %s drifted: %s", it.ProductID, it.LineTotal)
		qty += it.Quantity
		total = total.Add(it.LineTotal)
	}
	assert.Equal(t, qty, state.TotalQuantity)
	assert.True(t, total.Equal(state.TotalPrice), "total %s != sum %s", state.TotalPrice, total)
}

func TestOpen_EmptyWhenNothingPersisted(t *testing.T) {
	l := openLedger(t, &memoryStore{})

	snap := l.Snapshot()
	assert.Empty(t, snap.Items)
	assert.Equal(t, 0, snap.TotalQuantity)
	assert.True(t, snap.TotalPrice.IsZero())
}

func TestOpen_LoadError(t *testing.T) {
	_, err := Open(context.Background(), &memoryStore{loadErr: errors.New("disk gone")})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "load cart")
}

func TestAddItem_AppendsNewLine(t *testing.T) {
	st := &memoryStore{}
	l := openLedger(t, st)

	require.NoError(t, l.AddItem(context.Background(), item("a", "20", 2, 5)))

	snap := l.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.True(t, snap.Items[0].LineTotal.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, 2, snap.TotalQuantity)
	assert.True(t, snap.TotalPrice.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, 1, st.saves)
}

func TestAddItem_MergeKeepsOriginalPrice(t *testing.T) {
	l := openLedger(t, &memoryStore{})
	ctx := context.Background()

	require.NoError(t, l.AddItem(ctx, item("a", "10", 1, 9)))
	require.NoError(t, l.AddItem(ctx, item("b", "3.50", 1, 9)))
	// a later add with a different price must not overwrite the recorded one
	require.NoError(t, l.AddItem(ctx, item("a", "0.01", 3, 9)))

	snap := l.Snapshot()
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "a", snap.Items[0].ProductID, "insertion order must be kept")
	assert.True(t, snap.Items[0].UnitPrice.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 4, snap.Items[0].Quantity)
	assert.True(t, snap.Items[0].LineTotal.Equal(decimal.NewFromInt(40)))
	assert.True(t, snap.TotalPrice.Equal(decimal.RequireFromString("43.50")))
	assertTotals(t, snap)
}

func TestAddItem_RejectsMalformed(t *testing.T) {
	st := &memoryStore{}
	l := openLedger(t, st)
	ctx := context.Background()

	assert.ErrorIs(t, l.AddItem(ctx, item("a", "10", 0, 5)), ErrInvalidQuantity)
	assert.ErrorIs(t, l.AddItem(ctx, item("", "10", 1, 5)), ErrInvalidItem)
	assert.ErrorIs(t, l.AddItem(ctx, item("a", "-1", 1, 5)), ErrInvalidItem)
	assert.Empty(t, l.Snapshot().Items)
	assert.Equal(t, 0, st.saves)
}

func TestRemoveItem(t *testing.T) {
	l := openLedger(t, &memoryStore{})
	ctx := context.Background()
	require.NoError(t, l.AddItem(ctx, item("a", "10", 1, 5)))
	require.NoError(t, l.AddItem(ctx, item("b", "5", 2, 5)))

	require.NoError(t, l.RemoveItem(ctx, "a"))

	snap := l.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "b", snap.Items[0].ProductID)
	assert.True(t, snap.TotalPrice.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 2, snap.TotalQuantity)
}

func TestRemoveItem_AbsentIsNoop(t *testing.T) {
	l := openLedger(t, &memoryStore{})
	ctx := context.Background()
	require.NoError(t, l.AddItem(ctx, item("a", "10", 1, 5)))
	before := l.Snapshot()

	require.NoError(t, l.RemoveItem(ctx, "missing"))

	assert.Equal(t, before.TotalQuantity, l.Snapshot().TotalQuantity)
	assert.Len(t, l.Snapshot().Items, 1)
}

func TestSetQuantity(t *testing.T) {
	l := openLedger(t, &memoryStore{})
	ctx := context.Background()
	require.NoError(t, l.AddItem(ctx, item("a", "2.25", 1, 4)))

	require.NoError(t, l.SetQuantity(ctx, "a", 4))

	snap := l.Snapshot()
	assert.Equal(t, 4, snap.Items[0].Quantity)
	assert.True(t, snap.Items[0].LineTotal.Equal(decimal.NewFromInt(9)))
	assertTotals(t, snap)
}

func TestSetQuantity_OutOfBoundsLeavesStateUnchanged(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
	}{
		{"zero", 0},
		{"negative", -3},
		{"above stock at add time", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &memoryStore{}
			l := openLedger(t, st)
			ctx := context.Background()
			require.NoError(t, l.AddItem(ctx, item("a", "10", 2, 4)))
			before := l.Snapshot()
			saves := st.saves

			err := l.SetQuantity(ctx, "a", tt.quantity)

			assert.ErrorIs(t, err, ErrInvalidQuantity)
			after := l.Snapshot()
			assert.Equal(t, before.Items, after.Items)
			assert.Equal(t, before.TotalQuantity, after.TotalQuantity)
			assert.True(t, before.TotalPrice.Equal(after.TotalPrice))
			assert.Equal(t, saves, st.saves, "a rejected change must not be persisted")
		})
	}
}

func TestSetQuantity_UnknownProduct(t *testing.T) {
	l := openLedger(t, &memoryStore{})

	err := l.SetQuantity(context.Background(), "nope", 1)
	assert.ErrorIs(t, err, ErrInvalidItem)
}

func TestClear_ThenReloadIsEmpty(t *testing.T) {
	st := &memoryStore{}
	l := openLedger(t, st)
	ctx := context.Background()
	require.NoError(t, l.AddItem(ctx, item("a", "10", 2, 5)))

	require.NoError(t, l.Clear(ctx))

	reloaded := openLedger(t, st)
	snap := reloaded.Snapshot()
	assert.Empty(t, snap.Items)
	assert.Equal(t, 0, snap.TotalQuantity)
	assert.True(t, snap.TotalPrice.IsZero())
}

func TestLedger_ReloadRestoresState(t *testing.T) {
	st := &memoryStore{}
	l := openLedger(t, st)
	ctx := context.Background()
	require.NoError(t, l.AddItem(ctx, item("a", "0.10", 3, 5)))
	require.NoError(t, l.AddItem(ctx, item("b", "0.20", 1, 5)))

	reloaded := openLedger(t, st)

	snap := reloaded.Snapshot()
	require.Len(t, snap.Items, 2)
	assert.True(t, snap.TotalPrice.Equal(decimal.RequireFromString("0.5")))
	assertTotals(t, snap)
}

func TestOpen_RederivesPersistedLineTotals(t *testing.T) {
	stale := item("p1", "20", 2, 5)
	stale.LineTotal = decimal.Zero
	other := item("p2", "1.5", 3, 5)
	other.LineTotal = decimal.RequireFromString("99")
	st := &memoryStore{state: &domain.CartState{
		Items:         []domain.LineItem{stale, other},
		TotalQuantity: 1,
		TotalPrice:    decimal.Zero,
	}}

	snap := openLedger(t, st).Snapshot()

	assertTotals(t, snap)
	assert.Equal(t, 5, snap.TotalQuantity)
	assert.True(t, snap.TotalPrice.Equal(decimal.RequireFromString("44.5")))
}

func TestRemoveOrdered(t *testing.T) {
	st := &memoryStore{}
	l := openLedger(t, st)
	ctx := context.Background()
	require.NoError(t, l.AddItem(ctx, item("a", "10", 2, 9)))
	require.NoError(t, l.AddItem(ctx, item("b", "5", 1, 9)))
	ordered := l.Snapshot().Items

	// added while the checkout was in flight
	require.NoError(t, l.AddItem(ctx, item("a", "10", 1, 9)))
	require.NoError(t, l.AddItem(ctx, item("c", "3", 4, 9)))

	require.NoError(t, l.RemoveOrdered(ctx, ordered))

	snap := l.Snapshot()
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "a", snap.Items[0].ProductID)
	assert.Equal(t, 1, snap.Items[0].Quantity)
	assert.Equal(t, "c", snap.Items[1].ProductID)
	assert.True(t, snap.TotalPrice.Equal(decimal.RequireFromString("22")))
	assertTotals(t, snap)

	reloaded := openLedger(t, st).Snapshot()
	assert.Equal(t, snap, reloaded)
}

func TestRemoveOrdered_WholeCartEmptiesIt(t *testing.T) {
	l := openLedger(t, &memoryStore{})
	ctx := context.Background()
	require.NoError(t, l.AddItem(ctx, item("a", "10", 2, 9)))

	require.NoError(t, l.RemoveOrdered(ctx, l.Snapshot().Items))

	assert.True(t, l.Snapshot().IsEmpty())
	assert.True(t, l.Snapshot().TotalPrice.IsZero())
}

func TestLedger_PersistFailureKeepsMutation(t *testing.T) {
	st := &memoryStore{saveErr: errors.New("quota exceeded")}
	l := openLedger(t, st)

	err := l.AddItem(context.Background(), item("a", "10", 1, 5))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "persist cart")
	assert.Len(t, l.Snapshot().Items, 1)
}

func TestSnapshot_IsDetached(t *testing.T) {
	l := openLedger(t, &memoryStore{})
	require.NoError(t, l.AddItem(context.Background(), item("a", "10", 1, 5)))

	snap := l.Snapshot()
	snap.Items[0].Quantity = 99

	assert.Equal(t, 1, l.Snapshot().Items[0].Quantity)
}

// Random operation sequences must never let the aggregates drift from the items.
func TestLedger_TotalsHoldForRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	prices := []string{"0.10", "0.20", "0.30", "19.99", "5", "1.005"}
	ctx := context.Background()

	for run := 0; run < 20; run++ {
		l := openLedger(t, &memoryStore{})
		for op := 0; op < 200; op++ {
			id := fmt.Sprintf("p%d", rng.Intn(6))
			switch rng.Intn(3) {
			case 0:
				_ = l.AddItem(ctx, item(id, prices[rng.Intn(len(prices))], 1+rng.Intn(3), 10))
			case 1:
				_ = l.RemoveItem(ctx, id)
			case 2:
				_ = l.SetQuantity(ctx, id, rng.Intn(12)-1)
			}
			assertTotals(t, l.Snapshot())
		}
	}
}

func TestLedger_ConcurrentMutations(t *testing.T) {
	l := openLedger(t, &memoryStore{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.AddItem(ctx, item("a", "1.10", 1, 100))
		}()
	}
	wg.Wait()

	snap := l.Snapshot()
	assert.Equal(t, 50, snap.TotalQuantity)
	assert.True(t, snap.TotalPrice.Equal(decimal.RequireFromString("55")))
}

func TestFromProduct(t *testing.T) {
	p := domain.Product{ID: "p", Name: "Lamp", Price: decimal.NewFromInt(12), Image: "img", Stock: 3}

	li, err := FromProduct(p, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, li.StockAtAddTime)
	assert.Equal(t, 2, li.Quantity)

	_, err = FromProduct(p, 4)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	p.Stock = 0
	_, err = FromProduct(p, 1)
	assert.ErrorIs(t, err, ErrOutOfStock)
}
