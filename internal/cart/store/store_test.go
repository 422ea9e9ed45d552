package store

import (
	"testing"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
)

func sampleState() domain.CartState {
	price := decimal.RequireFromString("19.99")
	return domain.CartState{
		Items: []domain.LineItem{
			{
				ProductID:      "p-1",
				Name:           "Teak chair",
				UnitPrice:      price,
				Image:          "https://img/p-1.jpg",
				StockAtAddTime: 7,
				Quantity:       2,
				LineTotal:      price.Mul(decimal.NewFromInt(2)),
			},
		},
		TotalQuantity: 2,
		TotalPrice:    price.Mul(decimal.NewFromInt(2)),
	}
}

func assertSameState(t *testing.T, want, got domain.CartState) {
	t.Helper()
	if len(want.Items) != len(got.Items) {
		t.Fatalf("expected %d items, got %d", len(want.Items), len(got.Items))
	}
	for i := range want.Items {
		w, g := want.Items[i], got.Items[i]
		if w.ProductID != g.ProductID || w.Quantity != g.Quantity || w.StockAtAddTime != g.StockAtAddTime {
			t.Errorf("item %d mismatch: want %+v, got %+v", i, w, g)
		}
		if !w.UnitPrice.Equal(g.UnitPrice) || !w.LineTotal.Equal(g.LineTotal) {
			t.Errorf("item %d price mismatch: want %s/%s, got %s/%s",
				i, w.UnitPrice, w.LineTotal, g.UnitPrice, g.LineTotal)
		}
	}
	if want.TotalQuantity != got.TotalQuantity || !want.TotalPrice.Equal(got.TotalPrice) {
		t.Errorf("totals mismatch: want %d/%s, got %d/%s",
			want.TotalQuantity, want.TotalPrice, got.TotalQuantity, got.TotalPrice)
	}
}
