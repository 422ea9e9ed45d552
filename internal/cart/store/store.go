package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_storefront/internal/domain"
)

// DefaultKey is the fixed identifier the cart is persisted under.
const DefaultKey = "cart"

var ErrNotFound = errors.New("cart state not found")

func marshalState(state domain.CartState) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshal cart state failed: %w", err)
	}
	return data, nil
}

func unmarshalState(data []byte) (domain.CartState, error) {
	var state domain.CartState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.CartState{}, fmt.Errorf("unmarshal cart state failed: %w", err)
	}
	if state.Items == nil {
		state.Items = []domain.LineItem{}
	}
	return state, nil
}
