package payment

import (
	"context"
	"fmt"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/google/uuid"
)

// Mock authorizes without touching the network. A non-empty DeclineReason makes
// every authorization fail.
type Mock struct {
	DeclineReason string
}

func (m Mock) Authorize(ctx context.Context, a Authorization) (domain.PaymentIntent, error) {
	if err := ctx.Err(); err != nil {
		return domain.PaymentIntent{}, err
	}
	if m.DeclineReason != "" {
		return domain.PaymentIntent{}, fmt.Errorf("%w: %s", ErrDeclined, m.DeclineReason)
	}
	return domain.PaymentIntent{
		ID:     "pay_mock_" + uuid.NewString(),
		Status: domain.PaymentStatusSucceeded,
		Method: domain.PaymentMethodCard,
		Mocked: true,
	}, nil
}
