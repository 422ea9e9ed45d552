package payment

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fjod/go_storefront/internal/backend"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Gateway is the part of the storefront backend that opens payment intents.
type Gateway interface {
	ProcessPayment(ctx context.Context, amount decimal.Decimal) (backend.PaymentSecret, error)
	StripeAPIKey(ctx context.Context) (string, error)
}

// Confirmer completes the card handshake for an intent opened by the backend.
type Confirmer interface {
	Confirm(ctx context.Context, publishableKey, clientSecret string, a Authorization) (domain.PaymentIntent, error)
}

// Backend opens the intent through the storefront backend and confirms it with the
// card processor. It falls back to the backend's mocked flow when the backend says
// so or when no usable publishable key can be had.
type Backend struct {
	gateway   Gateway
	confirmer Confirmer
	logger    *slog.Logger

	keys    singleflight.Group
	mu      sync.RWMutex
	key     string
	keySeen bool
}

func NewBackend(gateway Gateway, confirmer Confirmer, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		gateway:   gateway,
		confirmer: confirmer,
		logger:    logger,
	}
}

func (b *Backend) Authorize(ctx context.Context, a Authorization) (domain.PaymentIntent, error) {
	secret, err := b.gateway.ProcessPayment(ctx, a.Amount)
	if err != nil {
		return domain.PaymentIntent{}, fmt.Errorf("process payment: %w", err)
	}
	if secret.Mocked {
		return mockedIntent(secret.ClientSecret), nil
	}

	key, err := b.publishableKey(ctx)
	if err != nil {
		b.logger.WarnContext(ctx, "publishable key unavailable, using mocked payment flow", "error", err)
		return mockedIntent(secret.ClientSecret), nil
	}
	if key == "" {
		b.logger.WarnContext(ctx, "no publishable key configured, using mocked payment flow")
		return mockedIntent(secret.ClientSecret), nil
	}

	intent, err := b.confirmer.Confirm(ctx, key, secret.ClientSecret, a)
	if err != nil {
		return domain.PaymentIntent{}, fmt.Errorf("confirm payment: %w", err)
	}
	return intent, nil
}

// publishableKey is fetched once per process. Concurrent first calls share one request.
// Errors are not cached.
func (b *Backend) publishableKey(ctx context.Context) (string, error) {
	b.mu.RLock()
	if b.keySeen {
		key := b.key
		b.mu.RUnlock()
		return key, nil
	}
	b.mu.RUnlock()

	v, err, _ := b.keys.Do("stripe-key", func() (any, error) {
		key, err := b.gateway.StripeAPIKey(ctx)
		if err != nil {
			return "", err
		}
		b.mu.Lock()
		b.key, b.keySeen = key, true
		b.mu.Unlock()
		return key, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func mockedIntent(clientSecret string) domain.PaymentIntent {
	return domain.PaymentIntent{
		ID:     clientSecret,
		Status: domain.PaymentStatusSucceeded,
		Method: domain.PaymentMethodCard,
		Mocked: true,
	}
}
