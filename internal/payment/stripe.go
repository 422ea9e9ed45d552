package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const DefaultStripeBaseURL = "https://api.stripe.com"

// StripeConfirmer confirms a payment intent the way a browser client does: with the
// publishable key and the intent's client secret, never with a secret key.
type StripeConfirmer struct {
	backends *stripe.Backends
}

func NewStripeConfirmer(baseURL string, timeout time.Duration, transport http.RoundTripper) *StripeConfirmer {
	if baseURL == "" {
		baseURL = DefaultStripeBaseURL
	}
	if transport == nil {
		transport = http.DefaultTransport
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(transport)}
	return &StripeConfirmer{
		backends: stripe.NewBackendsWithConfig(&stripe.BackendConfig{
			URL:               stripe.String(strings.TrimRight(baseURL, "/")),
			HTTPClient:        httpClient,
			MaxNetworkRetries: stripe.Int64(0),
			LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
		}),
	}
}

// IntentID extracts "pi_123" from a client secret of the form "pi_123_secret_abc".
func IntentID(clientSecret string) (string, error) {
	id, _, ok := strings.Cut(clientSecret, "_secret_")
	if !ok || id == "" {
		return "", errors.New("malformed client secret")
	}
	return id, nil
}

func (s *StripeConfirmer) Confirm(ctx context.Context, publishableKey, clientSecret string, a Authorization) (domain.PaymentIntent, error) {
	id, err := IntentID(clientSecret)
	if err != nil {
		return domain.PaymentIntent{}, err
	}
	if a.CardToken == "" {
		return domain.PaymentIntent{}, errors.New("card token is required")
	}

	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethodData: &stripe.PaymentIntentPaymentMethodDataParams{
			Type: stripe.String("card"),
		},
	}
	params.Context = ctx
	params.AddExtra("client_secret", clientSecret)
	params.AddExtra("payment_method_data[card][token]", a.CardToken)
	b := a.Billing
	for key, value := range map[string]string{
		"payment_method_data[billing_details][name]":                 b.Name,
		"payment_method_data[billing_details][phone]":                b.Phone,
		"payment_method_data[billing_details][address][line1]":       b.Line1,
		"payment_method_data[billing_details][address][city]":        b.City,
		"payment_method_data[billing_details][address][state]":       b.State,
		"payment_method_data[billing_details][address][country]":     b.Country,
		"payment_method_data[billing_details][address][postal_code]": b.PostalCode,
	} {
		params.AddExtra(key, value)
	}

	sc := &client.API{}
	sc.Init(publishableKey, s.backends)

	pi, err := sc.PaymentIntents.Confirm(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			return domain.PaymentIntent{}, fmt.Errorf("%w: %s", ErrDeclined, stripeErr.Msg)
		}
		return domain.PaymentIntent{}, fmt.Errorf("confirm intent %s: %w", id, err)
	}

	intent := domain.PaymentIntent{
		ID:     pi.ID,
		Status: intentStatus(pi.Status),
		Method: domain.PaymentMethodCard,
	}
	if intent.ID == "" {
		intent.ID = id
	}
	if intent.Status == domain.PaymentStatusFailed && pi.LastPaymentError != nil {
		return intent, fmt.Errorf("%w: %s", ErrDeclined, pi.LastPaymentError.Msg)
	}
	return intent, nil
}

func intentStatus(s stripe.PaymentIntentStatus) domain.PaymentStatus {
	switch s {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusRequiresCapture:
		return domain.PaymentStatusSucceeded
	case stripe.PaymentIntentStatusProcessing:
		return domain.PaymentStatusPending
	default:
		return domain.PaymentStatusFailed
	}
}
