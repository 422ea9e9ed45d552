// Package backend is the REST client for the storefront's order, payment and catalog services.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout         = 10 * time.Second
	defaultBreakerFailures = 5
	defaultBreakerCooldown = 30 * time.Second
	maxResponseBytes       = 1 << 20
)

type Options struct {
	BaseURL string
	// Token is sent as a bearer credential when set.
	Token     string
	Timeout   time.Duration
	Transport http.RoundTripper

	BreakerFailures uint32
	BreakerCooldown time.Duration
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = defaultBreakerFailures
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = defaultBreakerCooldown
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	failures := opts.BreakerFailures
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		breaker: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:    "storefront-backend",
			Timeout: opts.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			IsSuccessful: isHealthyOutcome,
		}),
	}
}

// isHealthyOutcome keeps client errors and caller cancellations from tripping the breaker.
func isHealthyOutcome(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError
}

// PlaceOrder submits the draft to POST /order/new. The attempt id travels as Idempotency-Key.
func (c *Client) PlaceOrder(ctx context.Context, draft domain.OrderDraft) (*domain.Order, error) {
	headers := map[string]string{}
	if draft.IdempotencyKey != "" {
		headers["Idempotency-Key"] = draft.IdempotencyKey
	}

	var env orderEnvelope
	if err := c.do(ctx, http.MethodPost, "/order/new", toNewOrderRequest(draft), &env, headers); err != nil {
		return nil, err
	}
	if !env.Success || env.Order == nil {
		msg := env.Message
		if msg == "" {
			msg = "no order in response"
		}
		return nil, fmt.Errorf("%w: %s", ErrOrderRejected, msg)
	}
	order := env.Order.toDomain()
	return &order, nil
}

// ProcessPayment asks the backend to open a payment intent for amount.
func (c *Client) ProcessPayment(ctx context.Context, amt decimal.Decimal) (PaymentSecret, error) {
	var out PaymentSecret
	err := c.do(ctx, http.MethodPost, "/payment/process", processPaymentRequestDTO{Amount: amount{amt}}, &out, nil)
	if err != nil {
		return PaymentSecret{}, err
	}
	if out.ClientSecret == "" {
		return PaymentSecret{}, errors.New("payment process: empty client secret")
	}
	return out, nil
}

// StripeAPIKey returns the publishable key. An empty key means the backend runs without a provider.
func (c *Client) StripeAPIKey(ctx context.Context) (string, error) {
	var out stripeKeyDTO
	if err := c.do(ctx, http.MethodGet, "/stripeapikey", nil, &out, nil); err != nil {
		return "", err
	}
	return out.StripeAPIKey, nil
}

func (c *Client) Product(ctx context.Context, id string) (*domain.Product, error) {
	var env productEnvelope
	if err := c.do(ctx, http.MethodGet, "/product/"+url.PathEscape(id), nil, &env, nil); err != nil {
		return nil, err
	}
	if env.Product == nil {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	p := env.Product.toDomain()
	return &p, nil
}

func (c *Client) MyOrders(ctx context.Context) ([]domain.Order, error) {
	var env ordersEnvelope
	if err := c.do(ctx, http.MethodGet, "/orders/me", nil, &env, nil); err != nil {
		return nil, err
	}
	orders := make([]domain.Order, len(env.Orders))
	for i, o := range env.Orders {
		orders[i] = o.toDomain()
	}
	return orders, nil
}

func (c *Client) Order(ctx context.Context, id string) (*domain.Order, error) {
	var env orderEnvelope
	if err := c.do(ctx, http.MethodGet, "/order/"+url.PathEscape(id), nil, &env, nil); err != nil {
		return nil, err
	}
	if env.Order == nil {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	order := env.Order.toDomain()
	return &order, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, headers map[string]string) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, path, payload, headers)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%s %s: %w", method, path, ErrUnavailable)
		}
		return err
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, newAPIError(resp.StatusCode, body)
	}
	return body, nil
}
