package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL, Token: "secret", Timeout: 2 * time.Second})
}

func sampleDraft() domain.OrderDraft {
	price := decimal.NewFromInt(20)
	return domain.OrderDraft{
		Items: []domain.LineItem{{
			ProductID: "p1",
			Name:      "Mug",
			UnitPrice: price,
			Image:     "mug.png",
			Quantity:  2,
			LineTotal: decimal.NewFromInt(40),
		}},
		Shipping: domain.ShippingInfo{
			Address: "1 Main St", City: "Springfield", State: "IL",
			Country: "US", ZipCode: "62701", PhoneNo: "5551234567",
		},
		Payment: domain.PaymentIntent{
			ID: "cod_1", Status: domain.PaymentStatusPending, Method: domain.PaymentMethodCashOnDelivery,
		},
		Prices: domain.PriceBreakdown{
			ItemsPrice:    decimal.NewFromInt(40),
			TaxPrice:      decimal.NewFromInt(4),
			ShippingPrice: decimal.NewFromInt(10),
			TotalPrice:    decimal.NewFromInt(54),
		},
		IdempotencyKey: "attempt-1",
	}
}

func TestPlaceOrder_SendsWirePayload(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/order/new", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "attempt-1", r.Header.Get("Idempotency-Key"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"order":{"_id":"ord_1","orderStatus":"Processing",
			"orderItems":[{"product":"p1","name":"Mug","quantity":2,"price":20,"image":"mug.png"}],
			"paymentInfo":{"id":"cod_1","status":"pending","method":"cash_on_delivery"},
			"itemsPrice":40,"taxPrice":4,"shippingPrice":10,"totalPrice":54,
			"createdAt":"2026-01-02T03:04:05Z"}}`))
	}))

	order, err := client.PlaceOrder(context.Background(), sampleDraft())
	require.NoError(t, err)

	assert.Equal(t, "ord_1", order.ID)
	assert.Equal(t, domain.OrderStatusProcessing, order.Status)
	assert.True(t, order.Prices.TotalPrice.Equal(decimal.NewFromInt(54)))
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].LineTotal.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, domain.PaymentMethodCashOnDelivery, order.Payment.Method)

	// prices go out as JSON numbers
	assert.Equal(t, float64(54), got["totalPrice"])
	assert.Equal(t, float64(4), got["taxPrice"])
	items := got["orderItems"].([]any)
	first := items[0].(map[string]any)
	assert.Equal(t, "p1", first["product"])
	assert.Equal(t, float64(20), first["price"])
	shipping := got["shippingInfo"].(map[string]any)
	assert.Equal(t, "62701", shipping["zipCode"])
	payment := got["paymentInfo"].(map[string]any)
	assert.Equal(t, "cash_on_delivery", payment["method"])
	assert.NotContains(t, payment, "mocked")
}

func TestPlaceOrder_UnsuccessfulEnvelope(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"stock changed"}`))
	}))

	_, err := client.PlaceOrder(context.Background(), sampleDraft())
	require.ErrorIs(t, err, ErrOrderRejected)
	assert.Contains(t, err.Error(), "stock changed")
}

func TestPlaceOrder_APIErrorCarriesMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"message":"invalid phone"}`))
	}))

	_, err := client.PlaceOrder(context.Background(), sampleDraft())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "invalid phone", apiErr.Message)
}

func TestProcessPaymentAndKey(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/payment/process":
			var req map[string]any
			_ = json.NewDecoder(r.Body).Decode(&req)
			assert.Equal(t, 54.5, req["amount"])
			_, _ = w.Write([]byte(`{"client_secret":"pi_123_secret_abc","mocked":true}`))
		case "/stripeapikey":
			_, _ = w.Write([]byte(`{"stripeApiKey":"pk_test_1"}`))
		default:
			http.NotFound(w, r)
		}
	}))

	secret, err := client.ProcessPayment(context.Background(), decimal.RequireFromString("54.5"))
	require.NoError(t, err)
	assert.Equal(t, "pi_123_secret_abc", secret.ClientSecret)
	assert.True(t, secret.Mocked)

	key, err := client.StripeAPIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pk_test_1", key)
}

func TestProcessPayment_EmptySecret(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"client_secret":""}`))
	}))

	_, err := client.ProcessPayment(context.Background(), decimal.NewFromInt(1))
	require.Error(t, err)
}

func TestProductAndOrders(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/product/p1":
			_, _ = w.Write([]byte(`{"success":true,"product":{"_id":"p1","name":"Mug","price":12.5,"stock":3,"images":[{"url":"a.png"},{"url":"b.png"}]}}`))
		case "/orders/me":
			_, _ = w.Write([]byte(`{"success":true,"orders":[{"_id":"o1","orderStatus":"Shipped","totalPrice":10},{"_id":"o2","totalPrice":20}]}`))
		case "/order/o1":
			_, _ = w.Write([]byte(`{"success":true,"order":{"_id":"o1","orderStatus":"Delivered","deliveredAt":"2026-02-01T00:00:00Z"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Order not found"}`))
		}
	}))
	ctx := context.Background()

	p, err := client.Product(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "a.png", p.Image)
	assert.Equal(t, 3, p.Stock)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("12.5")))

	orders, err := client.MyOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, domain.OrderStatusShipped, orders[0].Status)
	assert.Equal(t, domain.OrderStatusProcessing, orders[1].Status)

	o, err := client.Order(ctx, "o1")
	require.NoError(t, err)
	require.NotNil(t, o.DeliveredAt)
	assert.True(t, o.Status.IsTerminal())

	_, err = client.Order(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCircuitOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	client := New(Options{BaseURL: srv.URL, BreakerFailures: 2, BreakerCooldown: time.Minute})
	ctx := context.Background()

	for range 2 {
		_, err := client.StripeAPIKey(ctx)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
	}

	_, err := client.StripeAPIKey(ctx)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCircuitIgnoresClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	t.Cleanup(srv.Close)
	client := New(Options{BaseURL: srv.URL, BreakerFailures: 1})

	for range 3 {
		_, err := client.StripeAPIKey(context.Background())
		assert.False(t, errors.Is(err, ErrUnavailable))
	}
}

func TestMarshalOrder(t *testing.T) {
	data, err := MarshalOrder(sampleDraft())
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, float64(40), got["itemsPrice"])
	assert.Contains(t, got, "orderItems")
	assert.NotContains(t, got, "IdempotencyKey")
}
