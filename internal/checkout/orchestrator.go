// Package checkout drives one order-placement attempt from a cart snapshot to a
// created order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/metrics"
	"github.com/fjod/go_storefront/internal/payment"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	minPhoneLength  = 10
	followUpTimeout = 5 * time.Second
	defaultCurrency = "usd"
	resultSucceeded = "succeeded"
	instrumentation = "github.com/fjod/go_storefront/internal/checkout"
)

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, draft domain.OrderDraft) (*domain.Order, error)
}

// CartSettler takes the lines that were just ordered out of the cart.
type CartSettler interface {
	RemoveOrdered(ctx context.Context, ordered []domain.LineItem) error
}

// Escalation describes a card payment that went through without an order behind it.
type Escalation struct {
	AttemptID string
	Payment   domain.PaymentIntent
	Draft     domain.OrderDraft
	Currency  string
	Cause     error
}

// Escalator hands a captured-but-orphaned payment to manual follow-up.
type Escalator interface {
	Escalate(ctx context.Context, e Escalation) error
}

type Request struct {
	Cart     domain.CartState
	Shipping domain.ShippingInfo
	Payment  domain.PaymentSelection
	// Customer is the billing name passed to the card processor.
	Customer string
}

type Receipt struct {
	AttemptID string
	OrderID   string
	Order     *domain.Order
	Payment   domain.PaymentIntent
	Breakdown domain.PriceBreakdown
	// Trail lists every state the attempt went through, in order.
	Trail []State
}

type Orchestrator struct {
	payments  payment.Provider
	orders    OrderPlacer
	cart      CartSettler
	escalator Escalator
	pricing   Pricing
	currency  string
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

type Option func(*Orchestrator)

func WithEscalator(e Escalator) Option { return func(o *Orchestrator) { o.escalator = e } }

func WithPricing(p Pricing) Option { return func(o *Orchestrator) { o.pricing = p } }

func WithCurrency(c string) Option { return func(o *Orchestrator) { o.currency = c } }

func WithLogger(l *slog.Logger) Option { return func(o *Orchestrator) { o.logger = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(o *Orchestrator) { o.metrics = m } }

func WithTracer(t trace.Tracer) Option { return func(o *Orchestrator) { o.tracer = t } }

func New(payments payment.Provider, orders OrderPlacer, cart CartSettler, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		payments: payments,
		orders:   orders,
		cart:     cart,
		pricing:  DefaultPricing(),
		currency: defaultCurrency,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(instrumentation)
	}
	return o
}

// attempt is the working state of one PlaceOrder call. Nothing survives the call.
type attempt struct {
	id     string
	state  State
	trail  []State
	req    Request
	prices domain.PriceBreakdown
	intent *domain.PaymentIntent
	order  *domain.Order
}

func (a *attempt) advance(next State) error {
	if !a.state.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, a.state, next)
	}
	a.state = next
	a.trail = append(a.trail, next)
	return nil
}

// PlaceOrder runs one attempt. Failures come back as *Error; the cart is cleared
// only when the order service confirmed the order.
func (o *Orchestrator) PlaceOrder(ctx context.Context, req Request) (*Receipt, error) {
	start := time.Now()
	a := &attempt{
		id:    uuid.NewString(),
		state: StateIdle,
		trail: []State{StateIdle},
		req:   req,
	}

	ctx, span := o.tracer.Start(ctx, "checkout.PlaceOrder",
		trace.WithAttributes(
			attribute.String("checkout.attempt_id", a.id),
			attribute.String("checkout.payment_method", string(req.Payment.Method)),
		))
	defer span.End()

	receipt, err := o.run(ctx, a)

	result := resultSucceeded
	if err != nil {
		result = Code(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
	}
	span.SetAttributes(attribute.String("checkout.result", result))
	o.metrics.CheckoutFinished(result, time.Since(start))

	return receipt, err
}

func (o *Orchestrator) run(ctx context.Context, a *attempt) (*Receipt, error) {
	for !a.state.IsTerminal() {
		var (
			next    State
			stepErr *Error
		)
		switch a.state {
		case StateIdle:
			next = StateValidating
		case StateValidating:
			stepErr = o.validate(a)
			next = StateAuthorizingPayment
		case StateAuthorizingPayment:
			stepErr = o.authorize(ctx, a)
			next = StatePlacingOrder
		case StatePlacingOrder:
			stepErr = o.submit(ctx, a)
			next = StateSucceeded
		default:
			return nil, fmt.Errorf("%w: no step for %s", ErrIllegalTransition, a.state)
		}

		if stepErr != nil {
			return nil, o.fail(ctx, a, stepErr)
		}
		if err := a.advance(next); err != nil {
			return nil, err
		}
		o.logger.DebugContext(ctx, "checkout state changed",
			"attempt_id", a.id,
			"state", a.state.String())
	}

	o.finish(ctx, a)
	return &Receipt{
		AttemptID: a.id,
		OrderID:   a.order.ID,
		Order:     a.order,
		Payment:   *a.intent,
		Breakdown: a.prices,
		Trail:     a.trail,
	}, nil
}

func (o *Orchestrator) validate(a *attempt) *Error {
	if a.req.Cart.IsEmpty() {
		return &Error{Reason: ErrEmptyCart}
	}

	s := a.req.Shipping
	required := []struct {
		name  string
		value string
	}{
		{"address", s.Address},
		{"city", s.City},
		{"state", s.State},
		{"country", s.Country},
		{"zipCode", s.ZipCode},
		{"phoneNo", s.PhoneNo},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &Error{Reason: ErrIncompleteShipping, Field: f.name}
		}
	}
	// length is taken as entered, surrounding spaces included
	if utf8.RuneCountInString(s.PhoneNo) < minPhoneLength {
		return &Error{Reason: ErrInvalidPhone, Field: "phoneNo"}
	}

	switch a.req.Payment.Method {
	case domain.PaymentMethodCard, domain.PaymentMethodCashOnDelivery:
	default:
		return &Error{Reason: ErrUnknownPaymentMethod, Err: fmt.Errorf("method %q", a.req.Payment.Method)}
	}

	a.prices = o.pricing.Quote(a.req.Cart.TotalPrice)
	return nil
}

func (o *Orchestrator) authorize(ctx context.Context, a *attempt) *Error {
	switch a.req.Payment.Method {
	case domain.PaymentMethodCashOnDelivery:
		a.intent = &domain.PaymentIntent{
			ID:     "cod_" + uuid.NewString(),
			Status: domain.PaymentStatusPending,
			Method: domain.PaymentMethodCashOnDelivery,
		}
		return nil

	case domain.PaymentMethodCard:
		intent, err := o.payments.Authorize(ctx, payment.Authorization{
			Amount:    a.prices.TotalPrice,
			Currency:  o.currency,
			Billing:   a.req.Shipping.Billing(a.req.Customer),
			CardToken: a.req.Payment.CardToken,
		})
		if err != nil {
			return &Error{Reason: ErrPaymentDeclined, Err: err}
		}
		if intent.Method == "" {
			intent.Method = domain.PaymentMethodCard
		}
		a.intent = &intent
		if intent.Status != domain.PaymentStatusSucceeded {
			return &Error{Reason: ErrPaymentDeclined, Err: fmt.Errorf("intent %s ended with status %q", intent.ID, intent.Status)}
		}
		return nil

	default:
		return &Error{Reason: ErrUnknownPaymentMethod}
	}
}

func (o *Orchestrator) submit(ctx context.Context, a *attempt) *Error {
	draft := o.draft(a)

	order, err := o.orders.PlaceOrder(ctx, draft)
	if err == nil && (order == nil || order.ID == "") {
		err = errors.New("order service returned no order id")
	}
	if err == nil {
		a.order = order
		return nil
	}

	if !a.intent.Captured() {
		return &Error{Reason: ErrOrderRejected, Err: err}
	}

	o.escalate(ctx, a, draft, err)
	return &Error{Reason: ErrPaymentCapturedOrderFailed, Err: err}
}

func (o *Orchestrator) draft(a *attempt) domain.OrderDraft {
	return domain.OrderDraft{
		Items:          a.req.Cart.Clone().Items,
		Shipping:       a.req.Shipping,
		Payment:        *a.intent,
		Prices:         a.prices,
		IdempotencyKey: a.id,
	}
}

// escalate records the orphaned payment. The caller may already have given up on
// ctx, so the record is written on a detached context.
func (o *Orchestrator) escalate(ctx context.Context, a *attempt, draft domain.OrderDraft, cause error) {
	o.logger.ErrorContext(ctx, "payment captured but order failed",
		"attempt_id", a.id,
		"payment_id", a.intent.ID,
		"mocked", a.intent.Mocked,
		"amount", a.prices.TotalPrice.String(),
		"error", cause)

	if o.escalator == nil {
		return
	}
	escCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), followUpTimeout)
	defer cancel()
	err := o.escalator.Escalate(escCtx, Escalation{
		AttemptID: a.id,
		Payment:   *a.intent,
		Draft:     draft,
		Currency:  o.currency,
		Cause:     cause,
	})
	if err != nil {
		o.logger.ErrorContext(ctx, "failed to record payment for reconciliation",
			"attempt_id", a.id,
			"payment_id", a.intent.ID,
			"error", err)
	}
}

// finish removes the ordered lines from the cart. Lines added by a concurrent caller
// after the snapshot survive. The order already exists, so a failed write is only logged.
func (o *Orchestrator) finish(ctx context.Context, a *attempt) {
	clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), followUpTimeout)
	defer cancel()
	if err := o.cart.RemoveOrdered(clearCtx, a.req.Cart.Items); err != nil {
		o.logger.ErrorContext(ctx, "order placed but cart could not be cleared",
			"attempt_id", a.id,
			"order_id", a.order.ID,
			"error", err)
	}
	o.logger.InfoContext(ctx, "order placed",
		"attempt_id", a.id,
		"order_id", a.order.ID,
		"payment_method", string(a.intent.Method),
		"total", a.prices.TotalPrice.String())
}

func (o *Orchestrator) fail(ctx context.Context, a *attempt, e *Error) error {
	e.AttemptID = a.id
	e.State = a.state
	if a.intent != nil {
		intent := *a.intent
		e.Payment = &intent
	}
	if err := a.advance(StateFailed); err != nil {
		return errors.Join(e, err)
	}
	o.logger.WarnContext(ctx, "checkout failed",
		"attempt_id", a.id,
		"state", e.State.String(),
		"code", Code(e),
		"error", e)
	return e
}
