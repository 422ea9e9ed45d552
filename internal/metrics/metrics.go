// Package metrics exposes Prometheus instruments for the cart and checkout pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	cartMutations    *prometheus.CounterVec
	checkoutAttempts *prometheus.CounterVec
	checkoutDuration prometheus.Histogram
	reconcilePublish *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "cart_mutations_total",
			Help:      "Cart ledger mutations by operation.",
		}, []string{"op"}),
		checkoutAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "checkout_attempts_total",
			Help:      "Checkout attempts by terminal result.",
		}, []string{"result"}),
		checkoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "checkout_duration_seconds",
			Help:      "Wall time of one checkout attempt.",
			Buckets:   prometheus.DefBuckets,
		}),
		reconcilePublish: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "reconciliation_published_total",
			Help:      "Reconciliation incidents handed to a sink.",
		}, []string{"sink"}),
	}
	if reg != nil {
		reg.MustRegister(m.cartMutations, m.checkoutAttempts, m.checkoutDuration, m.reconcilePublish)
	}
	return m
}

func (m *Metrics) CartMutation(op string) {
	if m == nil {
		return
	}
	m.cartMutations.WithLabelValues(op).Inc()
}

func (m *Metrics) CheckoutFinished(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.checkoutAttempts.WithLabelValues(result).Inc()
	m.checkoutDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ReconciliationPublished(sink string) {
	if m == nil {
		return
	}
	m.reconcilePublish.WithLabelValues(sink).Inc()
}
