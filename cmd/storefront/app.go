package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjod/go_storefront/internal/backend"
	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/cart/store"
	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/config"
	"github.com/fjod/go_storefront/internal/metrics"
	"github.com/fjod/go_storefront/internal/orders"
	"github.com/fjod/go_storefront/internal/payment"
	"github.com/fjod/go_storefront/internal/reconcile"
	"github.com/fjod/go_storefront/pkg/logger"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// app holds everything one invocation needs. close releases it in reverse order.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	backend   *backend.Client
	ledger    *cart.Ledger
	checkout  *checkout.Orchestrator
	orders    *orders.Service
	incidents *reconcile.Repository

	closers []func() error
}

func loadConfig(g *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	return cfg, nil
}

func newApp(ctx context.Context, g *globalFlags) (a *app, err error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}

	a = &app{cfg: cfg}
	defer func() {
		if err != nil {
			_ = a.close()
		}
	}()

	a.logger = logger.New(logger.Options{
		Service: appName,
		Env:     cfg.Log.Env,
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
	})

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)

	a.backend = backend.New(backend.Options{
		BaseURL:         cfg.API.BaseURL,
		Token:           cfg.API.Token,
		Timeout:         cfg.API.Timeout,
		BreakerFailures: cfg.API.BreakerFailures,
		BreakerCooldown: cfg.API.BreakerCooldown,
	})

	st, err := a.openCartStore(ctx)
	if err != nil {
		return nil, err
	}
	a.ledger, err = cart.Open(ctx, st,
		cart.WithLogger(a.logger.With("component", "cart")),
		cart.WithMetrics(a.metrics))
	if err != nil {
		return nil, err
	}

	provider := a.paymentProvider()

	taxRate, freeOver, flatFee, err := cfg.Checkout.Amounts()
	if err != nil {
		return nil, err
	}
	opts := []checkout.Option{
		checkout.WithPricing(checkout.Pricing{
			TaxRate:          taxRate,
			FreeShippingOver: freeOver,
			FlatShippingFee:  flatFee,
		}),
		checkout.WithCurrency(cfg.Checkout.Currency),
		checkout.WithLogger(a.logger.With("component", "checkout")),
		checkout.WithMetrics(a.metrics),
	}

	if cfg.Reconciliation.Enabled {
		if err := a.openIncidents(); err != nil {
			return nil, err
		}
		journal := reconcile.NewJournal(a.incidents, a.logger.With("component", "reconcile"))
		opts = append(opts, checkout.WithEscalator(journal))
	}

	a.checkout = checkout.New(provider, a.backend, a.ledger, opts...)
	a.orders = orders.NewService(a.backend, cfg.API.Timeout)

	return a, nil
}

func (a *app) openCartStore(ctx context.Context) (cart.Store, error) {
	c := a.cfg.Cart
	switch c.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		st := store.NewRedis(client, c.Key, c.RedisTTL)
		a.closers = append(a.closers, st.Close)
		return st, nil

	case "mongo":
		db, err := store.ConnectMongoDB(ctx, c.MongoURI, c.MongoDatabase)
		if err != nil {
			return nil, err
		}
		st := store.NewMongo(db, c.Key)
		a.closers = append(a.closers, st.Close)
		if err := st.CreateIndexes(ctx, c.MongoTTL); err != nil {
			return nil, err
		}
		return st, nil

	default:
		st, err := store.NewSQLite(c.SQLitePath, c.Key)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, st.Close)
		if err := st.RunMigrations(); err != nil {
			return nil, err
		}
		return st, nil
	}
}

func (a *app) paymentProvider() payment.Provider {
	p := a.cfg.Payment
	if p.Provider == "mock" {
		a.logger.Warn("using mock payment provider, no money will move")
		return payment.Mock{DeclineReason: p.MockDecline}
	}
	confirmer := payment.NewStripeConfirmer(p.StripeBaseURL, a.cfg.API.Timeout, nil)
	return payment.NewBackend(a.backend, confirmer, a.logger.With("component", "payment"))
}

func (a *app) openIncidents() error {
	r := a.cfg.Reconciliation
	repo, err := reconcile.NewRepository(r.Driver, r.DSN)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, repo.Close)
	if err := repo.RunMigrations(); err != nil {
		return err
	}
	a.incidents = repo
	return nil
}

// newSink returns nil when no sink is configured.
func (a *app) newSink(ctx context.Context) (reconcile.Sink, error) {
	r := a.cfg.Reconciliation
	switch r.Sink {
	case "kafka":
		sink := reconcile.NewKafkaSink(r.KafkaTopic, r.KafkaBrokers...)
		a.closers = append(a.closers, sink.Close)
		return sink, nil

	case "nats":
		nc, err := nats.Connect(r.NatsURL, nats.Name(appName))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to nats: %w", err)
		}
		a.closers = append(a.closers, func() error {
			nc.Close()
			return nil
		})
		js, err := jetstream.New(nc)
		if err != nil {
			return nil, fmt.Errorf("failed to open jetstream: %w", err)
		}
		if err := reconcile.EnsureStream(ctx, js, r.NatsStream, r.NatsSubject); err != nil {
			return nil, err
		}
		return reconcile.NewNatsSink(js, r.NatsSubject), nil

	default:
		return nil, nil
	}
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
