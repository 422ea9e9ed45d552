package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fjod/go_storefront/internal/httpapi"
	"github.com/fjod/go_storefront/internal/reconcile"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the cart and checkout over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, g)
		},
	}
}

func serve(ctx context.Context, g *globalFlags) error {
	a, err := newApp(ctx, g)
	if err != nil {
		return err
	}
	defer a.close()

	var poller *reconcile.Poller
	if a.incidents != nil {
		sink, err := a.newSink(ctx)
		if err != nil {
			return err
		}
		if sink != nil {
			poller = reconcile.NewPoller(a.incidents, sink, a.cfg.Reconciliation.PollInterval,
				a.logger.With("component", "reconcile"), a.metrics)
		}
	}

	cfg := a.cfg.HTTP
	handler := httpapi.NewRouter(httpapi.Handlers{
		Cart:     httpapi.NewCartHandler(a.ledger, a.backend, cfg.RequestTimeout),
		Checkout: httpapi.NewCheckoutHandler(a.checkout, a.ledger, cfg.RequestTimeout),
		Orders:   httpapi.NewOrdersHandler(a.orders, cfg.RequestTimeout),
		Metrics:  promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
	}, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		a.logger.Info("storefront listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if poller != nil {
		group.Go(func() error { return poller.Run(gctx) })
	}

	err = group.Wait()
	a.logger.Info("server exited")
	return err
}
