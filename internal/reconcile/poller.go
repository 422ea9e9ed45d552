package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_storefront/internal/metrics"
)

const defaultBatchSize = 100

// Sink delivers an incident to the support pipeline.
type Sink interface {
	Name() string
	Publish(ctx context.Context, inc *Incident) error
	Close() error
}

type OutboxStore interface {
	Unpublished(ctx context.Context, limit int) ([]*Incident, error)
	MarkPublished(ctx context.Context, id string, at time.Time) error
}

// Poller forwards unpublished incidents to a sink and marks them published.
// Delivery is at least once: an incident whose mark fails is sent again on the
// next tick.
type Poller struct {
	repo     OutboxStore
	sink     Sink
	interval time.Duration
	batch    int
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewPoller(repo OutboxStore, sink Sink, interval time.Duration, logger *slog.Logger, m *metrics.Metrics) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		repo:     repo,
		sink:     sink,
		interval: interval,
		batch:    defaultBatchSize,
		logger:   logger,
		metrics:  m,
	}
}

// Run publishes on every tick until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.InfoContext(ctx, "reconciliation poller started",
		"sink", p.sink.Name(),
		"interval", p.interval.String())
	for {
		select {
		case <-ticker.C:
			if _, err := p.PublishOnce(ctx); err != nil {
				p.logger.ErrorContext(ctx, "failed to fetch incidents", "error", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// PublishOnce runs a single pass and returns how many incidents were delivered
// and marked. Per-incident failures are logged and skipped.
func (p *Poller) PublishOnce(ctx context.Context) (int, error) {
	incidents, err := p.repo.Unpublished(ctx, p.batch)
	if err != nil {
		return 0, fmt.Errorf("fetch unpublished incidents: %w", err)
	}

	published := 0
	for _, inc := range incidents {
		if err := p.sink.Publish(ctx, inc); err != nil {
			p.logger.ErrorContext(ctx, "failed to publish incident",
				"incident_id", inc.ID,
				"sink", p.sink.Name(),
				"error", err)
			continue
		}
		p.metrics.ReconciliationPublished(p.sink.Name())

		if err := p.repo.MarkPublished(ctx, inc.ID, time.Now()); err != nil {
			p.logger.ErrorContext(ctx, "failed to mark incident as published",
				"incident_id", inc.ID,
				"error", err)
			continue
		}
		published++
	}
	return published, nil
}
