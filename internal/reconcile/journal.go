package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_storefront/internal/backend"
	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/google/uuid"
)

type Recorder interface {
	Record(ctx context.Context, inc *Incident) error
}

// Journal turns checkout escalations into stored incidents. It never calls the
// payment or order services again.
type Journal struct {
	repo   Recorder
	logger *slog.Logger
	now    func() time.Time
}

func NewJournal(repo Recorder, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{repo: repo, logger: logger, now: time.Now}
}

func (j *Journal) Escalate(ctx context.Context, e checkout.Escalation) error {
	payload, err := backend.MarshalOrder(e.Draft)
	if err != nil {
		return fmt.Errorf("encode order payload: %w", err)
	}

	reason := checkout.ErrPaymentCapturedOrderFailed.Error()
	if e.Cause != nil {
		reason = e.Cause.Error()
	}

	inc := &Incident{
		ID:           uuid.NewString(),
		AttemptID:    e.AttemptID,
		PaymentID:    e.Payment.ID,
		Mocked:       e.Payment.Mocked,
		Amount:       e.Draft.Prices.TotalPrice,
		Currency:     e.Currency,
		OrderPayload: payload,
		Reason:       reason,
		CreatedAt:    j.now(),
	}
	if err := j.repo.Record(ctx, inc); err != nil {
		return fmt.Errorf("record incident: %w", err)
	}

	j.logger.InfoContext(ctx, "reconciliation incident recorded",
		"incident_id", inc.ID,
		"attempt_id", inc.AttemptID,
		"payment_id", inc.PaymentID,
		"mocked", inc.Mocked)
	return nil
}
