// Package reconcile keeps a durable record of card payments that were captured
// without an order, and forwards those records to the support pipeline.
package reconcile

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Incident is one captured payment with no order behind it.
type Incident struct {
	ID        string
	AttemptID string
	PaymentID string
	// Mocked marks demo authorizations where no money actually moved.
	Mocked       bool
	Amount       decimal.Decimal
	Currency     string
	OrderPayload json.RawMessage
	Reason       string
	CreatedAt    time.Time
	PublishedAt  *time.Time
}

// message is the published form of an incident.
type message struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	AttemptID string          `json:"attempt_id"`
	PaymentID string          `json:"payment_id"`
	Mocked    bool            `json:"mocked"`
	Amount    string          `json:"amount"`
	Currency  string          `json:"currency"`
	Reason    string          `json:"reason"`
	Order     json.RawMessage `json:"order"`
	CreatedAt time.Time       `json:"created_at"`
}

const EventType = "PaymentCapturedOrderFailed"

func encode(inc *Incident) ([]byte, error) {
	order := inc.OrderPayload
	if len(order) == 0 {
		order = json.RawMessage("null")
	}
	return json.Marshal(message{
		ID:        inc.ID,
		EventType: EventType,
		AttemptID: inc.AttemptID,
		PaymentID: inc.PaymentID,
		Mocked:    inc.Mocked,
		Amount:    inc.Amount.String(),
		Currency:  inc.Currency,
		Reason:    inc.Reason,
		Order:     order,
		CreatedAt: inc.CreatedAt.UTC(),
	})
}
