package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
)

const (
	DefaultNatsStream  = "STOREFRONT_RECONCILIATION"
	DefaultNatsSubject = "storefront.reconciliation"
)

type streamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NatsSink publishes to "<prefix>.<payment id>" on JetStream. The incident id is
// the message id, so the stream drops redeliveries inside its dedup window.
type NatsSink struct {
	js     streamPublisher
	prefix string
}

func NewNatsSink(js streamPublisher, subjectPrefix string) *NatsSink {
	if subjectPrefix == "" {
		subjectPrefix = DefaultNatsSubject
	}
	return &NatsSink{js: js, prefix: strings.TrimSuffix(subjectPrefix, ".")}
}

// EnsureStream creates the stream capturing the sink's subjects if it is missing.
func EnsureStream(ctx context.Context, js jetstream.JetStream, name, subjectPrefix string) error {
	if name == "" {
		name = DefaultNatsStream
	}
	if subjectPrefix == "" {
		subjectPrefix = DefaultNatsSubject
	}
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     name,
		Subjects: []string{strings.TrimSuffix(subjectPrefix, ".") + ".>"},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", name, err)
	}
	return nil
}

func (s *NatsSink) Name() string { return "nats" }

func (s *NatsSink) Subject(paymentID string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, paymentID)
	if token == "" {
		token = "unknown"
	}
	return s.prefix + "." + token
}

func (s *NatsSink) Publish(ctx context.Context, inc *Incident) error {
	data, err := encode(inc)
	if err != nil {
		return fmt.Errorf("encode incident: %w", err)
	}
	subject := s.Subject(inc.PaymentID)
	if _, err := s.js.Publish(ctx, subject, data, jetstream.WithMsgID(inc.ID)); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Close is a no-op; the connection belongs to whoever opened it.
func (s *NatsSink) Close() error { return nil }
