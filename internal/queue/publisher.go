// Package queue wraps the NATS subject log-processor publishes domains to
// and queue-processor durably consumes from.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Message is the wire payload published for each candidate domain.
type Message struct {
	Domain    string `json:"domain"`
	Timestamp int64  `json:"timestamp"`
}

// Publisher wraps a *nats.Conn for log-processor's producer side.
// Durability and redelivery are the consumer's concern (the stream's
// retention policy), so Publish is a plain fire-and-forget nc.Publish, not
// a JetStream PublishAsync.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher wraps an already-connected *nats.Conn.
func NewPublisher(nc *nats.Conn, subject string) *Publisher {
	return &Publisher{nc: nc, subject: subject}
}

// Publish marshals domain into a Message and publishes it to the subject.
func (p *Publisher) Publish(ctx context.Context, domain string) error {
	_ = ctx // nats.Conn.Publish has no context parameter; kept for interface symmetry
	payload, err := json.Marshal(Message{Domain: domain, Timestamp: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("queue: marshal message: %w", err)
	}
	if err := p.nc.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("queue: publish: %w", err)
	}
	return nil
}
