package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// DefaultStreamName is the JetStream stream queue-processor expects to find
// (or create) covering the domain-publish subject.
const DefaultStreamName = "DNS_SMART_BLOCK_DOMAINS"

// EnsureStream creates the stream if it doesn't already exist, idempotent
// across restarts.
func EnsureStream(ctx context.Context, js jetstream.JetStream, streamName, subject string) error {
	_, err := js.Stream(ctx, streamName)
	if err == nil {
		return nil
	}
	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{subject},
	})
	if err != nil {
		return fmt.Errorf("queue: create stream %s: %w", streamName, err)
	}
	return nil
}

// NewDurableConsumer binds (creating if necessary) a durable pull consumer
// named "dns-smart-block-<classificationType>" to the stream covering
// subject. AckExplicit and a configurable MaxAckPending (default 1) make
// this a single-flight guarantee per classification type even if the pull
// loop were accidentally made concurrent.
func NewDurableConsumer(ctx context.Context, js jetstream.JetStream, streamName, subject, classificationType string, maxAckPending int) (jetstream.Consumer, error) {
	if maxAckPending <= 0 {
		maxAckPending = 1
	}
	name := "dns-smart-block-" + classificationType
	cons, err := js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		Durable:       name,
		AckPolicy:     jetstream.AckExplicitPolicy,
		FilterSubject: subject,
		MaxAckPending: maxAckPending,
	})
	if err != nil {
		return nil, fmt.Errorf("queue: create durable consumer %s: %w", name, err)
	}
	return cons, nil
}

// PullLoop fetches and hands messages to handle one at a time (batch size 1
// matches MaxAckPending: 1 so the loop never holds more unacked messages
// than the consumer allows), until ctx is canceled.
func PullLoop(ctx context.Context, cons jetstream.Consumer, handle func(context.Context, jetstream.Msg)) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msgs, err := cons.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			continue // timeout on an empty queue is not an error
		}
		for msg := range msgs.Messages() {
			handle(ctx, msg)
		}
		if err := msgs.Error(); err != nil && ctx.Err() == nil {
			continue
		}
	}
}
