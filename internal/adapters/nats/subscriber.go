package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	durable string
	subs    []*nats.Subscription
}

// NewSubscriber creates a subscriber. Every process that keeps its own
// marker set needs a distinct durable name so each one sees every change.
func NewSubscriber(url, durable string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if err := ensureStreams(js); err != nil {
		return nil, err
	}
	return &Subscriber{conn: conn, js: js, durable: durable}, nil
}

// SubscribeEventsChanged calls handler for every events-changed message.
// Failed or malformed messages are redelivered up to three times.
func (s *Subscriber) SubscribeEventsChanged(ctx context.Context, handler func(ctx context.Context, reason string) error) error {
	sub, err := s.js.Subscribe(SubjectEventsChanged, func(msg *nats.Msg) {
		var ev EventsChanged
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			_ = msg.Nak()
			return
		}
		if err := handler(ctx, ev.Reason); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(s.durable),
		nats.ManualAck(),
		nats.MaxDeliver(3),
		nats.DeliverNew(),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
