package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/gigmap/internal/core/domain"
)

// Subjects
const (
	// SubjectMarkerPrefix is followed by the command op (create, update, destroy).
	SubjectMarkerPrefix  = "gigmap.markers."
	SubjectMarkersAll    = "gigmap.markers.>"
	SubjectEventsChanged = "gigmap.events.changed"

	streamEvents = "GIGMAP_EVENTS"
)

// EventsChanged is the payload published when the event collection changes.
type EventsChanged struct {
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
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

	return &Publisher{conn: conn, js: js}, nil
}

func ensureStreams(js nats.JetStreamContext) error {
	streams := []nats.StreamConfig{
		{
			Name:      streamEvents,
			Subjects:  []string{"gigmap.events.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}
	return nil
}

// PublishMarkerCommand fans a marker command out to live map clients.
// Commands are not persisted; a reconnecting client reloads /v1/markers.
func (p *Publisher) PublishMarkerCommand(ctx context.Context, cmd domain.MarkerCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return p.conn.Publish(SubjectMarkerPrefix+cmd.Op, data)
}

// PublishEventsChanged announces that the event collection changed.
func (p *Publisher) PublishEventsChanged(ctx context.Context, reason string) error {
	data, err := json.Marshal(EventsChanged{Reason: reason, At: time.Now().UTC()})
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectEventsChanged, data, nats.Context(ctx))
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection (e.g. for the WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
