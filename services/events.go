package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/podboard/backend/models"
)

// UserEventsSubject carries models.UserEvent messages as JSON.
const UserEventsSubject = "dashboard.users.events"

// EventPublisher announces user changes to interested dashboards.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.UserEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.UserEvent) error { return nil }

// NATSPublisher publishes user events on UserEventsSubject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher returns a publisher over an established connection.
func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: UserEventsSubject}
}

func (p *NATSPublisher) Publish(_ context.Context, ev models.UserEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal user event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish user event: %w", err)
	}
	return nil
}
