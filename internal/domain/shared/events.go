package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact recorded by an aggregate after a state change
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	TenantID() uuid.UUID
}

// EventMeta carries the envelope fields every event shares.
// Embed it in concrete events so they satisfy DomainEvent.
type EventMeta struct {
	ID        uuid.UUID `json:"event_id"`
	Type      string    `json:"event_type"`
	At        time.Time `json:"occurred_at"`
	Aggregate uuid.UUID `json:"aggregate_id"`
	Tenant    uuid.UUID `json:"tenant_id"`
}

func (m EventMeta) EventID() uuid.UUID     { return m.ID }
func (m EventMeta) EventType() string      { return m.Type }
func (m EventMeta) OccurredAt() time.Time  { return m.At }
func (m EventMeta) AggregateID() uuid.UUID { return m.Aggregate }
func (m EventMeta) TenantID() uuid.UUID    { return m.Tenant }

// NewEventMeta stamps a fresh event ID onto the envelope
func NewEventMeta(eventType string, aggregateID, tenantID uuid.UUID, at time.Time) EventMeta {
	return EventMeta{
		ID:        uuid.New(),
		Type:      eventType,
		At:        at,
		Aggregate: aggregateID,
		Tenant:    tenantID,
	}
}

// EventHandler reacts to published events.
// Subscribes lists the event types it wants; nil subscribes to everything.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	Subscribes() []string
}

// EventPublisher delivers events to subscribers
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}
