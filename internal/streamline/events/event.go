// Package events publishes one message per successful mutation to Kafka and
// consumes them back into the audit log.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType names the mutation an Event records.
type EventType string

const (
	Created     EventType = "created"
	Updated     EventType = "updated"
	Deleted     EventType = "deleted"
	Deactivated EventType = "deactivated"
)

// Event describes one mutation. Data is the entity after the change, or
// before it for deletions.
type Event struct {
	Type       EventType `json:"type"`
	Resource   string    `json:"resource"`
	ResourceID uuid.UUID `json:"resourceId"`
	Actor      string    `json:"actor"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data,omitempty"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType EventType, resource string, id uuid.UUID, actor string, data any) Event {
	return Event{
		Type:       eventType,
		Resource:   resource,
		ResourceID: id,
		Actor:      actor,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Handler processes one consumed event.
type Handler func(ctx context.Context, event Event) error
