// Package events carries domain events between the intake, cases,
// scheduling, and notification modules without coupling them. Publishers
// never know who listens; a conversation can escalate, materialize a case,
// and trigger mail while each module only sees its own events.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event.
type Event interface {
	// EventName uniquely identifies the event type, e.g.
	// "triage.conversation.escalated".
	EventName() string
	// OccurredAt reports when the event happened.
	OccurredAt() time.Time
}

// BaseEvent carries the fields shared by all events. Embed it.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a base event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler processes events it subscribed to. A handler registered for
// several event names must type-switch on the concrete event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes events to subscribed handlers.
type Bus interface {
	// Publish fans the event out asynchronously. Handler failures are
	// logged, never surfaced; side effects must not block or fail the
	// publishing operation.
	Publish(ctx context.Context, event Event)

	// PublishSync runs every handler inline and returns their combined
	// errors. The worker uses it so delivery failures drive retries.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler for the given EventName value.
	Subscribe(eventName string, handler Handler)
}
