package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(SeverityChangedEvent{...})
func (b *Bus) Publish(ev Event) {
	// Use type switch to call the generic Publish with the correct type
	switch e := ev.(type) {
	case PipelineStartedEvent:
		event.Publish(b.dispatcher, e)
	case PipelineStoppedEvent:
		event.Publish(b.dispatcher, e)
	case SeverityChangedEvent:
		event.Publish(b.dispatcher, e)
	case EffectChangedEvent:
		event.Publish(b.dispatcher, e)
	case TransformErrorEvent:
		event.Publish(b.dispatcher, e)
	case SourceErrorEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function
// The handler type determines which events it receives (type inference)
// Returns an unsubscribe function
// Usage: unsub := bus.Subscribe(func(e SeverityChangedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(PipelineStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PipelineStoppedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SeverityChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(EffectChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(TransformErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SourceErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}
