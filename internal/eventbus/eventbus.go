// Package eventbus is an in-process fan-out bus. The rolling orchestrator
// publishes window events on it and metrics collectors consume them.
package eventbus

// Event represents an arbitrary event passed on the bus.
type Event any

// EventBus implements a simple publish/subscribe event bus.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// Bus is the default EventBus, an untyped TypedBus.
type Bus struct {
	*TypedBus[Event]
}

// New creates a new Bus.
func New() *Bus { return &Bus{TypedBus: NewTyped[Event]()} }

// NewWithBuffer creates a Bus whose subscribers buffer n events.
func NewWithBuffer(n int) *Bus { return &Bus{TypedBus: NewTypedWithBuffer[Event](n)} }

var _ EventBus = (*Bus)(nil)
