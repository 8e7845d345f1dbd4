// pkg/event/event.go
package event

import (
	"sync"
)

// Type represents the type of event
type Type string

// Simulation event types
const (
	SimulationStarted Type = "simulation_started"
	SimulationStopped Type = "simulation_stopped"
	TrackChanged      Type = "track_changed"
	TrackFallback     Type = "track_fallback"
	VehicleReset      Type = "vehicle_reset"
	SegmentSkipped    Type = "segment_skipped"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

// Subscription is returned by Subscribe. Cancel removes the handler; calling
// it more than once is a no-op.
type Subscription struct {
	ID     uint64
	Type   Type
	Cancel func()
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus manages event subscriptions and dispatching
type Bus struct {
	handlers map[Type][]subscriber
	nextID   uint64
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]subscriber),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], subscriber{id: id, handler: handler})

	var once sync.Once
	return &Subscription{
		ID:   id,
		Type: eventType,
		Cancel: func() {
			once.Do(func() { b.unsubscribe(eventType, id) })
		},
	}
}

func (b *Bus) unsubscribe(eventType Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[eventType]
	for i, s := range subs {
		if s.id == id {
			// Copy so a Publish iterating the old slice is unaffected.
			remaining := make([]subscriber, 0, len(subs)-1)
			remaining = append(remaining, subs[:i]...)
			remaining = append(remaining, subs[i+1:]...)
			if len(remaining) == 0 {
				delete(b.handlers, eventType)
			} else {
				b.handlers[eventType] = remaining
			}
			return
		}
	}
}

// Publish sends an event to all subscribed handlers. Handlers run on the
// publishing goroutine.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	subs := b.handlers[event.GetType()]
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(event)
	}
}

// TrackEvent reports a track selection or fallback.
type TrackEvent struct {
	BaseEvent
	TrackID     string
	RequestedID string
	Barriers    int
	Skipped     int
}

// NewTrackEvent creates a new track event
func NewTrackEvent(eventType Type, source interface{}, trackID, requestedID string) *TrackEvent {
	return &TrackEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		TrackID:     trackID,
		RequestedID: requestedID,
	}
}

// VehicleEvent reports a vehicle placement.
type VehicleEvent struct {
	BaseEvent
	X, Y, Z float64
	Yaw     float64
}

// NewVehicleEvent creates a new vehicle event
func NewVehicleEvent(eventType Type, source interface{}, x, y, z, yaw float64) *VehicleEvent {
	return &VehicleEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		X:   x,
		Y:   y,
		Z:   z,
		Yaw: yaw,
	}
}

// SimulationEvent reports a lifecycle change of the simulation loop.
type SimulationEvent struct {
	BaseEvent
	Tick uint64
}

// NewSimulationEvent creates a new simulation event
func NewSimulationEvent(eventType Type, source interface{}, tick uint64) *SimulationEvent {
	return &SimulationEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		Tick: tick,
	}
}
