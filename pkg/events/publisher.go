// Package events provides a small in-process publish/subscribe bus used to
// decouple the transport layer from session lifecycle handling.
package events

import "sync"

// EventType represents the type of event
type EventType string

// Define event types
const (
	EventSessionCreated EventType = "SESSION_CREATED"
	EventPlayerJoined   EventType = "PLAYER_JOINED"
	EventMoveProcessed  EventType = "MOVE_PROCESSED"
	EventDoubleOffered  EventType = "DOUBLE_OFFERED"
	EventClockUpdated   EventType = "CLOCK_UPDATED"
	EventTimeUp         EventType = "TIME_UP"
	EventGameOver       EventType = "GAME_OVER"
	EventMatchUpdated   EventType = "MATCH_UPDATED"
	EventSessionRetired EventType = "SESSION_RETIRED"
	EventDeadlineSet    EventType = "DEADLINE_SET"

	// EventConnectionClosed is not tied to a session; its payload is the
	// closed connection's uuid.UUID.
	EventConnectionClosed EventType = "CONNECTION_CLOSED"
)

// EventAll subscribes a handler to every event type.
const EventAll EventType = "*"

// Event represents an event in the system
type Event struct {
	Type      EventType
	SessionID string // Optional, empty for non-session events
	Payload   interface{}
}

// Handler is a function that processes events
type Handler func(event Event)

// Publisher is the central event publisher
type Publisher struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Handler
}

// NewPublisher creates a new event publisher
func NewPublisher() *Publisher {
	return &Publisher{
		subscribers: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for a specific event type
func (p *Publisher) Subscribe(eventType EventType, handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.subscribers[eventType] = append(p.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for all event types
func (p *Publisher) SubscribeAll(handler Handler) {
	p.Subscribe(EventAll, handler)
}

// Publish broadcasts an event to its subscribers and to all-event handlers.
// Handlers run concurrently; publishers never block on them.
func (p *Publisher) Publish(event Event) {
	p.mu.RLock()
	handlers := append([]Handler(nil), p.subscribers[event.Type]...)
	handlers = append(handlers, p.subscribers[EventAll]...)
	p.mu.RUnlock()

	for _, handler := range handlers {
		go handler(event)
	}
}
