package domain

import "time"

// EventType identifies a catalog or import lifecycle event.
type EventType string

const (
	EventProductCreated  EventType = "ProductCreated"
	EventProductUpdated  EventType = "ProductUpdated"
	EventProductDeleted  EventType = "ProductDeleted"
	EventImportStarted   EventType = "ImportStarted"
	EventImportCompleted EventType = "ImportCompleted"
	EventTest            EventType = "TestEvent"
)

// Event is the envelope delivered to webhook subscribers. Events are
// transient: they exist only for the duration of their delivery attempts.
type Event struct {
	EventType EventType      `json:"event_type"`
	Timestamp string         `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// NewEvent builds an event stamped with the current UTC time.
func NewEvent(eventType EventType, data map[string]any) Event {
	return Event{
		EventType: eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	}
}
