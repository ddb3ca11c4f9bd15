package domain

import (
	"time"

	"github.com/google/uuid"
)

// Webhook is a registered subscription endpoint with an event-type filter.
// An empty EventTypes slice subscribes to every event.
type Webhook struct {
	ID         uuid.UUID `json:"id" db:"id"`
	URL        string    `json:"url" db:"url"`
	EventTypes []string  `json:"event_types" db:"event_types"`
	IsEnabled  bool      `json:"is_enabled" db:"is_enabled"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Matches reports whether the webhook should receive the given event type.
func (w *Webhook) Matches(eventType EventType) bool {
	if !w.IsEnabled {
		return false
	}
	if len(w.EventTypes) == 0 {
		return true
	}
	for _, t := range w.EventTypes {
		if t == string(eventType) {
			return true
		}
	}
	return false
}
