package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies case lifecycle transitions.
type EventType string

const (
	EventCreated  EventType = "created"
	EventReviewed EventType = "reviewed"
	EventRerun    EventType = "rerun"
)

// Event is emitted from domain logic whenever a case's status changes. Keep
// it transport-agnostic so stores and sinks can fan out. Events are
// append-only: never mutated, never deleted.
type Event struct {
	ID          uuid.UUID
	CaseID      uuid.UUID
	Type        EventType
	Description string
	Timestamp   time.Time
}
