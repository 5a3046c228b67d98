package models

import "time"

// EventType names the semantic notification events emitted after state
// transitions. Delivery is fire-and-forget; a failed dispatch never rolls
// back the transition that produced it.
type EventType string

const (
	EventLeadStageChanged        EventType = "lead.stage-changed"
	EventLeadConverted           EventType = "lead.converted"
	EventApplicationStatusChange EventType = "application.status-changed"
	EventEnrollmentConfirmed     EventType = "enrollment.confirmed"
)

// Event is the payload handed to the notification queue.
type Event struct {
	Type       EventType `json:"type"`
	SchoolID   string    `json:"school_id"`
	EntityID   string    `json:"entity_id"`
	OldState   string    `json:"old_state,omitempty"`
	NewState   string    `json:"new_state"`
	OccurredAt time.Time `json:"occurred_at"`
	ActorID    string    `json:"actor_id,omitempty"`
}
