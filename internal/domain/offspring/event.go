// internal/domain/offspring/event.go
package offspring

import "time"

// EventType classifies an audit entry.
type EventType string

const (
	EventAdvance           EventType = "LIFECYCLE_ADVANCE"
	EventAutoAdvance       EventType = "LIFECYCLE_AUTO_ADVANCE"
	EventRewind            EventType = "LIFECYCLE_REWIND"
	EventDissolve          EventType = "LIFECYCLE_DISSOLVE"
	EventMilestoneRecorded EventType = "MILESTONE_RECORDED"
)

// Event is an append-only audit record owned by a group. It is never updated or deleted
// and is never used to derive the current status.
// Corresponds to the 'lifecycle_events' table.
type Event struct {
	ID         string
	GroupID    string
	Type       EventType
	Field      string
	OccurredAt time.Time
	Before     string
	After      string
	Notes      string
}
