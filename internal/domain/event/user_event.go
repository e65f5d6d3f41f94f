// Package event defines the wire contracts published to the message broker.
package event

// Event types emitted on the user lifecycle. Update intentionally emits
// nothing; only creation and deletion are observable downstream.
const (
	UserCreated = "UserCreated"
	UserDeleted = "UserDeleted"
)

// Queue is the well-known queue all user lifecycle events are published to.
const Queue = "user-created-deleted-events"

// UserEvent is the payload downstream consumers receive for every
// successful create/delete.
type UserEvent struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
