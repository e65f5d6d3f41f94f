package entity

import (
	"fmt"
	"time"
)

// OutboxRecord is a pending lifecycle event written in the same transaction
// as the user mutation that triggered it. A background dispatcher delivers
// records to the broker at-least-once; Key deduplicates redeliveries.
type OutboxRecord struct {
	ID        int64
	Key       string // idempotency key: "<user id>:<event type>"
	EventType string
	UserID    int64
	Name      string
	Email     string
	Attempts  int
	CreatedAt time.Time
}

// OutboxKey builds the idempotency key for a user lifecycle event.
func OutboxKey(userID int64, eventType string) string {
	return fmt.Sprintf("%d:%s", userID, eventType)
}
