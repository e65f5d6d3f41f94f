package entity

import (
	"time"
)

// User is the aggregate root for the user domain.
// ID and CreatedAt are assigned by storage on insert and never change afterwards;
// Email is unique across all users, enforced by the database.
type User struct {
	ID        int64
	Name      string
	Email     string
	Age       int
	CreatedAt time.Time
}
