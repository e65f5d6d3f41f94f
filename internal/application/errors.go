package application

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmailTaken reports a duplicate-email conflict. Mapped to 409 at the
	// HTTP boundary.
	ErrEmailTaken = errors.New("user with this email already exists")
	// ErrServiceUnavailable reports an open circuit towards the email
	// service; no network call was attempted.
	ErrServiceUnavailable = errors.New("email service is currently down")
	// ErrInvalidArgument reports negative offset/limit values.
	ErrInvalidArgument = errors.New("offset and limit must be non-negative")
)

// NotFoundError reports that no user exists with the given identifier.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("user with id = %d not found", e.ID)
}

// PublishError reports that the broker did not confirm delivery. At captures
// when the failure was observed.
type PublishError struct {
	At  time.Time
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("failed to send message: %v", e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
