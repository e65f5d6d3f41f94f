package repository

import (
	"context"

	"github.com/dmarkov/user-microservice/internal/domain/entity"
)

// OutboxRepository stores pending lifecycle events alongside the user table.
type OutboxRepository interface {
	// Append inserts a pending record. Appending the same idempotency key
	// twice is a no-op.
	Append(ctx context.Context, rec *entity.OutboxRecord) error
	// Pending returns undispatched records in ascending ID order.
	Pending(ctx context.Context, limit int) ([]*entity.OutboxRecord, error)
	MarkDispatched(ctx context.Context, id int64) error
	// MarkFailed bumps the attempt counter, leaving the record pending.
	MarkFailed(ctx context.Context, id int64) error
}
