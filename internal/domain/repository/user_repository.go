package repository

import (
	"context"
	"errors"

	"github.com/dmarkov/user-microservice/internal/domain/entity"
)

// Storage-level sentinels. Implementations must translate their driver
// errors into these so the service layer can classify failures.
var (
	// ErrNotFound is returned when no row matches the given identifier.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when an insert or update violates the
	// unique email constraint.
	ErrDuplicateEmail = errors.New("duplicate email")
)

// UserRepository defines the persistence gateway for user records.
// Implementations must honor a transaction carried in ctx when present.
type UserRepository interface {
	// Insert persists a new user; storage assigns ID and CreatedAt on u.
	Insert(ctx context.Context, u *entity.User) error
	// Save updates the mutable fields of an existing user by ID.
	Save(ctx context.Context, u *entity.User) error
	FindByID(ctx context.Context, id int64) (*entity.User, error)
	DeleteByID(ctx context.Context, id int64) error
	// Scan returns users in ascending ID order, skipping offset rows and
	// returning at most limit of them, paginated by the store itself.
	Scan(ctx context.Context, offset, limit int) ([]*entity.User, error)
	Count(ctx context.Context) (int, error)
}
