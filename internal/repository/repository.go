package repository

import (
	"context"
	"errors"

	"github.com/huriachi/collectiv/internal/entity"
)

var (
	// ErrUserNotFound is returned when no user row matches the requested id.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateField is returned when an insert or update trips one of the
	// unique keys on email or username. The validation pre-check is advisory
	// only; this constraint is the source of truth.
	ErrDuplicateField = errors.New("email or username already in use")
)

// UserRepository owns persistence of user rows.
type UserRepository interface {
	GetAll(ctx context.Context) ([]*entity.User, error)
	GetByID(ctx context.Context, id int) (*entity.User, error)

	// Create hashes the plaintext password, inserts the row and fills in the
	// assigned id.
	Create(ctx context.Context, user *entity.User, password string) (*entity.User, error)

	// Update persists all fields by id. An empty password leaves the stored
	// hash untouched; a non-empty one is re-hashed and written.
	Update(ctx context.Context, user *entity.User, password string) (*entity.User, error)

	// Delete removes the row. Deleting an id that does not exist is not an
	// error.
	Delete(ctx context.Context, id int) error

	// IsFieldUnique reports whether no row has field = value, or the one row
	// that does currently holds original. The original value lets an update
	// keep its own email or username without tripping the check.
	IsFieldUnique(ctx context.Context, field, value, original string) (bool, error)

	// Reset wipes the table and reloads the seed dataset. Administrative use
	// only.
	Reset(ctx context.Context) error
}
