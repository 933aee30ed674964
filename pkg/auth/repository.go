package auth

//go:generate mockgen -source=repository.go -destination=mocks/mock_repository.go -package=mocks

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Common errors used by repository/use cases
var (
	ErrNotFound           = errors.New("not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAdminProtected     = errors.New("admin users cannot be deleted")
)

// ValidationError reports missing or malformed input.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// UserRepository abstracts persistence concerns from the domain layer.
// Implementations must enforce email uniqueness atomically and report a
// collision as ErrUserAlreadyExists; a missing row is ErrNotFound.
type UserRepository interface {
	Create(ctx context.Context, user User) error
	Update(ctx context.Context, user User) error
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	// List returns users ordered by creation time; limit <= 0 means no limit.
	List(ctx context.Context, limit, offset int) ([]User, error)
	// Delete removes a non-admin user. The admin check and the removal are one
	// write: ErrAdminProtected for an admin, ErrNotFound for a missing id.
	Delete(ctx context.Context, id uuid.UUID) error
}
