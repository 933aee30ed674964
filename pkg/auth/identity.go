package auth

import (
	"context"

	"github.com/google/uuid"
)

// IdentityResolver maps a verified token subject to the current identity of
// that user. It returns ErrNotFound when the subject no longer names a user.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, subject string) (Identity, error)
}

// IdentityInvalidator drops any cached identity for a user after its record
// changed.
type IdentityInvalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// NopInvalidator is used when no identity cache is configured.
type NopInvalidator struct{}

func (NopInvalidator) Invalidate(context.Context, uuid.UUID) error { return nil }

type repositoryResolver struct {
	repo UserRepository
}

// NewRepositoryResolver resolves identities straight from the user repository.
func NewRepositoryResolver(repo UserRepository) IdentityResolver {
	return &repositoryResolver{repo: repo}
}

func (r *repositoryResolver) ResolveIdentity(ctx context.Context, subject string) (Identity, error) {
	id, err := uuid.Parse(subject)
	if err != nil {
		return Identity{}, ErrNotFound
	}
	user, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: user.ID, IsAdmin: user.IsAdmin}, nil
}
