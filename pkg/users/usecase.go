// Package users holds profile and administration operations on user records.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/artem13815/accounts/pkg/auth"
)

// ProfileUpdate is a partial update of the caller's own record. Empty fields
// keep the stored value; Password is only applied when it is not blank.
type ProfileUpdate struct {
	Username string
	Email    string
	Password string
}

// AdminUpdate is a partial update performed by an admin. IsAdmin changes only
// when it was present in the request.
type AdminUpdate struct {
	Username string
	Email    string
	IsAdmin  *bool
}

// UseCase covers everything an authenticated caller can do with user records.
type UseCase interface {
	Profile(ctx context.Context, id uuid.UUID) (auth.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (auth.User, error)
	List(ctx context.Context, limit, offset int) ([]auth.User, error)
	Get(ctx context.Context, id uuid.UUID) (auth.User, error)
	Update(ctx context.Context, id uuid.UUID, upd AdminUpdate) (auth.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	EnsureAdmin(ctx context.Context, username, email, password string) (auth.User, error)
}

type service struct {
	repo        auth.UserRepository
	hasher      auth.PasswordHasher
	invalidator auth.IdentityInvalidator
	log         logrus.FieldLogger
	now         func() time.Time
}

func NewService(repo auth.UserRepository, hasher auth.PasswordHasher, invalidator auth.IdentityInvalidator, log logrus.FieldLogger) UseCase {
	if invalidator == nil {
		invalidator = auth.NopInvalidator{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &service{repo: repo, hasher: hasher, invalidator: invalidator, log: log, now: time.Now}
}

func (s *service) Profile(ctx context.Context, id uuid.UUID) (auth.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (auth.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return auth.User{}, err
	}
	mergeNames(&user, upd.Username, upd.Email)
	if strings.TrimSpace(upd.Password) != "" {
		hash, err := s.hasher.Hash(upd.Password)
		if err != nil {
			return auth.User{}, err
		}
		user.PasswordHash = hash
	}
	return s.save(ctx, user)
}

func (s *service) List(ctx context.Context, limit, offset int) ([]auth.User, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (auth.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, upd AdminUpdate) (auth.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return auth.User{}, err
	}
	mergeNames(&user, upd.Username, upd.Email)
	if upd.IsAdmin != nil {
		user.IsAdmin = *upd.IsAdmin
	}
	return s.save(ctx, user)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.log.WithField("user_id", id.String()).Info("user deleted")
	return nil
}

// EnsureAdmin creates the bootstrap admin unless a user with that email
// already exists; an existing user is returned untouched. If that user is not
// an admin the deployment has no bootstrap admin, which is logged as a warning.
func (s *service) EnsureAdmin(ctx context.Context, username, email, password string) (auth.User, error) {
	username = strings.TrimSpace(username)
	email = auth.NormalizeEmail(email)
	if username == "" || email == "" || password == "" {
		return auth.User{}, auth.ValidationError("admin username, email and password are required")
	}
	existing, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		if !existing.IsAdmin {
			s.log.WithFields(logrus.Fields{
				"user_id": existing.ID.String(),
				"email":   existing.Email,
			}).Warn("ADMIN_EMAIL belongs to a non-admin account, no admin was created")
		}
		return existing, nil
	}
	if !errors.Is(err, auth.ErrNotFound) {
		return auth.User{}, fmt.Errorf("lookup admin: %w", err)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return auth.User{}, err
	}
	now := s.now().UTC()
	admin := auth.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, admin); err != nil {
		return auth.User{}, err
	}
	s.log.WithField("user_id", admin.ID.String()).Info("bootstrap admin created")
	return admin, nil
}

func (s *service) save(ctx context.Context, user auth.User) (auth.User, error) {
	user.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return auth.User{}, err
	}
	s.invalidate(ctx, user.ID)
	return user, nil
}

func (s *service) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.invalidator.Invalidate(ctx, id); err != nil {
		s.log.WithError(err).WithField("user_id", id.String()).Warn("identity cache invalidation failed")
	}
}

func mergeNames(user *auth.User, username, email string) {
	if v := strings.TrimSpace(username); v != "" {
		user.Username = v
	}
	if v := auth.NormalizeEmail(email); v != "" {
		user.Email = v
	}
}
