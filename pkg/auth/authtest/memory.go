// Package authtest provides an in-memory auth.UserRepository for tests.
package authtest

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/artem13815/accounts/pkg/auth"
)

// MemoryRepository keeps users in a map. Email uniqueness is checked under the
// same lock as the write, like a unique index would.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]auth.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[uuid.UUID]auth.User)}
}

func (r *MemoryRepository) Create(_ context.Context, user auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; ok {
		return auth.ErrUserAlreadyExists
	}
	if r.emailTaken(user.Email, user.ID) {
		return auth.ErrUserAlreadyExists
	}
	r.users[user.ID] = user
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, user auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return auth.ErrNotFound
	}
	if r.emailTaken(user.Email, user.ID) {
		return auth.ErrUserAlreadyExists
	}
	r.users[user.ID] = user
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return auth.User{}, auth.ErrNotFound
	}
	return user, nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	email = auth.NormalizeEmail(email)
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return auth.User{}, auth.ErrNotFound
}

func (r *MemoryRepository) List(_ context.Context, limit, offset int) ([]auth.User, error) {
	r.mu.RLock()
	res := make([]auth.User, 0, len(r.users))
	for _, u := range r.users {
		res = append(res, u)
	}
	r.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID.String() < res[j].ID.String()
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	if offset > len(res) {
		return []auth.User{}, nil
	}
	res = res[offset:]
	if limit > 0 && limit < len(res) {
		res = res[:limit]
	}
	return res, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	if u.IsAdmin {
		return auth.ErrAdminProtected
	}
	delete(r.users, id)
	return nil
}

func (r *MemoryRepository) emailTaken(email string, except uuid.UUID) bool {
	email = auth.NormalizeEmail(email)
	for id, u := range r.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}
