// Package sqlite is the single-node UserRepository used for local runs and
// tests, built on sqlx over mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/artem13815/accounts/pkg/auth"
)

type userRow struct {
	ID           uuid.UUID `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	IsAdmin      bool      `db:"is_admin"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) toDomain() auth.User {
	return auth.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		IsAdmin:      r.IsAdmin,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

func fromDomain(u auth.User) userRow {
	updated := u.UpdatedAt
	if updated.IsZero() {
		updated = u.CreatedAt
	}
	return userRow{
		ID:           u.ID,
		Username:     u.Username,
		Email:        auth.NormalizeEmail(u.Email),
		PasswordHash: u.PasswordHash,
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    updated.UTC(),
	}
}

const selectUser = `SELECT id, username, email, password_hash, is_admin, created_at, updated_at FROM users`

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user auth.User) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, is_admin, created_at, updated_at)
		VALUES (:id, :username, :email, :password_hash, :is_admin, :created_at, :updated_at)
	`, fromDomain(user))
	return mapWriteErr(err)
}

func (r *UserRepository) Update(ctx context.Context, user auth.User) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE users
		SET username = :username, email = :email, password_hash = :password_hash,
			is_admin = :is_admin, updated_at = :updated_at
		WHERE id = :id
	`, fromDomain(user))
	if err != nil {
		return mapWriteErr(err)
	}
	return requireRow(res)
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (auth.User, error) {
	return r.get(ctx, selectUser+` WHERE id = ?`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (auth.User, error) {
	return r.get(ctx, selectUser+` WHERE email = ?`, auth.NormalizeEmail(email))
}

func (r *UserRepository) get(ctx context.Context, query string, arg any) (auth.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.User{}, auth.ErrNotFound
		}
		return auth.User{}, fmt.Errorf("get user: %w", err)
	}
	return row.toDomain(), nil
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]auth.User, error) {
	if limit <= 0 {
		limit = -1 // no limit in SQLite
	}
	if offset < 0 {
		offset = 0
	}
	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, selectUser+` ORDER BY created_at, id LIMIT ? OFFSET ?`, limit, offset); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]auth.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toDomain())
	}
	return users, nil
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ? AND is_admin = 0`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	// Nothing deleted: either the id is unknown or it belongs to an admin.
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if exists {
		return auth.ErrAdminProtected
	}
	return auth.ErrNotFound
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return auth.ErrUserAlreadyExists
	}
	return fmt.Errorf("write user: %w", err)
}
