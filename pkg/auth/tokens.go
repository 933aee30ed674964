package auth

import (
	"context"

	"github.com/google/uuid"
)

// TokenIssuer abstracts session token creation (e.g., JWT).
// It allows use cases to stay framework-agnostic.
type TokenIssuer interface {
	Issue(ctx context.Context, userID uuid.UUID) (SessionToken, error)
}

// PasswordHasher hides the one-way password hashing scheme.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// MetricsRecorder receives credential workflow outcomes.
type MetricsRecorder interface {
	ObserveAuth(operation, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAuth(string, string) {}
