package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is a domain entity representing a system user.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the acting principal of a single request. It is derived from a
// verified session token plus a repository lookup and never outlives the request.
type Identity struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// SessionToken is an issued bearer token and the moment it stops being valid.
type SessionToken struct {
	Value     string
	ExpiresAt time.Time
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
