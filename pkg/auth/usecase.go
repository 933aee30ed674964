package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AuthUseCase describes authentication/registration behavior.
type AuthUseCase interface {
	Register(ctx context.Context, username, email, password string) (AuthResult, error)
	Login(ctx context.Context, email, password string) (AuthResult, error)
}

type AuthResult struct {
	User  User
	Token SessionToken
}

type authService struct {
	repo    UserRepository
	hasher  PasswordHasher
	tokens  TokenIssuer
	log     logrus.FieldLogger
	metrics MetricsRecorder
	now     func() time.Time

	// placeholder is compared against when the email is unknown.
	placeholder string
}

// Option tunes optional collaborators of the auth service.
type Option func(*authService)

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *authService) { s.log = l }
}

func WithMetrics(m MetricsRecorder) Option {
	return func(s *authService) { s.metrics = m }
}

// NewAuthService returns default implementation of AuthUseCase.
func NewAuthService(repo UserRepository, hasher PasswordHasher, tokens TokenIssuer, opts ...Option) AuthUseCase {
	s := &authService{
		repo:    repo,
		hasher:  hasher,
		tokens:  tokens,
		log:     logrus.StandardLogger(),
		metrics: nopRecorder{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	// Hashed up front so the first unknown-email login costs the same as the rest.
	if h, err := hasher.Hash(uuid.NewString()); err != nil {
		s.log.WithError(err).Warn("placeholder hash unavailable")
	} else {
		s.placeholder = h
	}
	return s
}

func (s *authService) Register(ctx context.Context, username, email, password string) (AuthResult, error) {
	username = strings.TrimSpace(username)
	email = NormalizeEmail(email)
	if username == "" || email == "" || password == "" {
		s.metrics.ObserveAuth("register", "invalid")
		return AuthResult{}, ValidationError("username, email and password are required")
	}

	// Fast path only: the repository's unique constraint settles concurrent registrations.
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		s.metrics.ObserveAuth("register", "conflict")
		return AuthResult{}, ErrUserAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return AuthResult{}, fmt.Errorf("lookup user: %w", err)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return AuthResult{}, err
	}

	now := s.now().UTC()
	user := User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			s.metrics.ObserveAuth("register", "conflict")
			return AuthResult{}, ErrUserAlreadyExists
		}
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}
	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}

	s.metrics.ObserveAuth("register", "success")
	s.log.WithField("user_id", user.ID.String()).Info("user registered")
	return AuthResult{User: user, Token: token}, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		s.metrics.ObserveAuth("login", "invalid")
		return AuthResult{}, ValidationError("email and password are required")
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return AuthResult{}, fmt.Errorf("lookup user: %w", err)
		}
		// Unknown emails pay for one comparison too, so they look like a wrong password.
		s.hasher.Verify(password, s.placeholder)
		s.metrics.ObserveAuth("login", "rejected")
		return AuthResult{}, ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		s.metrics.ObserveAuth("login", "rejected")
		s.log.WithField("user_id", user.ID.String()).Debug("login rejected")
		return AuthResult{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	s.metrics.ObserveAuth("login", "success")
	return AuthResult{User: user, Token: token}, nil
}
