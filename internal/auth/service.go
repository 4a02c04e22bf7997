package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service errors.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserDisabled       = errors.New("user account is disabled")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Service implements the bearer-token login flow described by the HTTP
// API's /token endpoint: verify a username/password pair against a bcrypt
// hash, then mint and store a new opaque token for subsequent requests.
type Service struct {
	store  *UserStore
	logger *zap.Logger
}

// NewService creates an auth Service.
func NewService(store *UserStore, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Login authenticates a user and issues a new bearer token, invalidating
// any token previously issued to the account.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.ByUsername(ctx, username)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if user.Disabled {
		return "", ErrUserDisabled
	}
	if !CheckPassword(user.PasswordHash, password) {
		s.logger.Warn("login failed", zap.String("username", username))
		return "", ErrInvalidCredentials
	}

	raw, hash, err := GenerateToken()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	if err := s.store.SetToken(ctx, user.ID, hash); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	s.logger.Info("user logged in", zap.String("username", username), zap.String("user_id", user.ID))
	return raw, nil
}

// Authenticate resolves a bearer token to the account that owns it.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (User, error) {
	user, err := s.store.ByTokenHash(ctx, HashToken(rawToken))
	if err != nil {
		return User{}, ErrInvalidToken
	}
	if user.Disabled {
		return User{}, ErrInvalidToken
	}
	return user, nil
}

// Logout revokes the caller's current token.
func (s *Service) Logout(ctx context.Context, userID string) error {
	return s.store.ClearToken(ctx, userID)
}

// ListUsers returns every operator account.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.store.List(ctx)
}

// CreateUser provisions a new account with a bcrypt-hashed password.
func (s *Service) CreateUser(ctx context.Context, username, password string, role Role) (User, error) {
	hash, err := HashPassword(password, 0)
	if err != nil {
		return User{}, err
	}
	user := User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.Create(ctx, user); err != nil {
		return User{}, fmt.Errorf("create user %q: %w", username, err)
	}
	s.logger.Info("user created", zap.String("username", username), zap.String("role", string(role)))
	return user, nil
}
