package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"gastos/internal/auth"
	"gastos/internal/storage"
)

var (
	ErrMissingFields      = errors.New("email and password are required")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMissingCredentials = errors.New("no credentials supplied")
	ErrInvalidPassword    = errors.New("invalid password")
)

// LegacyUID is the account used by shared-password logins.
const LegacyUID int64 = 0

type AccountService struct {
	users          storage.UserStore
	legacyPassword string
}

// NewAccountService creates the account service. An empty legacyPassword
// disables shared-password login.
func NewAccountService(users storage.UserStore, legacyPassword string) *AccountService {
	return &AccountService{users: users, legacyPassword: legacyPassword}
}

// Signup registers a user and returns the new uid.
func (s *AccountService) Signup(ctx context.Context, email, password string) (int64, error) {
	if email == "" || password == "" {
		return 0, ErrMissingFields
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.users.CreateUser(ctx, email, hash)
	if errors.Is(err, storage.ErrEmailTaken) {
		return 0, ErrEmailTaken
	}
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User registered", "uid", u.ID)
	return u.ID, nil
}

// Login authenticates by email and password, or, when email is empty, by
// the shared legacy password. legacy reports which path succeeded.
func (s *AccountService) Login(ctx context.Context, email, password string) (uid int64, legacy bool, err error) {
	if email != "" {
		u, err := s.users.UserByEmail(ctx, email)
		if errors.Is(err, storage.ErrNotFound) {
			return 0, false, ErrInvalidCredentials
		}
		if err != nil {
			return 0, false, fmt.Errorf("find user: %w", err)
		}
		if !auth.VerifyPassword(password, u.PasswordHash) {
			return 0, false, ErrInvalidCredentials
		}
		return u.ID, false, nil
	}

	if s.legacyPassword == "" {
		return 0, false, ErrMissingCredentials
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.legacyPassword)) != 1 {
		return 0, false, ErrInvalidPassword
	}
	return LegacyUID, true, nil
}
