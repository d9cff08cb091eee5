// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

// Package auth gates the dashboard behind local accounts.
//
// Service registers and verifies users against the repository with bcrypt
// hashes. Sessions are opaque random tokens kept in a SessionStore
// (in-memory or BadgerDB) and carried in the eden_session cookie by
// SessionMiddleware.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/eden/internal/database"
	"github.com/tomtom215/eden/internal/logging"
	"github.com/tomtom215/eden/internal/metrics"
	"github.com/tomtom215/eden/internal/models"
	"github.com/tomtom215/eden/internal/validation"
)

// Flash-ready messages for rejected requests.
const (
	MsgPasswordTooShort   = "Password must be at least 8 characters."
	MsgPasswordTooLong    = "Password must be at most 72 bytes (fewer characters if it uses accented or non-Latin letters)."
	MsgUsernameTaken      = "Username already exists."
	MsgInvalidCredentials = "Invalid username or password."
)

// MinPasswordLength is the shortest accepted password, in characters.
const MinPasswordLength = 8

// MaxPasswordBytes is bcrypt's input limit.
const MaxPasswordBytes = 72

// ErrInvalidCredentials is the single login failure. It does not reveal
// whether the username exists.
var ErrInvalidCredentials = errors.New(MsgInvalidCredentials)

// ValidationError rejects a registration request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UserRepository is the account storage the service needs.
// database.Repository satisfies it.
type UserRepository interface {
	FindUser(ctx context.Context, username string) (*models.UserAccount, error)
	CreateUser(ctx context.Context, username, passwordHash string) (int64, error)
}

// Service registers and authenticates dashboard users.
type Service struct {
	users UserRepository
	cost  int

	dummyOnce sync.Once
	dummyHash []byte
}

// Option configures a Service.
type Option func(*Service)

// WithBcryptCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// NewService creates the auth service.
func NewService(users UserRepository, opts ...Option) *Service {
	s := &Service{users: users, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type registration struct {
	Username string `validate:"required,max=64,username"`
	Password string `validate:"min=8"`
}

// Register creates an account. It returns a *ValidationError for a bad
// username, a short password, or a duplicate username.
func (s *Service) Register(ctx context.Context, username, password string) (*models.UserAccount, error) {
	if err := validateRegistration(username, password); err != nil {
		metrics.RecordAuthAttempt("register", false)
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id, err := s.users.CreateUser(ctx, username, string(hash))
	if errors.Is(err, database.ErrUserExists) {
		metrics.RecordAuthAttempt("register", false)
		return nil, &ValidationError{Field: "username", Message: MsgUsernameTaken}
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	metrics.RecordAuthAttempt("register", true)
	logging.Info().Str("username", username).Int64("user_id", id).Msg("User registered")
	return &models.UserAccount{ID: id, Username: username}, nil
}

func validateRegistration(username, password string) error {
	verrs := validation.ValidateStruct(&registration{Username: username, Password: password})
	if verrs != nil {
		first := verrs.First()
		if first.Field() == "Password" {
			return &ValidationError{Field: "password", Message: MsgPasswordTooShort}
		}
		return &ValidationError{Field: "username", Message: "Username " + usernameProblem(first.Tag())}
	}
	// validator counts runes; bcrypt rejects more than 72 bytes.
	if len(password) > MaxPasswordBytes {
		return &ValidationError{Field: "password", Message: MsgPasswordTooLong}
	}
	return nil
}

func usernameProblem(tag string) string {
	switch tag {
	case "required":
		return "is required."
	case "max":
		return "must be at most 64 characters."
	default:
		return "may only contain letters, digits, '.', '_' and '-'."
	}
}

// Login verifies credentials. Unknown users and wrong passwords both
// return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (*models.UserAccount, error) {
	user, err := s.users.FindUser(ctx, username)
	if errors.Is(err, database.ErrUserNotFound) {
		// keep response time independent of whether the user exists
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		metrics.RecordAuthAttempt("login", false)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		metrics.RecordAuthAttempt("login", false)
		return nil, ErrInvalidCredentials
	}

	metrics.RecordAuthAttempt("login", true)
	return user, nil
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("eden-placeholder-password"), s.cost)
	})
	return s.dummyHash
}

// SeedAdmin creates the configured admin account unless it already
// exists. Empty credentials disable seeding.
func (s *Service) SeedAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	_, err := s.users.FindUser(ctx, username)
	if err == nil {
		logging.Debug().Str("username", username).Msg("Admin account already present")
		return nil
	}
	if !errors.Is(err, database.ErrUserNotFound) {
		return fmt.Errorf("seed admin: %w", err)
	}

	if _, err := s.Register(ctx, username, password); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) && verr.Message == MsgUsernameTaken {
			return nil
		}
		return fmt.Errorf("seed admin: %w", err)
	}
	logging.Info().Str("username", username).Msg("Seeded admin account")
	return nil
}
