package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sandeepkv93/support-space-backend/internal/domain"
	"github.com/sandeepkv93/support-space-backend/internal/observability"
	"github.com/sandeepkv93/support-space-backend/internal/repository"
	"github.com/sandeepkv93/support-space-backend/internal/security"
)

type AuthService struct {
	users  repository.UserRepository
	hasher *security.PasswordHasher
	logger *slog.Logger
	now    func() time.Time
}

func NewAuthService(users repository.UserRepository, hasher *security.PasswordHasher, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:  users,
		hasher: hasher,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateUser registers a new active account. Only the bcrypt hash of the
// password is stored.
func (s *AuthService) CreateUser(ctx context.Context, email, password, name string, isAdmin bool) (*domain.User, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		return nil, ErrDuplicateEmail
	case err != nil && !errors.Is(err, repository.ErrUserNotFound):
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
		IsActive:     true,
	}
	// A concurrent registration can still win the race; the unique index
	// catches it and the repository reports ErrDuplicateEmail.
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.InfoContext(ctx, "user created", "user_id", user.ID, "is_admin", user.IsAdmin)
	return user, nil
}

// AuthenticateUser returns (nil, nil) for an unknown email, an inactive
// account and a wrong password alike. Every path pays one bcrypt comparison.
func (s *AuthService) AuthenticateUser(ctx context.Context, email, password string) (*domain.User, error) {
	email = NormalizeEmail(email)
	user, err := s.users.FindActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.VerifyDummy(password)
			observability.RecordAuthLogin(ctx, "rejected")
			return nil, nil
		}
		observability.RecordAuthLogin(ctx, "error")
		return nil, fmt.Errorf("lookup active user: %w", err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		observability.RecordAuthLogin(ctx, "rejected")
		return nil, nil
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		observability.RecordAuthLogin(ctx, "error")
		return nil, fmt.Errorf("update last login: %w", err)
	}
	user.LastLoginAt = &now
	user.UpdatedAt = now
	observability.RecordAuthLogin(ctx, "success")
	return user, nil
}
