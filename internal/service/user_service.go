package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sandeepkv93/support-space-backend/internal/domain"
	"github.com/sandeepkv93/support-space-backend/internal/observability"
	"github.com/sandeepkv93/support-space-backend/internal/repository"
)

var ErrSelfModification = errors.New("admins cannot deactivate or demote themselves")

type UserPatch struct {
	IsActive *bool `json:"is_active"`
	IsAdmin  *bool `json:"is_admin"`
}

func (p UserPatch) Empty() bool { return p.IsActive == nil && p.IsAdmin == nil }

type DashboardSummary struct {
	Users          int64 `json:"users"`
	ActiveSessions int64 `json:"active_sessions"`
}

type UserService struct {
	users    repository.UserRepository
	sessions *SessionService
	logger   *slog.Logger
}

func NewUserService(users repository.UserRepository, sessions *SessionService, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{users: users, sessions: sessions, logger: logger}
}

func (s *UserService) List(ctx context.Context, query repository.UserListQuery) (repository.PageResult[domain.User], error) {
	query.Email = NormalizeEmail(query.Email)
	return s.users.ListPaged(ctx, query)
}

// Update applies an admin's changes to another account. Deactivation takes
// effect on the target's next request because sessions are always re-joined
// against the users table.
func (s *UserService) Update(ctx context.Context, actorID, userID uint, patch UserPatch) (*domain.User, error) {
	if actorID == userID {
		if (patch.IsActive != nil && !*patch.IsActive) || (patch.IsAdmin != nil && !*patch.IsAdmin) {
			return nil, ErrSelfModification
		}
	}
	access := repository.UserAccess{IsActive: patch.IsActive, IsAdmin: patch.IsAdmin}
	if err := s.users.UpdateAccess(ctx, userID, access); err != nil {
		return nil, fmt.Errorf("update access: %w", err)
	}
	if patch.IsActive != nil {
		observability.RecordAdminUserMutation(ctx, activeAction(*patch.IsActive))
	}
	if patch.IsAdmin != nil {
		observability.RecordAdminUserMutation(ctx, adminAction(*patch.IsAdmin))
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user updated by admin",
		"actor_id", actorID, "user_id", userID,
		"is_active", user.IsActive, "is_admin", user.IsAdmin,
	)
	return user, nil
}

func (s *UserService) Summary(ctx context.Context) (DashboardSummary, error) {
	var out DashboardSummary
	var err error
	if out.Users, err = s.users.Count(ctx); err != nil {
		return DashboardSummary{}, fmt.Errorf("count users: %w", err)
	}
	if out.ActiveSessions, err = s.sessions.CountActiveSessions(ctx); err != nil {
		return DashboardSummary{}, fmt.Errorf("count sessions: %w", err)
	}
	return out, nil
}

func activeAction(active bool) string {
	if active {
		return "activate"
	}
	return "deactivate"
}

func adminAction(admin bool) string {
	if admin {
		return "grant_admin"
	}
	return "revoke_admin"
}
