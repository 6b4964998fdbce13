package service

import (
	"context"
	"net/http"

	"github.com/sandeepkv93/support-space-backend/internal/domain"
	"github.com/sandeepkv93/support-space-backend/internal/repository"
)

type AuthServiceInterface interface {
	CreateUser(ctx context.Context, email, password, name string, isAdmin bool) (*domain.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*domain.User, error)
}

type SessionServiceInterface interface {
	CreateSession(ctx context.Context, w http.ResponseWriter, r *http.Request, userID uint, isAdmin bool) (string, error)
	GetSessionUser(ctx context.Context, token string) (*domain.AuthUser, error)
	Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error
	RequireAuth(r *http.Request) (*domain.AuthUser, error)
	RequireAdmin(r *http.Request) (*domain.AuthUser, error)
	CleanupExpiredSessions(ctx context.Context) (int64, error)
	ListActiveSessions(ctx context.Context, userID uint, currentToken string) ([]SessionView, error)
	RevokeSession(ctx context.Context, userID, sessionID uint) error
}

type UserServiceInterface interface {
	List(ctx context.Context, query repository.UserListQuery) (repository.PageResult[domain.User], error)
	Update(ctx context.Context, actorID, userID uint, patch UserPatch) (*domain.User, error)
	Summary(ctx context.Context) (DashboardSummary, error)
}

var (
	_ AuthServiceInterface    = (*AuthService)(nil)
	_ SessionServiceInterface = (*SessionService)(nil)
	_ UserServiceInterface    = (*UserService)(nil)
	_ LoginThrottle           = (*LocalLoginThrottle)(nil)
	_ LoginThrottle           = (*RedisLoginThrottle)(nil)
)
