package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sandeepkv93/support-space-backend/internal/domain"
	"github.com/sandeepkv93/support-space-backend/internal/http/response"
	"github.com/sandeepkv93/support-space-backend/internal/service"
)

type contextKey string

const (
	AuthUserContextKey contextKey = "auth_user"
)

// SessionGuard resolves the caller behind a request. Both checks hit the
// session store on every call.
type SessionGuard interface {
	RequireAuth(r *http.Request) (*domain.AuthUser, error)
	RequireAdmin(r *http.Request) (*domain.AuthUser, error)
}

// SessionAuth rejects API requests without a live session with a JSON 401.
func SessionAuth(guard SessionGuard) func(http.Handler) http.Handler {
	return guardMiddleware(guard.RequireAuth)
}

// RequireAdmin rejects API requests from non-admins. An anonymous caller and
// a signed-in non-admin get different error codes.
func RequireAdmin(guard SessionGuard) func(http.Handler) http.Handler {
	return guardMiddleware(guard.RequireAdmin)
}

func guardMiddleware(check func(*http.Request) (*domain.AuthUser, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := check(r)
			if err != nil {
				WriteGuardError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAuthUser(r.Context(), user)))
		})
	}
}

// WriteGuardError maps a guard failure onto the JSON envelope.
func WriteGuardError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrAuthenticationRequired):
		response.Unauthorized(w, r, response.CodeAuthenticationRequired, service.ErrAuthenticationRequired.Error())
	case errors.Is(err, service.ErrAdminAccessRequired):
		response.Unauthorized(w, r, response.CodeAdminAccessRequired, service.ErrAdminAccessRequired.Error())
	default:
		slog.ErrorContext(r.Context(), "session resolution failed", "path", r.URL.Path, "error", err)
		response.InternalError(w, r)
	}
}

func WithAuthUser(ctx context.Context, user *domain.AuthUser) context.Context {
	return context.WithValue(ctx, AuthUserContextKey, user)
}

func AuthUserFromContext(ctx context.Context) (*domain.AuthUser, bool) {
	u, ok := ctx.Value(AuthUserContextKey).(*domain.AuthUser)
	return u, ok && u != nil
}
