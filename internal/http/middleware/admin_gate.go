package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/sandeepkv93/support-space-backend/internal/observability"
	"github.com/sandeepkv93/support-space-backend/internal/service"
)

const (
	LoginPath        = "/auth/login"
	UnauthorizedPath = "/unauthorized"
)

// AdminGate guards server-rendered admin pages. Anonymous callers are sent to
// the login page with the original path, non-admins to /unauthorized. A
// storage failure is treated like a missing session.
func AdminGate(guard SessionGuard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := guard.RequireAdmin(r)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(WithAuthUser(r.Context(), user)))
			case errors.Is(err, service.ErrAdminAccessRequired):
				observability.RecordGuardDecision(r.Context(), "admin_gate", "forbidden")
				http.Redirect(w, r, UnauthorizedPath, http.StatusFound)
			default:
				if !errors.Is(err, service.ErrAuthenticationRequired) {
					slog.ErrorContext(r.Context(), "admin gate session check failed", "path", r.URL.Path, "error", err)
				}
				observability.RecordGuardDecision(r.Context(), "admin_gate", "redirect_login")
				http.Redirect(w, r, LoginRedirectURL(r.URL.Path), http.StatusFound)
			}
		})
	}
}

func LoginRedirectURL(path string) string {
	return LoginPath + "?" + url.Values{"redirect": {path}}.Encode()
}
