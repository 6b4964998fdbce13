package handler

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/sandeepkv93/support-space-backend/internal/domain"
	"github.com/sandeepkv93/support-space-backend/internal/observability"
	"github.com/sandeepkv93/support-space-backend/internal/security"
	"github.com/sandeepkv93/support-space-backend/internal/service"
)

var errLoginThrottled = errors.New("too many failed login attempts")

// loginFlow is shared by the JSON login endpoint and the login form.
type loginFlow struct {
	auth     service.AuthServiceInterface
	sessions service.SessionServiceInterface
	throttle service.LoginThrottle
	logger   *slog.Logger
}

// login authenticates and opens a session. It returns errLoginThrottled
// with the wait, service.ErrInvalidCredentials, or an infrastructure error.
func (f *loginFlow) login(w http.ResponseWriter, r *http.Request, email, password string) (*domain.User, time.Duration, error) {
	ctx := r.Context()
	ip := security.ClientIP(r)

	if wait := f.throttleCheck(ctx, email, ip); wait > 0 {
		observability.RecordLoginThrottle(ctx, "login", "blocked")
		observability.Audit(r, "auth.login.throttled")
		return nil, wait, errLoginThrottled
	}

	user, err := f.auth.AuthenticateUser(ctx, email, password)
	if err != nil {
		return nil, 0, err
	}
	if user == nil {
		if f.throttle != nil {
			if _, err := f.throttle.RegisterFailure(ctx, email, ip); err != nil {
				f.logger.WarnContext(ctx, "login throttle update failed", "error", err)
			}
		}
		observability.Audit(r, "auth.login.failed")
		return nil, 0, service.ErrInvalidCredentials
	}
	if f.throttle != nil {
		if err := f.throttle.Reset(ctx, email, ip); err != nil {
			f.logger.WarnContext(ctx, "login throttle reset failed", "error", err)
		}
	}

	if _, err := f.sessions.CreateSession(ctx, w, r, user.ID, user.IsAdmin); err != nil {
		return nil, 0, err
	}
	observability.Audit(r, "auth.login.succeeded", "user_id", user.ID)
	return user, 0, nil
}

// throttleCheck fails open: an unavailable throttle store must not lock
// every user out.
func (f *loginFlow) throttleCheck(ctx context.Context, email, ip string) time.Duration {
	if f.throttle == nil {
		return 0
	}
	wait, err := f.throttle.Check(ctx, email, ip)
	if err != nil {
		observability.RecordLoginThrottle(ctx, "login", "check_error")
		f.logger.WarnContext(ctx, "login throttle check failed", "error", err)
		return 0
	}
	return wait
}

func retryAfterSeconds(wait time.Duration) string {
	return strconv.Itoa(max(1, int(math.Ceil(wait.Seconds()))))
}

func authUserOf(u *domain.User) domain.AuthUser {
	return domain.AuthUser{ID: u.ID, Email: u.Email, Name: u.Name, IsAdmin: u.IsAdmin}
}
