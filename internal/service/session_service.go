package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sandeepkv93/support-space-backend/internal/domain"
	"github.com/sandeepkv93/support-space-backend/internal/observability"
	"github.com/sandeepkv93/support-space-backend/internal/repository"
	"github.com/sandeepkv93/support-space-backend/internal/security"
)

const maxUserAgentLen = 512

type SessionView struct {
	ID        uint      `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	UserAgent string    `json:"user_agent"`
	IP        string    `json:"ip"`
	IsCurrent bool      `json:"is_current"`
}

// SessionCookieWriter writes and clears the browser session cookie.
type SessionCookieWriter interface {
	SetSession(w http.ResponseWriter, token string) error
	ClearSession(w http.ResponseWriter)
}

type SessionService struct {
	codec    *security.TokenCodec
	sessions repository.SessionRepository
	cookies  SessionCookieWriter
	logger   *slog.Logger
	now      func() time.Time
}

func NewSessionService(
	codec *security.TokenCodec,
	sessions repository.SessionRepository,
	cookies SessionCookieWriter,
	logger *slog.Logger,
) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		codec:    codec,
		sessions: sessions,
		cookies:  cookies,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for expiry arithmetic and store checks.
// The codec carries its own clock.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = func() time.Time { return now().UTC() }
	return s
}

// CreateSession issues a token, persists its row and sets the session
// cookie. The raw token is returned for callers without a browser.
func (s *SessionService) CreateSession(ctx context.Context, w http.ResponseWriter, r *http.Request, userID uint, isAdmin bool) (string, error) {
	now := s.now()
	token, err := s.codec.Sign(userID, isAdmin, security.SessionTTL)
	if err != nil {
		return "", fmt.Errorf("%w: sign token: %v", ErrSessionCreation, err)
	}

	if n, err := s.sessions.DeleteExpiredForUser(ctx, userID, now); err != nil {
		s.logger.WarnContext(ctx, "expired session sweep failed", "user_id", userID, "error", err)
	} else if n > 0 {
		observability.RecordSessionCleanup(ctx, "login", n)
	}

	row := &domain.Session{
		UserID:    userID,
		TokenHash: security.HashSessionToken(token),
		ExpiresAt: now.Add(security.SessionTTL),
		CreatedAt: now,
	}
	if r != nil {
		row.UserAgent = truncate(r.UserAgent(), maxUserAgentLen)
		row.IP = security.ClientIP(r)
	}
	if err := s.sessions.Create(ctx, row); err != nil {
		return "", fmt.Errorf("%w: store session: %v", ErrSessionCreation, err)
	}

	if w != nil {
		if err := s.cookies.SetSession(w, token); err != nil {
			if _, delErr := s.sessions.DeleteByTokenHash(ctx, row.TokenHash); delErr != nil {
				s.logger.ErrorContext(ctx, "orphan session cleanup failed", "session_id", row.ID, "error", delErr)
			}
			return "", fmt.Errorf("%w: set cookie: %v", ErrSessionCreation, err)
		}
	}
	return token, nil
}

// GetSessionUser resolves a token to the identity behind it. An invalid,
// expired, revoked or deactivated session yields (nil, nil); only storage
// failures are returned as errors.
func (s *SessionService) GetSessionUser(ctx context.Context, token string) (*domain.AuthUser, error) {
	if token == "" {
		observability.RecordSessionValidation(ctx, "missing")
		return nil, nil
	}
	if _, err := s.codec.Verify(token); err != nil {
		observability.RecordSessionValidation(ctx, "invalid_token")
		return nil, nil
	}
	user, err := s.sessions.FindIdentityByTokenHash(ctx, security.HashSessionToken(token), s.now())
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			observability.RecordSessionValidation(ctx, "not_found")
			return nil, nil
		}
		observability.RecordSessionValidation(ctx, "error")
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	observability.RecordSessionValidation(ctx, "valid")
	return user, nil
}

// Logout deletes the row behind the request's token, if any, and clears the
// cookie. Calling it twice is harmless.
func (s *SessionService) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if w != nil {
		s.cookies.ClearSession(w)
	}
	token := security.SessionTokenFromRequest(r)
	if token == "" {
		observability.RecordAuthLogout(ctx, "no_session")
		return nil
	}
	if _, err := s.sessions.DeleteByTokenHash(ctx, security.HashSessionToken(token)); err != nil {
		observability.RecordAuthLogout(ctx, "error")
		return fmt.Errorf("delete session: %w", err)
	}
	observability.RecordAuthLogout(ctx, "success")
	return nil
}

func (s *SessionService) RequireAuth(r *http.Request) (*domain.AuthUser, error) {
	ctx := r.Context()
	user, err := s.GetSessionUser(ctx, security.SessionTokenFromRequest(r))
	if err != nil {
		observability.RecordGuardDecision(ctx, "auth", "error")
		return nil, err
	}
	if user == nil {
		observability.RecordGuardDecision(ctx, "auth", "unauthenticated")
		return nil, ErrAuthenticationRequired
	}
	observability.RecordGuardDecision(ctx, "auth", "allowed")
	return user, nil
}

func (s *SessionService) RequireAdmin(r *http.Request) (*domain.AuthUser, error) {
	user, err := s.RequireAuth(r)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin {
		observability.RecordGuardDecision(r.Context(), "admin", "forbidden")
		return nil, ErrAdminAccessRequired
	}
	observability.RecordGuardDecision(r.Context(), "admin", "allowed")
	return user, nil
}

func (s *SessionService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.CleanupExpired(ctx, s.now())
	if err != nil {
		return n, fmt.Errorf("cleanup expired sessions: %w", err)
	}
	return n, nil
}

func (s *SessionService) CountActiveSessions(ctx context.Context) (int64, error) {
	return s.sessions.CountActive(ctx, s.now())
}

func (s *SessionService) ListActiveSessions(ctx context.Context, userID uint, currentToken string) ([]SessionView, error) {
	sessions, err := s.sessions.ListActiveByUserID(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}
	currentHash := ""
	if currentToken != "" {
		currentHash = security.HashSessionToken(currentToken)
	}
	views := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, SessionView{
			ID:        session.ID,
			CreatedAt: session.CreatedAt,
			ExpiresAt: session.ExpiresAt,
			UserAgent: session.UserAgent,
			IP:        session.IP,
			IsCurrent: currentHash != "" && session.TokenHash == currentHash,
		})
	}
	return views, nil
}

// RevokeSession deletes one of the user's own sessions. Another user's
// session id reports ErrSessionNotFound.
func (s *SessionService) RevokeSession(ctx context.Context, userID, sessionID uint) error {
	return s.sessions.DeleteByIDForUser(ctx, userID, sessionID)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}
