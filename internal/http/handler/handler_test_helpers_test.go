package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sandeepkv93/support-space-backend/internal/database"
	"github.com/sandeepkv93/support-space-backend/internal/domain"
	"github.com/sandeepkv93/support-space-backend/internal/repository"
	"github.com/sandeepkv93/support-space-backend/internal/security"
	"github.com/sandeepkv93/support-space-backend/internal/service"
)

type handlerEnv struct {
	db       *gorm.DB
	auth     *service.AuthService
	sessions *service.SessionService
	router   http.Handler
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.Session{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := repository.NewUserRepository(db)
	auth := service.NewAuthService(users, security.NewPasswordHasher(bcrypt.MinCost), logger)
	sessions := service.NewSessionService(
		security.NewTokenCodec("handler-test-secret-0123456789abcdef"),
		repository.NewSessionRepository(db),
		security.NewCookieManager(false),
		logger,
	)
	userSvc := service.NewUserService(users, sessions, logger)
	throttle := service.NewLocalLoginThrottle(service.LoginThrottlePolicy{MaxFailures: 2, Window: time.Minute})

	authH := NewAuthHandler(auth, sessions, throttle, logger)
	userH := NewUserHandler(sessions, logger)
	adminH := NewAdminHandler(userSvc, sessions, logger)
	pageH := NewPageHandler(auth, sessions, userSvc, throttle, logger)

	r := chi.NewRouter()
	r.Post("/api/v1/auth/register", authH.Register)
	r.Post("/api/v1/auth/login", authH.Login)
	r.Post("/api/v1/auth/logout", authH.Logout)
	r.Get("/api/v1/auth/me", authH.Me)
	r.Get("/api/v1/me/sessions", userH.Sessions)
	r.Delete("/api/v1/me/sessions/{session_id}", userH.RevokeSession)
	r.Get("/api/v1/admin/users", adminH.ListUsers)
	r.Patch("/api/v1/admin/users/{id}", adminH.UpdateUser)
	r.Post("/api/v1/admin/sessions/cleanup", adminH.CleanupSessions)
	r.Get("/auth/login", pageH.LoginPage)
	r.Post("/auth/login", pageH.LoginSubmit)
	r.Post("/auth/logout", pageH.LogoutSubmit)
	r.Get("/unauthorized", pageH.Unauthorized)
	r.Get("/admin", pageH.AdminDashboard)

	return &handlerEnv{db: db, auth: auth, sessions: sessions, router: r}
}

func (e *handlerEnv) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *handlerEnv) seedUser(t *testing.T, email, name string, isAdmin bool) *domain.User {
	t.Helper()
	u, err := e.auth.CreateUser(t.Context(), email, "Passw0rd", name, isAdmin)
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}

func (e *handlerEnv) loginCookie(t *testing.T, email string) *http.Cookie {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": email, "password": "Passw0rd"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d (%s)", email, rr.Code, rr.Body.String())
	}
	return sessionCookie(t, rr)
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == security.SessionCookieName && c.MaxAge > 0 {
			return c
		}
	}
	t.Fatalf("no session cookie in response: %v", rr.Header().Values("Set-Cookie"))
	return nil
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
	Meta struct {
		RequestID string `json:"request_id"`
	} `json:"meta"`
}

func decodeTestEnvelope(t *testing.T, rr *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rr.Body.String())
	}
	return env
}

func expectErrorCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) testEnvelope {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d (%s)", status, rr.Code, rr.Body.String())
	}
	env := decodeTestEnvelope(t, rr)
	if env.Success || env.Error == nil || env.Error.Code != code {
		t.Fatalf("expected error code %s, got %+v", code, env.Error)
	}
	return env
}
