package service

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sandeepkv93/support-space-backend/internal/database"
	"github.com/sandeepkv93/support-space-backend/internal/domain"
	"github.com/sandeepkv93/support-space-backend/internal/repository"
	"github.com/sandeepkv93/support-space-backend/internal/security"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testSessionSecret = "service-test-secret-0123456789abcdef"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testServices struct {
	db       *gorm.DB
	clock    *testClock
	users    repository.UserRepository
	sessions repository.SessionRepository
	auth     *AuthService
	session  *SessionService
	admin    *UserService
}

func newServicesForTest(t *testing.T) *testServices {
	t.Helper()
	db := newServiceDBForTest(t)
	clock := newTestClock()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	codec := security.NewTokenCodec(testSessionSecret, security.WithClock(clock.Now))
	auth := NewAuthService(users, security.NewPasswordHasher(bcrypt.MinCost), logger)
	auth.now = clock.Now
	session := NewSessionService(codec, sessions, security.NewCookieManager(false), logger).WithClock(clock.Now)

	return &testServices{
		db:       db,
		clock:    clock,
		users:    users,
		sessions: sessions,
		auth:     auth,
		session:  session,
		admin:    NewUserService(users, session, logger),
	}
}

func newServiceDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.Session{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func mustCreateUser(t *testing.T, svc *testServices, email, name string, isAdmin bool) *domain.User {
	t.Helper()
	u, err := svc.auth.CreateUser(t.Context(), email, "Passw0rd", name, isAdmin)
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func mustCreateSessionToken(t *testing.T, svc *testServices, user *domain.User) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	token, err := svc.session.CreateSession(t.Context(), httptest.NewRecorder(), req, user.ID, user.IsAdmin)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return token
}

func requestWithSession(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: token})
	}
	return req
}
