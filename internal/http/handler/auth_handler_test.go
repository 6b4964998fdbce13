package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/sandeepkv93/support-space-backend/internal/domain"
)

func TestAuthHandlerRegisterLoginMeLogout(t *testing.T) {
	env := newHandlerEnv(t)

	rr := env.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": "a@x.com", "password": "Passw0rd", "name": "Ann Lee",
	}, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%s)", rr.Code, rr.Body.String())
	}
	cookie := sessionCookie(t, rr)
	if !cookie.HttpOnly || cookie.SameSite != http.SameSiteLaxMode || cookie.MaxAge != 604800 {
		t.Fatalf("unexpected cookie attributes: %+v", cookie)
	}

	rr = env.do(t, http.MethodGet, "/api/v1/auth/me", nil, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", rr.Code)
	}
	var me domain.AuthUser
	if err := json.Unmarshal(decodeTestEnvelope(t, rr).Data, &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.Email != "a@x.com" || me.Name != "Ann Lee" || me.IsAdmin {
		t.Fatalf("unexpected identity: %+v", me)
	}

	rr = env.do(t, http.MethodPost, "/api/v1/auth/logout", nil, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rr.Code)
	}
	rr = env.do(t, http.MethodPost, "/api/v1/auth/logout", nil, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("second logout: expected 200, got %d", rr.Code)
	}

	env2 := expectErrorCode(t, env.do(t, http.MethodGet, "/api/v1/auth/me", nil, cookie), http.StatusUnauthorized, "AUTHENTICATION_REQUIRED")
	if env2.Error.Message != "Authentication required" {
		t.Fatalf("unexpected message %q", env2.Error.Message)
	}

	cookie = env.loginCookie(t, "A@X.com")
	if rr := env.do(t, http.MethodGet, "/api/v1/auth/me", nil, cookie); rr.Code != http.StatusOK {
		t.Fatalf("me after login: expected 200, got %d", rr.Code)
	}
}

func TestAuthHandlerRegisterErrors(t *testing.T) {
	env := newHandlerEnv(t)
	env.seedUser(t, "a@x.com", "Ann Lee", false)

	rr := env.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": "a@x.com", "password": "Passw0rd", "name": "Ann Lee",
	}, nil)
	expectErrorCode(t, rr, http.StatusConflict, "EMAIL_TAKEN")

	rr = env.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": "b@x.com", "password": "short", "name": "Bob Lee",
	}, nil)
	e := expectErrorCode(t, rr, http.StatusBadRequest, "VALIDATION_ERROR")
	if e.Error.Details["field"] != "password" {
		t.Fatalf("expected password field, got %+v", e.Error.Details)
	}

	rr = env.do(t, http.MethodPost, "/api/v1/auth/register", map[string]any{
		"email": "b@x.com", "password": "Passw0rd", "name": "Bob Lee", "is_admin": true,
	}, nil)
	expectErrorCode(t, rr, http.StatusBadRequest, "BAD_REQUEST")
}

func TestAuthHandlerLoginFailuresLookIdentical(t *testing.T) {
	env := newHandlerEnv(t)
	env.seedUser(t, "a@x.com", "Ann Lee", false)

	unknown := expectErrorCode(t, env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "nobody@x.com", "password": "Passw0rd",
	}, nil), http.StatusUnauthorized, "INVALID_CREDENTIALS")
	wrong := expectErrorCode(t, env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "a@x.com", "password": "Wr0ngpass",
	}, nil), http.StatusUnauthorized, "INVALID_CREDENTIALS")
	if unknown.Error.Message != wrong.Error.Message || wrong.Error.Message != "invalid email or password" {
		t.Fatalf("messages differ: %q vs %q", unknown.Error.Message, wrong.Error.Message)
	}
}

func TestAuthHandlerLoginThrottle(t *testing.T) {
	env := newHandlerEnv(t)
	env.seedUser(t, "a@x.com", "Ann Lee", false)
	bad := map[string]string{"email": "a@x.com", "password": "Wr0ngpass"}

	for i := 0; i < 2; i++ {
		expectErrorCode(t, env.do(t, http.MethodPost, "/api/v1/auth/login", bad, nil), http.StatusUnauthorized, "INVALID_CREDENTIALS")
	}
	rr := env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "a@x.com", "password": "Passw0rd"}, nil)
	expectErrorCode(t, rr, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS")
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Fatal("throttled login must not set a session")
	}
}

func TestAuthHandlerLoginRequiresFields(t *testing.T) {
	env := newHandlerEnv(t)
	expectErrorCode(t, env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "a@x.com"}, nil), http.StatusBadRequest, "VALIDATION_ERROR")
	expectErrorCode(t, env.do(t, http.MethodPost, "/api/v1/auth/login", nil, nil), http.StatusBadRequest, "BAD_REQUEST")
}
