package integration

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
)

type sessionView struct {
	ID        uint   `json:"id"`
	IsCurrent bool   `json:"is_current"`
	UserAgent string `json:"user_agent"`
	IP        string `json:"ip"`
}

func TestSessionManagementListAndRevokeByDevice(t *testing.T) {
	ts := newAuthTestServer(t, testConfig(t))
	laptop := newClient(t)
	phone := newClient(t)

	register(t, ts, laptop, "session-mgmt@example.com", "Passw0rd", "Session Manager")
	login(t, ts, phone, "session-mgmt@example.com", "Passw0rd")

	resp, env := doJSON(t, phone, http.MethodGet, ts.baseURL+"/api/v1/me/sessions", nil)
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("list sessions failed: status=%d success=%v", resp.StatusCode, env.Success)
	}
	var sessions []sessionView
	if err := json.Unmarshal(env.Data, &sessions); err != nil {
		t.Fatalf("decode sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 active sessions, got %d", len(sessions))
	}
	var currentCount int
	var laptopSessionID uint
	for _, s := range sessions {
		if s.IP == "" {
			t.Fatalf("expected client ip recorded, got %+v", s)
		}
		if s.IsCurrent {
			currentCount++
			continue
		}
		laptopSessionID = s.ID
	}
	if currentCount != 1 || laptopSessionID == 0 {
		t.Fatalf("expected one current and one other session, got %+v", sessions)
	}

	resp, env = doJSON(t, phone, http.MethodDelete, ts.baseURL+"/api/v1/me/sessions/"+strconv.FormatUint(uint64(laptopSessionID), 10), nil)
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("revoke session failed: status=%d success=%v", resp.StatusCode, env.Success)
	}

	resp, env = doJSON(t, laptop, http.MethodGet, ts.baseURL+"/api/v1/auth/me", nil)
	if resp.StatusCode != http.StatusUnauthorized || env.Error == nil || env.Error.Message != "Authentication required" {
		t.Fatalf("expected revoked laptop session rejected, got status=%d env=%+v", resp.StatusCode, env)
	}
	resp, _ = doJSON(t, phone, http.MethodGet, ts.baseURL+"/api/v1/auth/me", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected phone session to survive, got %d", resp.StatusCode)
	}
}

func TestSessionManagementLogoutInvalidatesToken(t *testing.T) {
	ts := newAuthTestServer(t, testConfig(t))
	client := newClient(t)
	register(t, ts, client, "logout@example.com", "Passw0rd", "Log Out")
	token := cookieValue(t, client, ts.baseURL)
	if token == "" {
		t.Fatal("expected session cookie after register")
	}

	resp, _ := doJSON(t, client, http.MethodPost, ts.baseURL+"/api/v1/auth/logout", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout failed: %d", resp.StatusCode)
	}
	if got := cookieValue(t, client, ts.baseURL); got != "" {
		t.Fatalf("expected cookie cleared, still have %q", got)
	}

	replay := newClient(t)
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, ts.baseURL+"/api/v1/auth/me", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	res, err := replay.Do(req)
	if err != nil {
		t.Fatalf("replay request: %v", err)
	}
	_ = res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected logged-out token rejected, got %d", res.StatusCode)
	}

	// Logging out again without a session still succeeds.
	resp, _ = doJSON(t, client, http.MethodPost, ts.baseURL+"/api/v1/auth/logout", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second logout failed: %d", resp.StatusCode)
	}
}

func TestSessionManagementRevokeErrors(t *testing.T) {
	ts := newAuthTestServer(t, testConfig(t))
	client := newClient(t)
	register(t, ts, client, "session-errors@example.com", "Passw0rd", "Session Errors")

	resp, _ := doJSON(t, client, http.MethodDelete, ts.baseURL+"/api/v1/me/sessions/not-a-number", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed session id, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, client, http.MethodDelete, ts.baseURL+"/api/v1/me/sessions/999999", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session id, got %d", resp.StatusCode)
	}
}
