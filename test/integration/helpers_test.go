package integration

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/support-space-backend/internal/config"
	"github.com/sandeepkv93/support-space-backend/internal/di"
	"github.com/sandeepkv93/support-space-backend/internal/security"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	baseURL string
	cfg     *config.Config
	tools   *di.AdminTools
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AppEnv:                  "test",
		DatabaseDriver:          "sqlite",
		DatabaseURL:             "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared",
		DatabaseMaxOpenConns:    4,
		DatabaseMaxIdleConns:    4,
		DatabaseConnMaxLifetime: time.Minute,
		SessionSecret:           "integration-secret-integration-secret",
		SessionCleanupSchedule:  "@every 1h",
		RedisPrefix:             "itest",
		LoginMaxFailures:        3,
		LoginFailureWindow:      time.Minute,
		AuthRateLimitRPM:        1000,
		ReadinessTimeout:        time.Second,
		ReadinessCacheTTL:       time.Second,
		ShutdownTimeout:         time.Second,
		ReadHeaderTimeout:       time.Second,
	}
}

// newAuthTestServer wires the whole application against an in-memory sqlite
// database and serves it over a real listener.
func newAuthTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, cleanupApp, err := di.InitializeApp(t.Context(), cfg, logger, nil)
	if err != nil {
		t.Fatalf("initialize app: %v", err)
	}
	tools, cleanupTools, err := di.InitializeAdminTools(t.Context(), cfg, logger)
	if err != nil {
		cleanupApp()
		t.Fatalf("initialize admin tools: %v", err)
	}
	srv := httptest.NewServer(a.Server.Handler)
	t.Cleanup(func() {
		srv.Close()
		cleanupTools()
		cleanupApp()
	})
	return &testServer{baseURL: srv.URL, cfg: cfg, tools: tools}
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar:     jar,
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func doJSON(t *testing.T, client *http.Client, method, target string, body any) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(t.Context(), method, target, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			var syntaxErr *json.SyntaxError
			if !errors.As(err, &syntaxErr) {
				t.Fatalf("decode envelope: %v", err)
			}
		}
	}
	return resp, env
}

func postForm(t *testing.T, client *http.Client, target string, form url.Values) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	_ = resp.Body.Close()
	return resp
}

func get(t *testing.T, client *http.Client, target string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, target, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	_ = resp.Body.Close()
	return resp
}

func cookieValue(t *testing.T, client *http.Client, baseURL string) string {
	t.Helper()
	u, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("parse base url: %v", err)
	}
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == security.SessionCookieName {
			return c.Value
		}
	}
	return ""
}

func register(t *testing.T, ts *testServer, client *http.Client, email, password, name string) {
	t.Helper()
	resp, env := doJSON(t, client, http.MethodPost, ts.baseURL+"/api/v1/auth/register", map[string]string{
		"email": email, "password": password, "name": name,
	})
	if resp.StatusCode != http.StatusCreated || !env.Success {
		t.Fatalf("register %s failed: status=%d env=%+v", email, resp.StatusCode, env)
	}
}

func login(t *testing.T, ts *testServer, client *http.Client, email, password string) {
	t.Helper()
	resp, env := doJSON(t, client, http.MethodPost, ts.baseURL+"/api/v1/auth/login", map[string]string{
		"email": email, "password": password,
	})
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("login %s failed: status=%d env=%+v", email, resp.StatusCode, env)
	}
}
