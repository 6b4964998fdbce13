package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type decoded struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
	Meta struct {
		RequestID string `json:"request_id"`
	} `json:"meta"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) decoded {
	t.Helper()
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json content type, got %q", ct)
	}
	var out decoded
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rr.Body.String())
	}
	return out
}

func TestJSONEnvelope(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rr := httptest.NewRecorder()

	JSON(rr, req, http.StatusCreated, map[string]string{"email": "a@x.com"})

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	env := decode(t, rr)
	if !env.Success || env.Error != nil || string(env.Data) != `{"email":"a@x.com"}` {
		t.Fatalf("unexpected envelope: %+v data=%s", env, env.Data)
	}
	if env.Meta.RequestID != "req-42" {
		t.Fatalf("expected request id from header, got %q", env.Meta.RequestID)
	}
}

func TestErrorEnvelopeCarriesCodeAndDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", nil)
	rr := httptest.NewRecorder()

	Error(rr, req, http.StatusBadRequest, CodeValidation, "invalid email", map[string]string{"field": "email"})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	env := decode(t, rr)
	if env.Success || env.Error == nil {
		t.Fatalf("expected error envelope, got %+v", env)
	}
	if env.Error.Code != "VALIDATION_ERROR" || env.Error.Message != "invalid email" || env.Error.Details["field"] != "email" {
		t.Fatalf("unexpected error: %+v", env.Error)
	}
	if env.Meta.RequestID != "req-unknown" {
		t.Fatalf("expected fallback request id, got %q", env.Meta.RequestID)
	}
}

func TestErrorHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)

	rr := httptest.NewRecorder()
	Unauthorized(rr, req, CodeAdminAccessRequired, "admin access required")
	env := decode(t, rr)
	if rr.Code != http.StatusUnauthorized || env.Error.Code != string(CodeAdminAccessRequired) {
		t.Fatalf("unexpected unauthorized response: %d %+v", rr.Code, env.Error)
	}

	rr = httptest.NewRecorder()
	InternalError(rr, req)
	env = decode(t, rr)
	if rr.Code != http.StatusInternalServerError || env.Error.Code != "INTERNAL_ERROR" || env.Error.Message != "internal server error" {
		t.Fatalf("unexpected internal error response: %d %+v", rr.Code, env.Error)
	}
}
