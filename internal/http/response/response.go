package response

import (
	"encoding/json"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Code is the machine-readable error code carried in the envelope.
type Code string

const (
	CodeAuthenticationRequired Code = "AUTHENTICATION_REQUIRED"
	CodeAdminAccessRequired    Code = "ADMIN_ACCESS_REQUIRED"
	CodeInvalidCredentials     Code = "INVALID_CREDENTIALS"
	CodeTooManyAttempts        Code = "TOO_MANY_ATTEMPTS"
	CodeRateLimited            Code = "RATE_LIMITED"
	CodeValidation             Code = "VALIDATION_ERROR"
	CodeBadRequest             Code = "BAD_REQUEST"
	CodeEmailTaken             Code = "EMAIL_TAKEN"
	CodeSelfModification       Code = "SELF_MODIFICATION"
	CodeNotFound               Code = "NOT_FOUND"
	CodeCrossOrigin            Code = "CROSS_ORIGIN_REQUEST"
	CodeDependencyUnready      Code = "DEPENDENCY_UNREADY"
	CodeInternal               Code = "INTERNAL_ERROR"
)

const internalErrorMessage = "internal server error"

type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
	Meta    meta      `json:"meta"`
}

type apiError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type meta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	write(w, status, envelope{Success: true, Data: data, Meta: buildMeta(r)})
}

func Error(w http.ResponseWriter, r *http.Request, status int, code Code, message string, details any) {
	write(w, status, envelope{Error: &apiError{Code: code, Message: message, Details: details}, Meta: buildMeta(r)})
}

// InternalError hides the cause; callers log it before responding.
func InternalError(w http.ResponseWriter, r *http.Request) {
	Error(w, r, http.StatusInternalServerError, CodeInternal, internalErrorMessage, nil)
}

func Unauthorized(w http.ResponseWriter, r *http.Request, code Code, message string) {
	Error(w, r, http.StatusUnauthorized, code, message, nil)
}

func write(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func buildMeta(r *http.Request) meta {
	id := chimiddleware.GetReqID(r.Context())
	if id == "" {
		id = r.Header.Get("X-Request-Id")
	}
	if id == "" {
		id = "req-unknown"
	}
	return meta{RequestID: id, Timestamp: time.Now().UTC()}
}
