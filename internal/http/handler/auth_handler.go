package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sandeepkv93/support-space-backend/internal/http/middleware"
	"github.com/sandeepkv93/support-space-backend/internal/http/response"
	"github.com/sandeepkv93/support-space-backend/internal/observability"
	"github.com/sandeepkv93/support-space-backend/internal/service"
)

type AuthHandler struct {
	flow loginFlow
}

func NewAuthHandler(
	auth service.AuthServiceInterface,
	sessions service.SessionServiceInterface,
	throttle service.LoginThrottle,
	logger *slog.Logger,
) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{flow: loginFlow{auth: auth, sessions: sessions, throttle: throttle, logger: logger}}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	user, err := h.flow.auth.CreateUser(r.Context(), req.Email, req.Password, req.Name, false)
	if err != nil {
		var ve *service.ValidationError
		switch {
		case errors.As(err, &ve):
			response.Error(w, r, http.StatusBadRequest, response.CodeValidation, ve.Message, map[string]string{"field": ve.Field})
		case errors.Is(err, service.ErrDuplicateEmail):
			response.Error(w, r, http.StatusConflict, response.CodeEmailTaken, "an account with this email already exists", nil)
		default:
			h.flow.logger.ErrorContext(r.Context(), "registration failed", "error", err)
			response.InternalError(w, r)
		}
		return
	}
	if _, err := h.flow.sessions.CreateSession(r.Context(), w, r, user.ID, user.IsAdmin); err != nil {
		h.flow.logger.ErrorContext(r.Context(), "session creation after registration failed", "user_id", user.ID, "error", err)
		response.InternalError(w, r)
		return
	}
	observability.Audit(r, "auth.register", "user_id", user.ID)
	response.JSON(w, r, http.StatusCreated, map[string]any{"user": authUserOf(user)})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		response.Error(w, r, http.StatusBadRequest, response.CodeValidation, "email and password are required", nil)
		return
	}
	user, wait, err := h.flow.login(w, r, req.Email, req.Password)
	switch {
	case err == nil:
		response.JSON(w, r, http.StatusOK, map[string]any{"user": authUserOf(user)})
	case errors.Is(err, errLoginThrottled):
		w.Header().Set("Retry-After", retryAfterSeconds(wait))
		response.Error(w, r, http.StatusTooManyRequests, response.CodeTooManyAttempts, "too many failed login attempts, try again later", nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(w, r, response.CodeInvalidCredentials, service.ErrInvalidCredentials.Error())
	default:
		h.flow.logger.ErrorContext(r.Context(), "login failed", "error", err)
		response.InternalError(w, r)
	}
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.flow.sessions.Logout(r.Context(), w, r); err != nil {
		h.flow.logger.ErrorContext(r.Context(), "logout failed", "error", err)
		response.InternalError(w, r)
		return
	}
	observability.Audit(r, "auth.logout")
	response.JSON(w, r, http.StatusOK, map[string]bool{"logged_out": true})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.flow.sessions.RequireAuth(r)
	if err != nil {
		middleware.WriteGuardError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, user)
}
