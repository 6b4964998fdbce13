package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sandeepkv93/support-space-backend/internal/http/middleware"
	"github.com/sandeepkv93/support-space-backend/internal/http/response"
	"github.com/sandeepkv93/support-space-backend/internal/observability"
	"github.com/sandeepkv93/support-space-backend/internal/security"
	"github.com/sandeepkv93/support-space-backend/internal/service"
)

type UserHandler struct {
	sessions service.SessionServiceInterface
	logger   *slog.Logger
}

func NewUserHandler(sessions service.SessionServiceInterface, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{sessions: sessions, logger: logger}
}

func (h *UserHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	user, err := h.sessions.RequireAuth(r)
	if err != nil {
		middleware.WriteGuardError(w, r, err)
		return
	}
	views, err := h.sessions.ListActiveSessions(r.Context(), user.ID, security.SessionTokenFromRequest(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list sessions failed", "user_id", user.ID, "error", err)
		response.InternalError(w, r)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"sessions": views})
}

func (h *UserHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	user, err := h.sessions.RequireAuth(r)
	if err != nil {
		middleware.WriteGuardError(w, r, err)
		return
	}
	sessionID, err := parseUintParam(r, "session_id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if err := h.sessions.RevokeSession(r.Context(), user.ID, sessionID); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.Error(w, r, http.StatusNotFound, response.CodeNotFound, "session not found", nil)
			return
		}
		h.logger.ErrorContext(r.Context(), "revoke session failed", "user_id", user.ID, "error", err)
		response.InternalError(w, r)
		return
	}
	observability.Audit(r, "session.revoked", "user_id", user.ID, "session_id", sessionID)
	response.JSON(w, r, http.StatusOK, map[string]any{"revoked": true, "session_id": sessionID})
}
