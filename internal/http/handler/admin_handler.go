package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sandeepkv93/support-space-backend/internal/http/middleware"
	"github.com/sandeepkv93/support-space-backend/internal/http/response"
	"github.com/sandeepkv93/support-space-backend/internal/observability"
	"github.com/sandeepkv93/support-space-backend/internal/repository"
	"github.com/sandeepkv93/support-space-backend/internal/service"
)

type AdminHandler struct {
	users    service.UserServiceInterface
	sessions service.SessionServiceInterface
	logger   *slog.Logger
}

func NewAdminHandler(users service.UserServiceInterface, sessions service.SessionServiceInterface, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{users: users, sessions: sessions, logger: logger}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if _, err := h.sessions.RequireAdmin(r); err != nil {
		middleware.WriteGuardError(w, r, err)
		return
	}
	q := r.URL.Query()
	page, err := parseOptionalInt(q.Get("page"))
	if err != nil {
		badRequest(w, r, "invalid page")
		return
	}
	pageSize, err := parseOptionalInt(q.Get("page_size"))
	if err != nil {
		badRequest(w, r, "invalid page_size")
		return
	}
	isActive, err := parseOptionalBool(q.Get("is_active"))
	if err != nil {
		badRequest(w, r, "invalid is_active")
		return
	}
	isAdmin, err := parseOptionalBool(q.Get("is_admin"))
	if err != nil {
		badRequest(w, r, "invalid is_admin")
		return
	}

	result, err := h.users.List(r.Context(), repository.UserListQuery{
		PageRequest: repository.PageRequest{Page: page, PageSize: pageSize},
		SortBy:      q.Get("sort_by"),
		SortOrder:   q.Get("sort_order"),
		Email:       q.Get("email"),
		IsActive:    isActive,
		IsAdmin:     isAdmin,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list users failed", "error", err)
		response.InternalError(w, r)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, err := h.sessions.RequireAdmin(r)
	if err != nil {
		middleware.WriteGuardError(w, r, err)
		return
	}
	userID, err := parseUintParam(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	var patch service.UserPatch
	if err := decodeJSON(r, &patch); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	if patch.Empty() {
		badRequest(w, r, "is_active or is_admin is required")
		return
	}

	user, err := h.users.Update(r.Context(), actor.ID, userID, patch)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrSelfModification):
		response.Error(w, r, http.StatusConflict, response.CodeSelfModification, service.ErrSelfModification.Error(), nil)
		return
	case errors.Is(err, service.ErrUserNotFound):
		response.Error(w, r, http.StatusNotFound, response.CodeNotFound, "user not found", nil)
		return
	default:
		h.logger.ErrorContext(r.Context(), "update user failed", "user_id", userID, "error", err)
		response.InternalError(w, r)
		return
	}
	observability.Audit(r, "admin.user.updated",
		"actor_id", actor.ID, "user_id", userID,
		"is_active", user.IsActive, "is_admin", user.IsAdmin,
	)
	response.JSON(w, r, http.StatusOK, user)
}

func (h *AdminHandler) CleanupSessions(w http.ResponseWriter, r *http.Request) {
	actor, err := h.sessions.RequireAdmin(r)
	if err != nil {
		middleware.WriteGuardError(w, r, err)
		return
	}
	n, err := h.sessions.CleanupExpiredSessions(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "manual session cleanup failed", "error", err)
		response.InternalError(w, r)
		return
	}
	observability.RecordSessionCleanup(r.Context(), "admin", n)
	observability.Audit(r, "admin.sessions.cleanup", "actor_id", actor.ID, "deleted", n)
	response.JSON(w, r, http.StatusOK, map[string]int64{"deleted": n})
}
