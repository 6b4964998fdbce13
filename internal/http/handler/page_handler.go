package handler

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sandeepkv93/support-space-backend/internal/domain"
	"github.com/sandeepkv93/support-space-backend/internal/http/middleware"
	"github.com/sandeepkv93/support-space-backend/internal/observability"
	"github.com/sandeepkv93/support-space-backend/internal/service"
)

const defaultAfterLogin = "/admin"

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type LoginPageData struct {
	Email    string
	Redirect string
	Error    string
}

type AdminPageData struct {
	User    *domain.AuthUser
	Summary service.DashboardSummary
}

// PageHandler serves the server-rendered pages: the login form, the
// unauthorized notice and the admin dashboard.
type PageHandler struct {
	flow  loginFlow
	users service.UserServiceInterface
}

func NewPageHandler(
	auth service.AuthServiceInterface,
	sessions service.SessionServiceInterface,
	users service.UserServiceInterface,
	throttle service.LoginThrottle,
	logger *slog.Logger,
) *PageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageHandler{
		flow:  loginFlow{auth: auth, sessions: sessions, throttle: throttle, logger: logger},
		users: users,
	}
}

func (h *PageHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "login.html", http.StatusOK, LoginPageData{Redirect: SafeRedirect(r.URL.Query().Get("redirect"))})
}

func (h *PageHandler) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, "login.html", http.StatusBadRequest, LoginPageData{Error: "Invalid form submission."})
		return
	}
	data := LoginPageData{
		Email:    r.PostForm.Get("email"),
		Redirect: SafeRedirect(r.PostForm.Get("redirect")),
	}
	_, wait, err := h.flow.login(w, r, data.Email, r.PostForm.Get("password"))
	switch {
	case err == nil:
		http.Redirect(w, r, data.Redirect, http.StatusSeeOther)
	case errors.Is(err, errLoginThrottled):
		w.Header().Set("Retry-After", retryAfterSeconds(wait))
		data.Error = "Too many failed attempts. Please try again later."
		h.render(w, r, "login.html", http.StatusTooManyRequests, data)
	case errors.Is(err, service.ErrInvalidCredentials):
		data.Error = "Invalid email or password."
		h.render(w, r, "login.html", http.StatusUnauthorized, data)
	default:
		h.flow.logger.ErrorContext(r.Context(), "form login failed", "error", err)
		data.Error = "Something went wrong. Please try again."
		h.render(w, r, "login.html", http.StatusInternalServerError, data)
	}
}

func (h *PageHandler) LogoutSubmit(w http.ResponseWriter, r *http.Request) {
	if err := h.flow.sessions.Logout(r.Context(), w, r); err != nil {
		h.flow.logger.ErrorContext(r.Context(), "form logout failed", "error", err)
	}
	observability.Audit(r, "auth.logout")
	http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
}

func (h *PageHandler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "unauthorized.html", http.StatusForbidden, nil)
}

func (h *PageHandler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	user, err := h.flow.sessions.RequireAdmin(r)
	if err != nil {
		if errors.Is(err, service.ErrAdminAccessRequired) {
			http.Redirect(w, r, middleware.UnauthorizedPath, http.StatusFound)
			return
		}
		http.Redirect(w, r, middleware.LoginRedirectURL(r.URL.Path), http.StatusFound)
		return
	}
	summary, err := h.users.Summary(r.Context())
	if err != nil {
		h.flow.logger.ErrorContext(r.Context(), "dashboard summary failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "admin.html", http.StatusOK, AdminPageData{User: user, Summary: summary})
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, name string, status int, data any) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		h.flow.logger.ErrorContext(r.Context(), "render page failed", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// SafeRedirect only allows same-origin absolute paths.
func SafeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") ||
		strings.ContainsAny(target, "\r\n") {
		return defaultAfterLogin
	}
	return target
}
