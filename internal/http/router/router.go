package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/support-space-backend/internal/health"
	"github.com/sandeepkv93/support-space-backend/internal/http/handler"
	"github.com/sandeepkv93/support-space-backend/internal/http/middleware"
	"github.com/sandeepkv93/support-space-backend/internal/http/response"
	"github.com/sandeepkv93/support-space-backend/internal/observability"
)

type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	UserHandler      *handler.UserHandler
	AdminHandler     *handler.AdminHandler
	PageHandler      *handler.PageHandler
	Guard            middleware.SessionGuard
	AuthRateLimitRPM int
	AuthRateLimiter  AuthRateLimiterFunc
	Readiness        *health.ProbeRunner
	HTTPMetrics      *observability.HTTPMetrics
	EnableOTelHTTP   bool
}

type AuthRateLimiterFunc func(http.Handler) http.Handler

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.BodyLimit(1 << 20))
	r.Use(middleware.SameOriginWrites)
	if dep.HTTPMetrics != nil {
		r.Use(dep.HTTPMetrics.Instrument)
		r.Method(http.MethodGet, "/metrics", dep.HTTPMetrics.Handler())
	}

	authLimiter := dep.AuthRateLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(dep.AuthRateLimitRPM, "auth").Middleware()
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, response.CodeDependencyUnready, "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter)
			r.Post("/register", dep.AuthHandler.Register)
			r.Post("/login", dep.AuthHandler.Login)
			r.Post("/logout", dep.AuthHandler.Logout)
			r.Get("/me", dep.AuthHandler.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.SessionAuth(dep.Guard))
			r.Get("/me/sessions", dep.UserHandler.Sessions)
			r.Delete("/me/sessions/{session_id}", dep.UserHandler.RevokeSession)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(dep.Guard))
			r.Get("/users", dep.AdminHandler.ListUsers)
			r.Patch("/users/{id}", dep.AdminHandler.UpdateUser)
			r.Post("/sessions/cleanup", dep.AdminHandler.CleanupSessions)
		})
	})

	r.Get("/auth/login", dep.PageHandler.LoginPage)
	r.With(authLimiter).Post("/auth/login", dep.PageHandler.LoginSubmit)
	r.Post("/auth/logout", dep.PageHandler.LogoutSubmit)
	r.Get("/unauthorized", dep.PageHandler.Unauthorized)
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.AdminGate(dep.Guard))
		r.Get("/", dep.PageHandler.AdminDashboard)
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
