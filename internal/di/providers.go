package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/support-space-backend/internal/app"
	"github.com/sandeepkv93/support-space-backend/internal/config"
	"github.com/sandeepkv93/support-space-backend/internal/database"
	"github.com/sandeepkv93/support-space-backend/internal/health"
	"github.com/sandeepkv93/support-space-backend/internal/http/handler"
	"github.com/sandeepkv93/support-space-backend/internal/http/router"
	"github.com/sandeepkv93/support-space-backend/internal/observability"
	"github.com/sandeepkv93/support-space-backend/internal/repository"
	"github.com/sandeepkv93/support-space-backend/internal/security"
	"github.com/sandeepkv93/support-space-backend/internal/service"

	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// AdminTools is the subset of the graph used by one-shot CLI commands.
type AdminTools struct {
	Auth     *service.AuthService
	Sessions *service.SessionService
}

var InfraSet = wire.NewSet(
	provideDB,
	provideRedisClient,
)

var RepositorySet = wire.NewSet(
	repository.NewUserRepository,
	repository.NewSessionRepository,
)

var ServiceSet = wire.NewSet(
	provideTokenCodec,
	provideCookieManager,
	providePasswordHasher,
	service.NewAuthService,
	service.NewSessionService,
	service.NewUserService,
	provideLoginThrottle,
	wire.Bind(new(service.SessionCookieWriter), new(*security.CookieManager)),
	wire.Bind(new(service.AuthServiceInterface), new(*service.AuthService)),
	wire.Bind(new(service.SessionServiceInterface), new(*service.SessionService)),
	wire.Bind(new(service.UserServiceInterface), new(*service.UserService)),
)

var HTTPSet = wire.NewSet(
	handler.NewAuthHandler,
	handler.NewUserHandler,
	handler.NewAdminHandler,
	handler.NewPageHandler,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(
	provideRuntime,
	provideJanitor,
	provideReadiness,
	provideApp,
)

func provideDB(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*gorm.DB, func(), error) {
	db, err := database.Open(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		sqlDB, err := db.DB()
		if err != nil {
			return
		}
		if err := sqlDB.Close(); err != nil {
			logger.Warn("close database", "error", err)
		}
	}
	if err := database.Migrate(ctx, db); err != nil {
		closeDB()
		return nil, nil, err
	}
	return db, closeDB, nil
}

// provideRedisClient returns nil when REDIS_ADDR is unset; consumers fall
// back to in-process state.
func provideRedisClient(cfg *config.Config, logger *slog.Logger) (redis.UniversalClient, func()) {
	if cfg.RedisAddr == "" {
		return nil, func() {}
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return rdb, func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("close redis client", "error", err)
		}
	}
}

func provideTokenCodec(cfg *config.Config, logger *slog.Logger) *security.TokenCodec {
	if cfg.SessionSecretFallback {
		logger.Warn("SESSION_SECRET not set; using the insecure development secret")
	}
	return security.NewTokenCodec(cfg.SessionSecret)
}

func provideCookieManager(cfg *config.Config) *security.CookieManager {
	return security.NewCookieManager(cfg.IsProduction())
}

func providePasswordHasher() *security.PasswordHasher {
	return security.NewPasswordHasher(security.DefaultPasswordCost)
}

func provideLoginThrottle(cfg *config.Config, rdb redis.UniversalClient) service.LoginThrottle {
	policy := service.LoginThrottlePolicy{MaxFailures: cfg.LoginMaxFailures, Window: cfg.LoginFailureWindow}
	if rdb != nil {
		return service.NewRedisLoginThrottle(rdb, cfg.RedisPrefix, policy)
	}
	return service.NewLocalLoginThrottle(policy)
}

// provideRuntime's cleanup only matters when a later provider fails; a
// running App shuts the runtime down itself and the second call is a no-op.
func provideRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, lp *sdklog.LoggerProvider) (*observability.Runtime, func(), error) {
	rt, err := observability.InitRuntime(ctx, cfg, logger, lp)
	if err != nil {
		return nil, nil, err
	}
	return rt, func() {
		timeout := cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := rt.Shutdown(sctx); err != nil {
			logger.Warn("observability shutdown", "error", err)
		}
	}, nil
}

func provideJanitor(cfg *config.Config, sessions *service.SessionService, logger *slog.Logger) (*service.SessionJanitor, error) {
	return service.NewSessionJanitor(sessions, cfg.SessionCleanupSchedule, logger)
}

func provideReadiness(cfg *config.Config, db *gorm.DB, rdb redis.UniversalClient) (*health.ProbeRunner, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	checkers := []health.Checker{health.NewDBChecker(sqlDB)}
	if rdb != nil {
		checkers = append(checkers, health.NewRedisChecker(rdb))
	}
	return health.NewProbeRunner(cfg.ReadinessTimeout, cfg.ReadinessCacheTTL, checkers...), nil
}

func provideRouterDependencies(
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	adminHandler *handler.AdminHandler,
	pageHandler *handler.PageHandler,
	sessions *service.SessionService,
	readiness *health.ProbeRunner,
	runtime *observability.Runtime,
) router.Dependencies {
	return router.Dependencies{
		AuthHandler:      authHandler,
		UserHandler:      userHandler,
		AdminHandler:     adminHandler,
		PageHandler:      pageHandler,
		Guard:            sessions,
		AuthRateLimitRPM: cfg.AuthRateLimitRPM,
		Readiness:        readiness,
		HTTPMetrics:      runtime.HTTPMetrics,
		EnableOTelHTTP:   cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	janitor *service.SessionJanitor,
	readiness *health.ProbeRunner,
) *app.App {
	return app.New(cfg, logger, server, runtime, janitor, readiness)
}

func provideAdminTools(auth *service.AuthService, sessions *service.SessionService) *AdminTools {
	return &AdminTools{Auth: auth, Sessions: sessions}
}
