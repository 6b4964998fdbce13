package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sandeepkv93/support-space-backend/internal/config"
	"github.com/sandeepkv93/support-space-backend/internal/health"
	"github.com/sandeepkv93/support-space-backend/internal/observability"
	"github.com/sandeepkv93/support-space-backend/internal/service"
)

type App struct {
	Config          *config.Config
	Logger          *slog.Logger
	Server          *http.Server
	Observability   *observability.Runtime
	Janitor         *service.SessionJanitor
	Readiness       *health.ProbeRunner
	ShutdownTimeout time.Duration
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	janitor *service.SessionJanitor,
	readiness *health.ProbeRunner,
) *App {
	return &App{
		Config:          cfg,
		Logger:          logger,
		Server:          server,
		Observability:   runtime,
		Janitor:         janitor,
		Readiness:       readiness,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Run serves HTTP and runs the session janitor until ctx is cancelled or the
// server fails, then shuts everything down within ShutdownTimeout. The
// database pool and redis client belong to the injector's cleanup func.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("http server listening", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if a.Janitor != nil {
		a.Janitor.Start()
	}

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	return g.Wait()
}

func (a *App) shutdown() error {
	timeout := a.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.Logger.Info("shutting down", "timeout", timeout.String())
	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if a.Janitor != nil {
		a.Janitor.Stop(ctx)
	}
	if err := a.Observability.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("observability shutdown: %w", err))
	}
	return errors.Join(errs...)
}
