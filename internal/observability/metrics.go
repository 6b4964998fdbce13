package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sandeepkv93/support-space-backend/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const meterName = "support-space-backend"

type AppMetrics struct {
	authLoginCounter         metric.Int64Counter
	authLogoutCounter        metric.Int64Counter
	sessionValidationCounter metric.Int64Counter
	guardDecisionCounter     metric.Int64Counter
	repositoryOpCounter      metric.Int64Counter
	sessionCleanupCounter    metric.Int64Counter
	loginThrottleCounter     metric.Int64Counter
	adminUserCounter         metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter(meterName))
	if err != nil {
		return nil, err
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	var (
		m   AppMetrics
		err error
	)
	counters := []struct {
		name string
		dst  *metric.Int64Counter
	}{
		{"auth.login.attempts", &m.authLoginCounter},
		{"auth.logout.attempts", &m.authLogoutCounter},
		{"auth.session.validations", &m.sessionValidationCounter},
		{"auth.guard.decisions", &m.guardDecisionCounter},
		{"repository.operations", &m.repositoryOpCounter},
		{"auth.session.cleanup.deleted", &m.sessionCleanupCounter},
		{"auth.login.throttle.events", &m.loginThrottleCounter},
		{"admin.user.mutations", &m.adminUserCounter},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name)
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", c.name, err)
		}
	}
	return &m, nil
}

func newResource(ctx context.Context, cfg *config.Config) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.OTELServiceName),
			attribute.String("deployment.environment", cfg.OTELEnvironment),
		),
	)
}

func current() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordAuthLogin(ctx context.Context, status string) {
	if m := current(); m != nil {
		m.authLoginCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}

func RecordAuthLogout(ctx context.Context, status string) {
	if m := current(); m != nil {
		m.authLogoutCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}

func RecordSessionValidation(ctx context.Context, outcome string) {
	if m := current(); m != nil {
		m.sessionValidationCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func RecordGuardDecision(ctx context.Context, guard, outcome string) {
	if m := current(); m != nil {
		m.guardDecisionCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("guard", guard),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordRepositoryOperation(ctx context.Context, repo, op, outcome string) {
	if m := current(); m != nil {
		m.repositoryOpCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("repository", repo),
			attribute.String("operation", op),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordSessionCleanup(ctx context.Context, trigger string, deleted int64) {
	if m := current(); m != nil {
		m.sessionCleanupCounter.Add(ctx, deleted, metric.WithAttributes(attribute.String("trigger", trigger)))
	}
}

func RecordLoginThrottle(ctx context.Context, backend, outcome string) {
	if m := current(); m != nil {
		m.loginThrottleCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("backend", backend),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordAdminUserMutation(ctx context.Context, action string) {
	if m := current(); m != nil {
		m.adminUserCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
	}
}
