//go:build wireinject

package di

import (
	"context"
	"log/slog"

	"github.com/google/wire"

	"github.com/sandeepkv93/support-space-backend/internal/app"
	"github.com/sandeepkv93/support-space-backend/internal/config"

	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func InitializeApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, lp *sdklog.LoggerProvider) (*app.App, func(), error) {
	wire.Build(InfraSet, RepositorySet, ServiceSet, HTTPSet, AppSet)
	return nil, nil, nil
}

func InitializeAdminTools(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*AdminTools, func(), error) {
	wire.Build(InfraSet, RepositorySet, ServiceSet, provideAdminTools)
	return nil, nil, nil
}
