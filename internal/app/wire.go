//go:build wireinject
// +build wireinject

package app

import (
	"context"
	"log/slog"

	"github.com/google/wire"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/commercegate/admin-security/internal/config"
	"github.com/commercegate/admin-security/internal/http/handler"
	"github.com/commercegate/admin-security/internal/repository"
)

func Initialize(ctx context.Context, cfg *config.Config, logger *slog.Logger, lp *sdklog.LoggerProvider) (*App, func(), error) {
	wire.Build(
		provideRuntime,
		provideDB,
		provideRedis,
		repository.NewUserRepository,
		repository.NewSessionRepository,
		repository.NewResetTokenRepository,
		provideSessionService,
		provideCSRFBinder,
		provideServiceTokens,
		provideLockoutGuard,
		provideAuthService,
		provideResetService,
		provideAuthHandler,
		handler.NewSessionHandler,
		providePaymentHandler,
		provideMaintenanceHandler,
		provideReadiness,
		provideRouter,
		provideServer,
		New,
	)
	return nil, nil, nil
}
