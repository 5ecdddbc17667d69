package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"gorm.io/gorm"

	"github.com/commercegate/admin-security/internal/config"
	"github.com/commercegate/admin-security/internal/domain"
	"github.com/commercegate/admin-security/internal/health"
	"github.com/commercegate/admin-security/internal/http/handler"
	"github.com/commercegate/admin-security/internal/http/middleware"
	"github.com/commercegate/admin-security/internal/http/router"
	"github.com/commercegate/admin-security/internal/observability"
	"github.com/commercegate/admin-security/internal/repository"
	"github.com/commercegate/admin-security/internal/security"
	"github.com/commercegate/admin-security/internal/service"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
}

func New(cfg *config.Config, logger *slog.Logger, server *http.Server, runtime *observability.Runtime) *App {
	return &App{Config: cfg, Logger: logger, Server: server, Observability: runtime}
}

func provideRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, lp *sdklog.LoggerProvider) (*observability.Runtime, error) {
	return observability.InitRuntime(ctx, cfg, logger, lp)
}

func provideDB(cfg *config.Config) (*gorm.DB, func(), error) {
	db, err := repository.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

func provideRedis(cfg *config.Config) (redis.UniversalClient, func()) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return client, func() { _ = client.Close() }
}

func provideSessionService(cfg *config.Config, sessions repository.SessionRepository) *service.SessionService {
	return service.NewSessionService(sessions, cfg.SessionPepper, cfg.SessionTTL)
}

func provideCSRFBinder(cfg *config.Config) (*security.CSRFBinder, error) {
	return security.NewCSRFBinder(cfg.CSRFSecret)
}

func provideServiceTokens(cfg *config.Config) *security.ServiceTokenManager {
	return security.NewServiceTokenManager(cfg.ServiceTokenIssuer, cfg.ServiceTokenAud, cfg.ServiceTokenSecret)
}

func provideLockoutGuard(cfg *config.Config, client redis.UniversalClient) *service.RedisLockoutGuard {
	policy := service.LockoutPolicy{
		Threshold:     cfg.LockoutThreshold,
		FailureWindow: cfg.LockoutFailureWindow,
		Tiers:         cfg.LockoutTiers,
	}
	return service.NewRedisLockoutGuard(client, "lockout", policy)
}

func provideAuthService(
	cfg *config.Config,
	users repository.UserRepository,
	sessions *service.SessionService,
	lockout *service.RedisLockoutGuard,
	csrf *security.CSRFBinder,
) *service.AuthService {
	return service.NewAuthService(users, sessions, lockout, csrf, cfg.BcryptCost)
}

func provideResetService(
	cfg *config.Config,
	users repository.UserRepository,
	tokens repository.ResetTokenRepository,
	sessions *service.SessionService,
) *service.PasswordResetService {
	return service.NewPasswordResetService(
		users, tokens, sessions, mailerSink{},
		cfg.SessionPepper, cfg.ResetTokenTTL, cfg.BcryptCost,
	)
}

func provideAuthHandler(cfg *config.Config, auth *service.AuthService, reset *service.PasswordResetService) *handler.AuthHandler {
	return handler.NewAuthHandler(auth, reset, int(cfg.SessionTTL.Seconds()), cfg.CookieSecure)
}

func providePaymentHandler() *handler.PaymentHandler {
	return handler.NewPaymentHandler(handler.StubPaymentInitiator{})
}

func provideMaintenanceHandler(sessions repository.SessionRepository, resets repository.ResetTokenRepository) *handler.MaintenanceHandler {
	return handler.NewMaintenanceHandler(sessions, resets, 30*24*time.Hour)
}

func provideReadiness(db *gorm.DB, client redis.UniversalClient) *health.ProbeRunner {
	return health.NewProbeRunner(2*time.Second, health.DatabaseProbe(db), health.RedisProbe(client))
}

func provideRouter(
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	sessionHandler *handler.SessionHandler,
	paymentHandler *handler.PaymentHandler,
	maintenanceHandler *handler.MaintenanceHandler,
	sessions *service.SessionService,
	csrf *security.CSRFBinder,
	serviceTokens *security.ServiceTokenManager,
	client redis.UniversalClient,
	readiness *health.ProbeRunner,
) http.Handler {
	mode := middleware.FailClosed
	if cfg.RateLimitFailOpen {
		mode = middleware.FailOpen
	}
	return router.New(router.Dependencies{
		AuthHandler:        authHandler,
		SessionHandler:     sessionHandler,
		PaymentHandler:     paymentHandler,
		MaintenanceHandler: maintenanceHandler,
		Sessions:           sessions,
		CSRFBinder:         csrf,
		ServiceTokens:      serviceTokens,
		RateLimits: router.RateLimits{
			Window:     cfg.RateLimitWindow,
			APIRPM:     cfg.APIRateLimitRPM,
			AuthRPM:    cfg.AuthRateLimitRPM,
			PaymentRPM: cfg.PaymentRateLimitRPM,
			ForgotRPM:  cfg.ForgotRateLimitRPM,
			Mode:       mode,
			Limiter:    middleware.NewRedisFixedWindowLimiter(client, "ratelimit"),
		},
		Readiness:      readiness,
		EnableOTelHTTP: cfg.OTELTracesEnabled,
	})
}

func provideServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

// mailerSink hands reset tokens to the out-of-scope mail collaborator. Only
// delivery metadata is logged, never the token itself.
type mailerSink struct{}

func (mailerSink) DeliverResetToken(_ context.Context, user *domain.User, _ string) error {
	observability.AuditEvent("reset_token_delivery_queued", "user_id", user.ID)
	return nil
}
