package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/commercegate/admin-security/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

type AppMetrics struct {
	loginCounter      metric.Int64Counter
	lockoutCounter    metric.Int64Counter
	sessionCounter    metric.Int64Counter
	csrfCounter       metric.Int64Counter
	rateLimitCounter  metric.Int64Counter
	retryAfterHist    metric.Float64Histogram
	resetTokenCounter metric.Int64Counter
	repositoryCounter metric.Int64Counter
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

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.OTELServiceName),
			attribute.String("deployment.environment", cfg.OTELEnvironment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	meter := mp.Meter("admin-security")
	m := &AppMetrics{}
	if m.loginCounter, err = meter.Int64Counter("auth.login.attempts"); err != nil {
		return nil, err
	}
	if m.lockoutCounter, err = meter.Int64Counter("auth.lockout.events"); err != nil {
		return nil, err
	}
	if m.sessionCounter, err = meter.Int64Counter("session.validations"); err != nil {
		return nil, err
	}
	if m.csrfCounter, err = meter.Int64Counter("csrf.validations"); err != nil {
		return nil, err
	}
	if m.rateLimitCounter, err = meter.Int64Counter("ratelimit.decisions"); err != nil {
		return nil, err
	}
	if m.retryAfterHist, err = meter.Float64Histogram("ratelimit.retry_after.seconds"); err != nil {
		return nil, err
	}
	if m.resetTokenCounter, err = meter.Int64Counter("password_reset.token.events"); err != nil {
		return nil, err
	}
	if m.repositoryCounter, err = meter.Int64Counter("repository.operations"); err != nil {
		return nil, err
	}

	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func current() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordAuthLogin(ctx context.Context, status string) {
	m := current()
	if m == nil {
		return
	}
	m.loginCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func RecordLockoutEvent(ctx context.Context, action string) {
	m := current()
	if m == nil {
		return
	}
	m.lockoutCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}

func RecordSessionValidation(ctx context.Context, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.sessionCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordCSRFValidation(ctx context.Context, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.csrfCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordRateLimitDecision(ctx context.Context, scope, outcome, mode string) {
	m := current()
	if m == nil {
		return
	}
	m.rateLimitCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("outcome", outcome),
		attribute.String("mode", mode),
	))
}

func RecordRateLimitRetryAfter(ctx context.Context, scope string, retryAfter time.Duration) {
	m := current()
	if m == nil {
		return
	}
	m.retryAfterHist.Record(ctx, retryAfter.Seconds(), metric.WithAttributes(attribute.String("scope", scope)))
}

func RecordResetTokenEvent(ctx context.Context, action, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.resetTokenCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}

func RecordRepositoryOperation(ctx context.Context, entity, op, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.repositoryCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}
