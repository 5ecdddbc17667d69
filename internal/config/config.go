package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full runtime configuration, loaded from the environment.
// Load fails closed: a missing secret refuses to start the process instead of
// falling back to an insecure mode.
type Config struct {
	HTTPAddr    string
	Environment string

	DBDriver string
	DBDSN    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionPepper      string
	CSRFSecret         string
	ServiceTokenSecret string
	ServiceTokenIssuer string
	ServiceTokenAud    string

	BcryptCost    int
	SessionTTL    time.Duration
	ResetTokenTTL time.Duration
	CookieSecure  bool

	LockoutThreshold     int
	LockoutFailureWindow time.Duration
	LockoutTiers         []time.Duration

	RateLimitWindow     time.Duration
	APIRateLimitRPM     int
	AuthRateLimitRPM    int
	PaymentRateLimitRPM int
	ForgotRateLimitRPM  int
	RateLimitFailOpen   bool

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsEnabled        bool
	OTELTracesEnabled         bool
	OTELLogsEnabled           bool
	OTELMetricsExportInterval time.Duration
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		Environment: getEnv("APP_ENV", "development"),

		DBDriver: getEnv("DB_DRIVER", "postgres"),
		DBDSN:    getEnv("DB_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		SessionPepper:      getEnv("SESSION_TOKEN_PEPPER", ""),
		CSRFSecret:         getEnv("CSRF_SIGNING_SECRET", ""),
		ServiceTokenSecret: getEnv("SERVICE_TOKEN_SECRET", ""),
		ServiceTokenIssuer: getEnv("SERVICE_TOKEN_ISSUER", "admin-security"),
		ServiceTokenAud:    getEnv("SERVICE_TOKEN_AUDIENCE", "admin-security-internal"),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "admin-security"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", "development"),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = getEnvInt("BCRYPT_COST", 12); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getEnvDuration("SESSION_TTL", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ResetTokenTTL, err = getEnvDuration("RESET_TOKEN_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.CookieSecure, err = getEnvBool("COOKIE_SECURE", true); err != nil {
		return nil, err
	}
	if cfg.LockoutThreshold, err = getEnvInt("LOCKOUT_THRESHOLD", 5); err != nil {
		return nil, err
	}
	if cfg.LockoutFailureWindow, err = getEnvDuration("LOCKOUT_FAILURE_WINDOW", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.LockoutTiers, err = getEnvDurations("LOCKOUT_TIERS", []time.Duration{
		time.Minute, 5 * time.Minute, 15 * time.Minute, time.Hour,
	}); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = getEnvDuration("RATE_LIMIT_WINDOW", time.Minute); err != nil {
		return nil, err
	}
	if cfg.APIRateLimitRPM, err = getEnvInt("API_RATE_LIMIT_RPM", 120); err != nil {
		return nil, err
	}
	if cfg.AuthRateLimitRPM, err = getEnvInt("AUTH_RATE_LIMIT_RPM", 10); err != nil {
		return nil, err
	}
	if cfg.PaymentRateLimitRPM, err = getEnvInt("PAYMENT_RATE_LIMIT_RPM", 30); err != nil {
		return nil, err
	}
	if cfg.ForgotRateLimitRPM, err = getEnvInt("FORGOT_RATE_LIMIT_RPM", 5); err != nil {
		return nil, err
	}
	if cfg.RateLimitFailOpen, err = getEnvBool("RATE_LIMIT_FAIL_OPEN", false); err != nil {
		return nil, err
	}
	if cfg.OTELExporterOTLPInsecure, err = getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true); err != nil {
		return nil, err
	}
	if cfg.OTELMetricsEnabled, err = getEnvBool("OTEL_METRICS_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.OTELTracesEnabled, err = getEnvBool("OTEL_TRACES_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.OTELLogsEnabled, err = getEnvBool("OTEL_LOGS_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.OTELMetricsExportInterval, err = getEnvDuration("OTEL_METRICS_EXPORT_INTERVAL", 15*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		recordConfigValidationEvent(context.Background(), cfg.Environment, "failure", classifyConfigLoadError(err))
		return nil, err
	}
	recordConfigValidationEvent(context.Background(), cfg.Environment, "success", "none")
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.SessionPepper == "" {
		missing = append(missing, "SESSION_TOKEN_PEPPER")
	}
	if c.CSRFSecret == "" {
		missing = append(missing, "CSRF_SIGNING_SECRET")
	}
	if c.ServiceTokenSecret == "" {
		missing = append(missing, "SERVICE_TOKEN_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("validate config: missing required secrets: %s", strings.Join(missing, ", "))
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("validate config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("validate config: DB_DSN is required")
	}
	if c.BcryptCost < 10 || c.BcryptCost > 31 {
		return fmt.Errorf("validate config: BCRYPT_COST %d out of range [10, 31]", c.BcryptCost)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("validate config: SESSION_TTL must be positive")
	}
	if c.ResetTokenTTL <= 0 {
		return fmt.Errorf("validate config: RESET_TOKEN_TTL must be positive")
	}
	if c.LockoutThreshold < 1 {
		return fmt.Errorf("validate config: LOCKOUT_THRESHOLD must be at least 1")
	}
	if len(c.LockoutTiers) == 0 {
		return fmt.Errorf("validate config: LOCKOUT_TIERS must not be empty")
	}
	for _, d := range c.LockoutTiers {
		if d <= 0 {
			return fmt.Errorf("validate config: LOCKOUT_TIERS entries must be positive")
		}
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("validate config: RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs in a production profile.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getEnvDurations(key string, fallback []time.Duration) ([]time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	parts := strings.Split(v, ",")
	out := make([]time.Duration, 0, len(parts))
	for _, p := range parts {
		d, err := time.ParseDuration(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", key, err)
		}
		out = append(out, d)
	}
	return out, nil
}
