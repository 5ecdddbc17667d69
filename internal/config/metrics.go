package config

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var loadCounter = sync.OnceValue(func() metric.Int64Counter {
	counter, err := otel.Meter("admin-security").Int64Counter("config.validation.events")
	if err != nil {
		return nil
	}
	return counter
})

// recordConfigValidationEvent counts every Load outcome, labelled by profile
// and a coarse error class so dashboards can tell a missing secret from a
// typo in a duration.
func recordConfigValidationEvent(ctx context.Context, profile, outcome, errorClass string) {
	counter := loadCounter()
	if counter == nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("profile", normalizeConfigProfile(profile)),
		attribute.String("outcome", outcome),
		attribute.String("error_class", errorClass),
	))
}

func normalizeConfigProfile(profile string) string {
	v := strings.TrimSpace(strings.ToLower(profile))
	if v == "" {
		return "unknown"
	}
	return v
}

// classifyConfigLoadError buckets Load failures by message shape. Secrets are
// checked before general validation because their error carries both markers.
func classifyConfigLoadError(err error) string {
	if err == nil {
		return "none"
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	for _, rule := range []struct {
		marker string
		class  string
	}{
		{"missing required secrets", "missing_secret"},
		{"validate config:", "validation"},
		{"parse ", "parse"},
	} {
		if strings.Contains(msg, rule.marker) {
			return rule.class
		}
	}
	return "load"
}
