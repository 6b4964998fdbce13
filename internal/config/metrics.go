package config

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	configMetricsOnce sync.Once
	configLoadCounter metric.Int64Counter
)

// recordConfigLoad counts config loads by profile and failure class.
func recordConfigLoad(ctx context.Context, profile, outcome, errorClass string) {
	configMetricsOnce.Do(func() {
		counter, err := otel.Meter("support-space-backend").Int64Counter("support_space.config.loads")
		if err == nil {
			configLoadCounter = counter
		}
	})
	if configLoadCounter == nil {
		return
	}
	configLoadCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("profile", normalizeConfigProfile(profile)),
		attribute.String("outcome", outcome),
		attribute.String("error_class", errorClass),
	))
}

var profileAliases = map[string]string{
	"prod":  "production",
	"dev":   "development",
	"local": "development",
}

func normalizeConfigProfile(profile string) string {
	v := strings.TrimSpace(strings.ToLower(profile))
	if v == "" {
		return "unknown"
	}
	if alias, ok := profileAliases[v]; ok {
		return alias
	}
	return v
}

// classifyConfigLoadError names the setting group that stopped startup.
// Session secret problems win over others because they block production.
func classifyConfigLoadError(err error) string {
	if err == nil {
		return "none"
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return "parse"
	}
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		return "load"
	}
	class := "validation"
	for _, p := range validationErr.Problems {
		switch keyClass := settingGroup(p.Key); keyClass {
		case "session_secret":
			return keyClass
		default:
			if class == "validation" {
				class = keyClass
			}
		}
	}
	return class
}

func settingGroup(key string) string {
	switch {
	case key == "SESSION_SECRET":
		return "session_secret"
	case strings.HasPrefix(key, "DATABASE_"):
		return "database"
	case strings.HasPrefix(key, "LOGIN_"), strings.HasPrefix(key, "AUTH_RATE_LIMIT"):
		return "login_limits"
	case strings.HasPrefix(key, "OTEL_"):
		return "telemetry"
	default:
		return "validation"
	}
}
