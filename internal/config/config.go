package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// InsecureDevSessionSecret signs session tokens when SESSION_SECRET is unset
// outside production. Production refuses to start without a real secret.
const InsecureDevSessionSecret = "support-space-insecure-dev-secret-change-me"

const minSessionSecretLen = 32

type Config struct {
	AppEnv   string
	HTTPAddr string
	LogLevel string

	DatabaseDriver          string
	DatabaseURL             string
	DatabaseMaxOpenConns    int
	DatabaseMaxIdleConns    int
	DatabaseConnMaxLifetime time.Duration

	SessionSecret          string
	SessionSecretFallback  bool
	SessionCleanupSchedule string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	LoginMaxFailures   int
	LoginFailureWindow time.Duration
	AuthRateLimitRPM   int

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSampleRatio      float64

	ReadinessTimeout  time.Duration
	ReadinessCacheTTL time.Duration
	ShutdownTimeout   time.Duration
	ReadHeaderTimeout time.Duration
}

func (c *Config) IsProduction() bool {
	return normalizeConfigProfile(c.AppEnv) == "production"
}

// Load reads an optional env file, then the process environment. Values
// already present in the environment win over the file.
func Load(envFile string) (*Config, error) {
	cfg, err := load(envFile)
	profile := os.Getenv("APP_ENV")
	if err != nil {
		recordConfigLoad(context.Background(), profile, "error", classifyConfigLoadError(err))
		return nil, err
	}
	recordConfigLoad(context.Background(), profile, "success", "none")
	return cfg, nil
}

func load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	p := &parser{}
	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseDriver:          getEnv("DATABASE_DRIVER", "postgres"),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		DatabaseMaxOpenConns:    p.int("DATABASE_MAX_OPEN_CONNS", 20),
		DatabaseMaxIdleConns:    p.int("DATABASE_MAX_IDLE_CONNS", 5),
		DatabaseConnMaxLifetime: p.duration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),

		SessionSecret:          os.Getenv("SESSION_SECRET"),
		SessionCleanupSchedule: getEnv("SESSION_CLEANUP_SCHEDULE", "@every 1h"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       p.int("REDIS_DB", 0),
		RedisPrefix:   getEnv("REDIS_PREFIX", "support_space"),

		LoginMaxFailures:   p.int("LOGIN_MAX_FAILURES", 5),
		LoginFailureWindow: p.duration("LOGIN_FAILURE_WINDOW", 15*time.Minute),
		AuthRateLimitRPM:   p.int("AUTH_RATE_LIMIT_RPM", 30),

		OTELServiceName:           getEnv("OTEL_SERVICE_NAME", "support-space-backend"),
		OTELEnvironment:           getEnv("OTEL_ENVIRONMENT", getEnv("APP_ENV", "development")),
		OTELExporterOTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure:  p.bool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELMetricsEnabled:        p.bool("OTEL_METRICS_ENABLED", false),
		OTELTracingEnabled:        p.bool("OTEL_TRACING_ENABLED", false),
		OTELLogsEnabled:           p.bool("OTEL_LOGS_ENABLED", false),
		OTELMetricsExportInterval: p.duration("OTEL_METRICS_EXPORT_INTERVAL", 15*time.Second),
		OTELTraceSampleRatio:      p.float("OTEL_TRACE_SAMPLE_RATIO", 1.0),

		ReadinessTimeout:  p.duration("READINESS_TIMEOUT", 2*time.Second),
		ReadinessCacheTTL: p.duration("READINESS_CACHE_TTL", 5*time.Second),
		ShutdownTimeout:   p.duration("SHUTDOWN_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: p.duration("READ_HEADER_TIMEOUT", 5*time.Second),
	}
	if p.err != nil {
		return nil, p.err
	}
	if cfg.SessionSecret == "" && !cfg.IsProduction() {
		cfg.SessionSecret = InsecureDevSessionSecret
		cfg.SessionSecretFallback = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Problem is one rejected setting, keyed by its environment variable.
type Problem struct {
	Key     string
	Message string
}

// ValidationError lists every rejected setting so operators can fix them
// in one pass.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		msgs = append(msgs, p.Message)
	}
	return "validate config: " + strings.Join(msgs, "; ")
}

// ParseError reports an environment value that could not be converted.
type ParseError struct {
	Key string
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse %s: %v", e.Key, e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

func (c *Config) Validate() error {
	var problems []Problem
	add := func(key, msg string) { problems = append(problems, Problem{Key: key, Message: msg}) }
	if c.DatabaseURL == "" {
		add("DATABASE_URL", "DATABASE_URL is required")
	}
	switch strings.ToLower(c.DatabaseDriver) {
	case "postgres", "sqlite":
	default:
		add("DATABASE_DRIVER", "DATABASE_DRIVER must be postgres or sqlite")
	}
	if c.IsProduction() {
		if c.SessionSecret == "" {
			add("SESSION_SECRET", "SESSION_SECRET is required in production")
		} else if len(c.SessionSecret) < minSessionSecretLen {
			add("SESSION_SECRET", fmt.Sprintf("SESSION_SECRET must be at least %d bytes in production", minSessionSecretLen))
		}
		if c.SessionSecret == InsecureDevSessionSecret {
			add("SESSION_SECRET", "SESSION_SECRET must not use the development fallback in production")
		}
	}
	if c.SessionSecret == "" {
		add("SESSION_SECRET", "SESSION_SECRET is required")
	}
	if c.LoginMaxFailures < 1 {
		add("LOGIN_MAX_FAILURES", "LOGIN_MAX_FAILURES must be positive")
	}
	if c.LoginFailureWindow <= 0 {
		add("LOGIN_FAILURE_WINDOW", "LOGIN_FAILURE_WINDOW must be positive")
	}
	if c.AuthRateLimitRPM < 1 {
		add("AUTH_RATE_LIMIT_RPM", "AUTH_RATE_LIMIT_RPM must be positive")
	}
	if c.OTELTraceSampleRatio < 0 || c.OTELTraceSampleRatio > 1 {
		add("OTEL_TRACE_SAMPLE_RATIO", "OTEL_TRACE_SAMPLE_RATIO must be within [0,1]")
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

// parser keeps the first parse failure so Load can report it once.
type parser struct{ err error }

func (p *parser) int(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" || p.err != nil {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.err = &ParseError{Key: key, Err: err}
		return fallback
	}
	return v
}

func (p *parser) bool(key string, fallback bool) bool {
	raw := getEnv(key, "")
	if raw == "" || p.err != nil {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.err = &ParseError{Key: key, Err: err}
		return fallback
	}
	return v
}

func (p *parser) float(key string, fallback float64) float64 {
	raw := getEnv(key, "")
	if raw == "" || p.err != nil {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.err = &ParseError{Key: key, Err: err}
		return fallback
	}
	return v
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" || p.err != nil {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.err = &ParseError{Key: key, Err: err}
		return fallback
	}
	return v
}
