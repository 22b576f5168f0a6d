package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// Config holds runtime configuration values for the Quill server.
type Config struct {
	DBPath        string
	ServerPort    int
	LogLevel      string
	Environment   string
	SentryDSN     string
	JWTSecret     string
	JWTAccessTTL  time.Duration
	BcryptCost    int
	ShutdownGrace time.Duration
	RateLimit     RateLimitConfig
}

// RateLimitConfig controls the HTTP token bucket limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

const (
	defaultDBPath        = "./data/quill.db"
	defaultServerPort    = 8080
	defaultLogLevel      = "info"
	defaultEnvironment   = "development"
	defaultJWTAccessTTL  = time.Hour
	defaultBcryptCost    = 12
	defaultShutdownGrace = 10 * time.Second

	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultRateLimitTTL   = 5 * time.Minute
)

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:      getEnv("DB_PATH", defaultDBPath),
		LogLevel:    getEnv("LOG_LEVEL", defaultLogLevel),
		Environment: getEnv("ENV", defaultEnvironment),
		SentryDSN:   os.Getenv("SENTRY_DSN"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
	}

	if cfg.JWTSecret == "" {
		return nil, eris.New("JWT_SECRET is required")
	}

	port, err := intEnv("SERVER_PORT", defaultServerPort)
	if err != nil {
		return nil, err
	}
	cfg.ServerPort = port

	cost, err := intEnv("BCRYPT_COST", defaultBcryptCost)
	if err != nil {
		return nil, err
	}
	cfg.BcryptCost = cost

	ttl, err := durationEnv("JWT_ACCESS_TTL", defaultJWTAccessTTL)
	if err != nil {
		return nil, err
	}
	cfg.JWTAccessTTL = ttl

	grace, err := durationEnv("SHUTDOWN_GRACE", defaultShutdownGrace)
	if err != nil {
		return nil, err
	}
	cfg.ShutdownGrace = grace

	rps := defaultRateLimitRPS
	if raw := os.Getenv("RATE_LIMIT_RPS"); raw != "" {
		rps, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid RATE_LIMIT_RPS value: %s", raw)
		}
	}
	cfg.RateLimit.RequestsPerSecond = rps

	burst, err := intEnv("RATE_LIMIT_BURST", defaultRateLimitBurst)
	if err != nil {
		return nil, err
	}
	cfg.RateLimit.Burst = burst

	clientTTL, err := durationEnv("RATE_LIMIT_CLIENT_TTL", defaultRateLimitTTL)
	if err != nil {
		return nil, err
	}
	cfg.RateLimit.ClientTTL = clientTTL

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}
