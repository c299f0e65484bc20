package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName          = "BotFut Onboarding"
	defaultAppEnv           = "development"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultLogFormat        = "json"
	defaultBotContact       = "+55 11 99999-0000"
	defaultShutdownDelay    = 10 * time.Second
	defaultIdempotencyTTL   = 24 * time.Hour
	defaultUpstreamTimeout  = 15 * time.Second
	defaultSubmitRateLimit  = 20
	defaultSessionIdleTTL   = 15 * time.Minute
	defaultSessionRetention = 24 * time.Hour
	idemTTLSecondsEnvVar    = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar        = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar   = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar  = "SHUTDOWN_TIMEOUT"
	upstreamSecondsEnvVar   = "UPSTREAM_TIMEOUT_SECONDS"
	upstreamDurationEnvVar  = "UPSTREAM_TIMEOUT"
	identityCacheTTLEnvVar  = "IDENTITY_CACHE_TTL"
	submitRateLimitEnvVar   = "SUBMIT_RATE_LIMIT"
	sessionIdleEnvVar       = "SESSION_IDLE_TTL"
	sessionRetentionEnvVar  = "SESSION_RETENTION"
	upstreamBaseURLEnvVar   = "UPSTREAM_BASE_URL"
	defaultDotenvPathEnvVar = "DOTENV_PATH"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName          string
	Env              string
	Port             string
	LogLevel         string
	LogFormat        string
	DatabaseURL      string
	RedisURL         string
	UpstreamBaseURL  string
	UpstreamTimeout  time.Duration
	BotContact       string
	ShutdownPeriod   time.Duration
	IdempotencyTTL   time.Duration
	IdentityCacheTTL time.Duration
	SubmitRateLimit  int
	SessionIdleTTL   time.Duration
	SessionRetention time.Duration
}

// Load reads an optional .env file and then populates a Config from the environment.
// Variables already present in the environment take precedence over the file.
func Load() (Config, error) {
	if err := loadDotenv(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:         getEnv("APP_NAME", defaultAppName),
		Env:             strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:            getEnv("PORT", defaultPort),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat)),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		UpstreamBaseURL: strings.TrimRight(os.Getenv(upstreamBaseURLEnvVar), "/"),
		BotContact:      getEnv("BOT_CONTACT", defaultBotContact),
		ShutdownPeriod:  defaultShutdownDelay,
		IdempotencyTTL:  defaultIdempotencyTTL,
		UpstreamTimeout: defaultUpstreamTimeout,
		SubmitRateLimit: defaultSubmitRateLimit,

		SessionIdleTTL:   defaultSessionIdleTTL,
		SessionRetention: defaultSessionRetention,
	}

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.UpstreamTimeout, err = durationFromEnv(upstreamSecondsEnvVar, upstreamDurationEnvVar, cfg.UpstreamTimeout); err != nil {
		return Config{}, err
	}

	if v := os.Getenv(identityCacheTTLEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", identityCacheTTLEnvVar, err)
		}
		cfg.IdentityCacheTTL = d
	}

	for key, target := range map[string]*time.Duration{
		sessionIdleEnvVar:      &cfg.SessionIdleTTL,
		sessionRetentionEnvVar: &cfg.SessionRetention,
	} {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				return Config{}, fmt.Errorf("invalid %s: %q", key, v)
			}
			*target = d
		}
	}

	if v := os.Getenv(submitRateLimitEnvVar); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", submitRateLimitEnvVar, err)
		}
		cfg.SubmitRateLimit = n
	}

	if cfg.UpstreamBaseURL == "" {
		return Config{}, fmt.Errorf("%s must be set", upstreamBaseURLEnvVar)
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.Env)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.Env)
		}
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the service runs in a local environment where
// Postgres and Redis may be replaced by in-memory stores.
func (c Config) IsDev() bool {
	switch c.Env {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func loadDotenv() error {
	path := getEnv(defaultDotenvPathEnvVar, ".env")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
