package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env           string        // APP_ENV: development, test or production
	Port          string        // APP_PORT
	DBUser        string        // DB_USER
	DBPass        string        // DB_PASS (optional)
	DBHost        string        // DB_HOST
	DBPort        string        // DB_PORT
	DBName        string        // DB_NAME
	JWTSecret     string        // JWT_SECRET; required in production
	TokenTTL      time.Duration // TOKEN_TTL, e.g. "24h"
	BcryptCost    int           // BCRYPT_COST
	ResetTokenTTL time.Duration // RESET_TOKEN_TTL
	PublicURL     string        // PUBLIC_URL; base for links in outgoing mail, request host when empty
	Cache         CacheConfig
	RateLimit     RateLimitConfig
	Redis         RedisConfig
	AMQP          AMQPConfig
	Mail          MailConfig
}

// DevMode reports whether detailed errors may be returned to clients.
func (c Config) DevMode() bool { return c.Env == EnvDevelopment }

// Production reports whether the service runs with production settings.
func (c Config) Production() bool { return c.Env == EnvProduction }

// ErrMissingSecret is returned by Load when JWT_SECRET is empty in production.
var ErrMissingSecret = errors.New("JWT_SECRET is required in production")

// Load reads a .env file when present and builds a Config from the
// environment.  Missing required variables are reported together.
func Load() (Config, error) {
	_ = godotenv.Load() // .env is optional; real environment wins

	var missing []string
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := Config{
		Env:           envStr("APP_ENV", EnvDevelopment),
		Port:          envStr("APP_PORT", "3000"),
		DBUser:        must("DB_USER"),
		DBPass:        os.Getenv("DB_PASS"),
		DBHost:        must("DB_HOST"),
		DBPort:        envStr("DB_PORT", "3306"),
		DBName:        must("DB_NAME"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		TokenTTL:      envDur("TOKEN_TTL", 24*time.Hour),
		BcryptCost:    envInt("BCRYPT_COST", 12),
		ResetTokenTTL: envDur("RESET_TOKEN_TTL", 10*time.Minute),
		PublicURL:     strings.TrimRight(os.Getenv("PUBLIC_URL"), "/"),
		Cache:         LoadCacheConfig(),
		RateLimit:     LoadRateLimitConfig(),
		Redis:         LoadRedisConfig(),
		AMQP:          LoadAMQPConfig(),
		Mail:          LoadMailConfig(),
	}

	if len(missing) > 0 {
		return cfg, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	switch cfg.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return cfg, fmt.Errorf("invalid APP_ENV %q", cfg.Env)
	}
	if cfg.JWTSecret == "" && cfg.Production() {
		return cfg, ErrMissingSecret
	}
	if cfg.TokenTTL <= 0 {
		return cfg, fmt.Errorf("invalid TOKEN_TTL %s", cfg.TokenTTL)
	}
	return cfg, nil
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
