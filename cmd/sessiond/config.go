package main

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// settings is everything sessiond reads from the environment.
type settings struct {
	Addr          string
	Store         string // memory, redis or sqlite
	RedisAddr     string
	RedisPrefix   string
	SQLiteDSN     string
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SecureCookies bool
	CookieDomain  string
	Strict        bool
	TrustProxy    bool
	AuditLog      bool
	DemoEmail     string
	DemoPassword  string
	LogLevel      string
}

// loadSettings reads .env when present, then the process environment.
func loadSettings() settings {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Fatal().Err(err).Msg("failed to load .env")
		}
	}

	return settings{
		Addr:          GetEnv("SESSIOND_ADDR", ":8080"),
		Store:         GetEnv("SESSIOND_STORE", "redis"),
		RedisAddr:     GetEnv("REDIS_ADDR", ""),
		RedisPrefix:   GetEnv("REDIS_PREFIX", "gs"),
		SQLiteDSN:     GetEnv("SQLITE_DSN", "file:sessiond.db?_pragma=journal_mode(WAL)"),
		AccessSecret:  GetEnv("ACCESS_TOKEN_SECRET", ""),
		RefreshSecret: GetEnv("REFRESH_TOKEN_SECRET", ""),
		AccessTTL:     getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:    getDuration("REFRESH_TOKEN_TTL", 720*time.Hour),
		SecureCookies: getBool("COOKIE_SECURE", true),
		CookieDomain:  GetEnv("COOKIE_DOMAIN", ""),
		Strict:        getBool("SESSIOND_STRICT", false),
		TrustProxy:    getBool("TRUST_PROXY", false),
		AuditLog:      getBool("AUDIT_LOG", true),
		DemoEmail:     GetEnv("DEMO_EMAIL", "alice@example.com"),
		DemoPassword:  GetEnv("DEMO_PASSWORD", "correct-horse-battery"),
		LogLevel:      GetEnv("LOG_LEVEL", "info"),
	}
}

// GetEnv returns the variable or defaultValue when it is unset or empty.
func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func getDuration(envVar string, defaultValue time.Duration) time.Duration {
	raw := GetEnv(envVar, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Fatal().Err(err).Str("var", envVar).Msg("invalid duration")
	}
	return d
}

func getBool(envVar string, defaultValue bool) bool {
	raw := GetEnv(envVar, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Fatal().Err(err).Str("var", envVar).Msg("invalid bool")
	}
	return v
}

func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
