package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment    string
	AppName        string
	Port           string
	LogLevel       slog.Level
	SiteBaseURL    string
	SQLitePath     string
	MigrationsPath string
	SelectorsPath  string
	CORSOrigins    string

	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration

	FetchTimeout       time.Duration
	FetchRatePerSecond float64
	CloudflareBypass   bool

	PopularTTL  time.Duration
	PopularSize int

	WarmerEnabled  bool
	WarmerInterval time.Duration
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:        getEnv("APP_ENV", "development"),
		AppName:            getEnv("APP_NAME", "manhwa-hub"),
		Port:               getEnv("APP_PORT", getEnv("PORT", "3000")),
		SiteBaseURL:        strings.TrimRight(getEnv("SITE_BASE_URL", "https://manhwa-tower.ir"), "/"),
		SQLitePath:         getEnv("SQLITE_PATH", "./data/app.sqlite"),
		MigrationsPath:     getEnv("MIGRATIONS_PATH", "./migrations"),
		SelectorsPath:      getEnv("SELECTORS_PATH", ""),
		CORSOrigins:        getEnv("CORS_ORIGINS", "*"),
		JWTSecret:          getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTIssuer:          getEnv("JWT_ISSUER", "manhwa-hub"),
		JWTDuration:        time.Duration(getEnvAsInt("JWT_TTL_HOURS", 24*7)) * time.Hour,
		FetchTimeout:       time.Duration(getEnvAsInt("FETCH_TIMEOUT_SECONDS", 20)) * time.Second,
		FetchRatePerSecond: getEnvAsFloat("FETCH_RATE_PER_SECOND", 0),
		CloudflareBypass:   getEnvAsBool("CLOUDFLARE_BYPASS", false),
		PopularTTL:         time.Duration(getEnvAsInt("POPULAR_TTL_MINUTES", 15)) * time.Minute,
		PopularSize:        getEnvAsInt("POPULAR_SIZE", 8),
		WarmerEnabled:      getEnvAsBool("WARMER_ENABLED", false),
		WarmerInterval:     time.Duration(getEnvAsInt("WARMER_MINUTES", 10)) * time.Minute,
	}

	if cfg.JWTDuration <= 0 {
		cfg.JWTDuration = 24 * 7 * time.Hour
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 20 * time.Second
	}
	if cfg.PopularTTL <= 0 {
		cfg.PopularTTL = 15 * time.Minute
	}
	if cfg.PopularSize <= 0 {
		cfg.PopularSize = 8
	}
	if cfg.WarmerInterval <= 0 {
		cfg.WarmerInterval = 10 * time.Minute
	}
	if cfg.FetchRatePerSecond < 0 {
		cfg.FetchRatePerSecond = 0
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "INFO"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	return cfg, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q, expected DEBUG|INFO|WARN|ERROR", raw)
	}
}

func getEnv(key string, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
