package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the server and worker
type Config struct {
	// Database Configuration
	Database DatabaseConfig

	// Redis Configuration
	Redis RedisConfig

	// Logging Configuration
	Logging LoggingConfig

	// HTTP Configuration
	HTTP HTTPConfig

	// Auth Configuration
	Auth AuthConfig

	// Uploads Configuration
	Uploads UploadsConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address string // Redis address (host:port)
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// HTTPConfig holds listener configuration
type HTTPConfig struct {
	Addr        string
	CORSOrigins []string
}

// AuthConfig holds token lifetimes and OTP limits
type AuthConfig struct {
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	OTPTTL           time.Duration
	OTPRatePerMinute int
}

// UploadsConfig holds where uploaded files are written
type UploadsConfig struct {
	Dir string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	accessTTL, err := durationEnv("ACCESS_TOKEN_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	refreshTTL, err := durationEnv("REFRESH_TOKEN_TTL", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}
	otpTTL, err := durationEnv("OTP_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	otpRate := 5
	if v := os.Getenv("OTP_RATE_PER_MINUTE"); v != "" {
		otpRate, err = strconv.Atoi(v)
		if err != nil || otpRate <= 0 {
			return nil, fmt.Errorf("OTP_RATE_PER_MINUTE must be a positive integer, got %q", v)
		}
	}

	var origins []string
	for _, origin := range strings.Split(envOr("CORS_ORIGINS", "http://localhost:5173"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}

	return &Config{
		Database: DatabaseConfig{
			URL: envOr("DATABASE_URL", "shopdesk.sqlite"),
		},
		Redis: RedisConfig{
			Address: envOr("REDIS_ADDRESS", "localhost:6379"),
		},
		Logging: LoggingConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "json"),
		},
		HTTP: HTTPConfig{
			Addr:        envOr("HTTP_ADDR", ":3001"),
			CORSOrigins: origins,
		},
		Auth: AuthConfig{
			AccessTokenTTL:   accessTTL,
			RefreshTokenTTL:  refreshTTL,
			OTPTTL:           otpTTL,
			OTPRatePerMinute: otpRate,
		},
		Uploads: UploadsConfig{
			Dir: envOr("UPLOAD_DIR", "uploads"),
		},
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration such as 15m, got %q", key, v)
	}
	return d, nil
}
