package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	RequestTimeout     time.Duration
	StoreBackend       string
	DatabaseURL        string
	DBMaxConns         int32
	DBMinConns         int32
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	JWTSecret          string
	CORSOrigins        []string
	RateLimitRPM       int
	MaxFileSize        int64
	TransferExpiry     time.Duration
	MaxTransferExpiry  time.Duration
	DisputeTimeout     time.Duration
	MinAdminThreshold  int
	BootstrapAdmins    []string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		ServerReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		ServerWriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second),
		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", "memory")),
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:         int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:         int32(getInt("DB_MIN_CONNS", 2)),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
		RedisDB:            getInt("REDIS_DB", 0),
		JWTSecret:          strings.TrimSpace(os.Getenv("JWT_SECRET")),
		CORSOrigins:        splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:       getInt("RATE_LIMIT_RPM", 100),
		MaxFileSize:        getInt64("MAX_FILE_SIZE", 104_857_600),
		TransferExpiry:     getDuration("TRANSFER_EXPIRY", 168*time.Hour),
		MaxTransferExpiry:  getDuration("MAX_TRANSFER_EXPIRY", 720*time.Hour),
		DisputeTimeout:     getDuration("DISPUTE_TIMEOUT", 336*time.Hour),
		MinAdminThreshold:  getInt("MIN_ADMIN_THRESHOLD", 1),
		BootstrapAdmins:    splitCSV(strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMINS"))),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	switch c.StoreBackend {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis backend")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be memory, postgres, or redis")
	}

	if c.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive")
	}

	if c.TransferExpiry <= 0 {
		return fmt.Errorf("TRANSFER_EXPIRY must be positive")
	}

	if c.MaxTransferExpiry < c.TransferExpiry {
		return fmt.Errorf("MAX_TRANSFER_EXPIRY must not be below TRANSFER_EXPIRY")
	}

	if c.MinAdminThreshold < 1 {
		return fmt.Errorf("MIN_ADMIN_THRESHOLD must be at least 1")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}

	return parsed
}

func getInt64(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}

	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}

	return parsed
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}
