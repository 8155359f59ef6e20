package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centralizes configuration loaded from the environment.
type Config struct {
	Port                 int
	DBDSN                string
	RedisURL             string
	JWTAccessTTL         time.Duration
	JWTSecret            string
	SubAccountSessionTTL time.Duration
	DocumentPageSize     int
	NotifyPollInterval   time.Duration
	// TrustOnRestore keeps a locally restored sub-account session trusted even
	// when the backend cannot confirm it. See the session package.
	TrustOnRestore  bool
	AllowOrigins    []string
	RateLimitPublic RateLimitConfig
	RateLimitAuth   RateLimitConfig
	Archive         ArchiveConfig
}

// RateLimitConfig holds simple throttling limits.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// ArchiveConfig describes the optional S3-compatible PDF archive target.
type ArchiveConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// Enabled reports whether archiving is configured.
func (a ArchiveConfig) Enabled() bool {
	return a.Endpoint != "" && a.Bucket != "" && a.AccessKey != "" && a.SecretKey != ""
}

// Load reads environment variables and applies safe defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("invalid PORT")
	}
	cfg.Port = port

	cfg.DBDSN = getEnv("DB_DSN", "")
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN is required")
	}

	cfg.RedisURL = getEnv("REDIS_URL", "")
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET must be at least 32 characters")
	}

	accessTTL, err := parseDurationEnv("JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.JWTAccessTTL = accessTTL

	sessionTTL, err := parseDurationEnv("SUBACCOUNT_SESSION_TTL", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.SubAccountSessionTTL = sessionTTL

	pageSizeStr := getEnv("DOCUMENT_PAGE_SIZE", "10")
	pageSize, err := strconv.Atoi(pageSizeStr)
	if err != nil || pageSize <= 0 {
		return nil, errors.New("invalid DOCUMENT_PAGE_SIZE")
	}
	cfg.DocumentPageSize = pageSize

	pollInterval, err := parseDurationEnv("NOTIFY_POLL_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.NotifyPollInterval = pollInterval

	cfg.TrustOnRestore = parseBoolEnv("TRUST_ON_RESTORE", true)

	allowOrigins := strings.Split(getEnv("ALLOW_ORIGINS", ""), ",")
	cfg.AllowOrigins = nil
	for _, origin := range allowOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	cfg.RateLimitPublic = RateLimitConfig{RequestsPerSecond: 10, Burst: 20}
	cfg.RateLimitAuth = RateLimitConfig{RequestsPerSecond: 10, Burst: 40}

	cfg.Archive = ArchiveConfig{
		Endpoint:  strings.TrimSpace(getEnv("ARCHIVE_S3_ENDPOINT", "")),
		Region:    strings.TrimSpace(getEnv("ARCHIVE_S3_REGION", "auto")),
		Bucket:    strings.TrimSpace(getEnv("ARCHIVE_S3_BUCKET", "")),
		AccessKey: strings.TrimSpace(getEnv("ARCHIVE_S3_ACCESS_KEY", "")),
		SecretKey: strings.TrimSpace(getEnv("ARCHIVE_S3_SECRET_KEY", "")),
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return dur, nil
}

func parseBoolEnv(key string, def bool) bool {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return parsed
}
