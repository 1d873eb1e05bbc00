package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port              string
	DBURL             string
	JWTSecret         string
	ReadTimeoutSecs   int
	WriteTimeoutSecs  int
	IdleTimeoutSecs   int
	DBMaxConns        int
	DBMinConns        int
	DBMaxIdleSecs     int
	DBMaxLifeSecs     int
	DBConnTimeoutSecs int
	DBStatementCache  int
	StoreTimeoutSecs  int

	IdentityCacheSize    int
	IdentityCacheTTLSecs int

	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3Region       string
	S3Bucket       string
	UploadMaxBytes int64

	LogLevel  string
	LogFormat string
}

// StoreTimeout bounds every individual store call.
func (c Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutSecs) * time.Second
}

// IdentityCacheTTL is how long a resolved user role is trusted before re-reading it.
func (c Config) IdentityCacheTTL() time.Duration {
	return time.Duration(c.IdentityCacheTTLSecs) * time.Second
}

// Load reads configuration from environment variables, applying defaults and validation.
func Load() (Config, error) {
	cfg := Config{
		Port:                 getEnv("PORT", "8080"),
		DBURL:                os.Getenv("DB_URL"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		ReadTimeoutSecs:      getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:     getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:      getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		DBMaxConns:           getEnvInt("DB_MAX_CONNS", 20),
		DBMinConns:           getEnvInt("DB_MIN_CONNS", 2),
		DBMaxIdleSecs:        getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:        getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs:    getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:     getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),
		StoreTimeoutSecs:     getEnvInt("STORE_TIMEOUT_SECS", 5),
		IdentityCacheSize:    getEnvInt("IDENTITY_CACHE_SIZE", 1024),
		IdentityCacheTTLSecs: getEnvInt("IDENTITY_CACHE_TTL_SECS", 60),
		S3Endpoint:           getEnv("S3_ENDPOINT", "http://minio:9000"),
		S3AccessKey:          os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:          os.Getenv("S3_SECRET_KEY"),
		S3Region:             getEnv("S3_REGION", "us-east-1"),
		S3Bucket:             getEnv("S3_BUCKET", "posters"),
		UploadMaxBytes:       int64(getEnvInt("UPLOAD_MAX_BYTES", 5<<20)),
		LogLevel:             strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:            strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}

	if cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.DBMaxConns <= 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return Config{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		return Config{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return Config{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	if cfg.StoreTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("STORE_TIMEOUT_SECS must be positive")
	}
	if cfg.IdentityCacheSize <= 0 {
		return Config{}, fmt.Errorf("IDENTITY_CACHE_SIZE must be positive")
	}
	if cfg.IdentityCacheTTLSecs < 0 {
		return Config{}, fmt.Errorf("IDENTITY_CACHE_TTL_SECS must be non-negative")
	}
	if cfg.UploadMaxBytes <= 0 {
		return Config{}, fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	if u, err := url.Parse(cfg.S3Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return Config{}, fmt.Errorf("S3_ENDPOINT must be an absolute URL")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return Config{}, fmt.Errorf("LOG_FORMAT must be json or text")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}
