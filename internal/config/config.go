// Package config loads the service configuration from environment variables.
// Every setting has a default except where noted, and Validate reports all
// problems at once so a bad deployment fails on startup.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on. PORT is honoured for PaaS deployments.
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"4000"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware deadline for ordinary requests (default: 30s).
	// Imports use Upload.Timeout instead.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`

	// PublicURL overrides the scheme://host used in returned image URLs.
	// Empty means derive it from each request.
	PublicURL string `env:"PUBLIC_URL"`
}

// DatabaseConfig holds store connection settings.
type DatabaseConfig struct {
	// URL selects the engine: postgres:// or postgresql:// for PostgreSQL,
	// sqlite: / file: or a bare path for SQLite. DB_FILE is accepted for
	// compatibility with older deployments.
	URL string `env:"DATABASE_URL" envAlt:"DB_FILE" default:"sqlite:inventory.db"`

	// MaxConns is the PostgreSQL pool size (default: 10). SQLite always uses one.
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the number of idle PostgreSQL connections kept open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// BusyTimeout is how long SQLite waits on a locked database (default: 5s)
	BusyTimeout time.Duration `env:"DB_BUSY_TIMEOUT" default:"5s"`
}

// UploadConfig holds image and CSV upload settings.
type UploadConfig struct {
	// Dir is where images and import temp files are written (default: uploads)
	Dir string `env:"UPLOAD_DIR" default:"uploads"`

	// PublicPath is the URL prefix the local image store is served under.
	PublicPath string `env:"UPLOAD_PUBLIC_PATH" default:"/uploads"`

	// ImageMaxSize is the image size cap in bytes (default: 5 MiB)
	ImageMaxSize int64 `env:"UPLOAD_IMAGE_MAX_SIZE" default:"5242880"`

	// ImportMaxSize is the CSV size cap in bytes (default: 10 MiB)
	ImportMaxSize int64 `env:"UPLOAD_IMPORT_MAX_SIZE" default:"10485760"`

	// MaxConcurrent is the number of imports allowed to run at once (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long an import waits for a free slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a whole import request (default: 5m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"5m"`

	// TempMaxAge is the age after which leftover import files are removed (default: 1h)
	TempMaxAge time.Duration `env:"UPLOAD_TEMP_MAX_AGE" default:"1h"`

	// JanitorInterval is how often the upload directory is swept (default: 15m)
	JanitorInterval time.Duration `env:"UPLOAD_JANITOR_INTERVAL" default:"15m"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute applies to every API route (default: 300)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`

	// UploadLimit applies to the image upload and import routes (default: 20)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"20"`
}

// SecurityConfig holds network trust and browser settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Forwarded-For and X-Forwarded-Proto headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// AllowedOrigins lists CORS origins for the browser UI (default: *)
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// CacheConfig holds the optional Redis product cache settings.
type CacheConfig struct {
	// RedisURL enables the cache when set, e.g. redis://localhost:6379/0
	RedisURL string `env:"REDIS_URL"`

	// TTL is how long a cached product stays valid (default: 5m)
	TTL time.Duration `env:"CACHE_TTL" default:"5m"`

	// KeyPrefix namespaces cache keys (default: inventory:)
	KeyPrefix string `env:"CACHE_KEY_PREFIX" default:"inventory:"`
}

// Enabled reports whether a Redis URL was configured.
func (c *CacheConfig) Enabled() bool {
	return c.RedisURL != ""
}

// StorageConfig selects where uploaded images are kept.
type StorageConfig struct {
	// Backend is "local" (default) or "s3".
	Backend string `env:"STORAGE_BACKEND" default:"local"`

	S3Bucket          string `env:"S3_BUCKET"`
	S3Region          string `env:"S3_REGION" envAlt:"AWS_REGION" default:"us-east-1"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3Prefix          string `env:"S3_PREFIX" default:"images/"`

	// S3PublicURL is the base used for returned image URLs. Empty means the
	// virtual-hosted bucket URL.
	S3PublicURL string `env:"S3_PUBLIC_URL"`

	// S3UsePathStyle is needed by MinIO and most S3-compatible servers.
	S3UsePathStyle bool `env:"S3_USE_PATH_STYLE" default:"false"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" default:"true"`
	Path    string `env:"METRICS_PATH" default:"/metrics"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
