// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; empty runs against in-memory stores (dev only).
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL is the Redis connection URL for the tenant module cache; empty disables caching.
	RedisURL string `mapstructure:"REDIS_URL"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA); used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim on issued tokens.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim on issued tokens.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// JWTLeeway is the clock-skew tolerance applied when validating exp/nbf (e.g. "30s").
	JWTLeeway string `mapstructure:"JWT_LEEWAY"`
	// BcryptCost is the bcrypt cost factor (4-31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// TenantCacheTTL is how long tenant module sets stay in Redis (e.g. "5m").
	TenantCacheTTL string `mapstructure:"TENANT_CACHE_TTL"`
	// AllowedOrigins is a comma-separated CORS origin allowlist; empty allows none.
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	// Env is the application environment ("development", "production").
	Env string `mapstructure:"APP_ENV"`

	// KafkaBrokers is a comma-separated broker list; when set, security events
	// are produced to Kafka.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// KafkaTopic is the topic for security events.
	KafkaTopic string `mapstructure:"KAFKA_TOPIC"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint (host:port); empty
	// disables telemetry export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for non-localhost endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`

	// Worker-only: how often the cleanup worker deletes expired sessions.
	CleanupInterval string `mapstructure:"CLEANUP_INTERVAL"`
	// Worker-only: how long after expiry a session row is kept for the audit trail.
	CleanupRetention string `mapstructure:"CLEANUP_RETENTION"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("JWT_ISSUER", "erp-auth")
	v.SetDefault("JWT_AUDIENCE", "erp-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("JWT_LEEWAY", "30s")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("TENANT_CACHE_TTL", "5m")
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "erp-security-events")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("CLEANUP_INTERVAL", "1h")
	v.SetDefault("CLEANUP_RETENTION", "720h") // 30d

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.Env == "production" && (cfg.JWTPrivateKey == "" || cfg.JWTPublicKey == "") {
		return nil, errors.New("config: JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set when APP_ENV=production")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return durationOr(c.JWTAccessTTL, 15*time.Minute)
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return durationOr(c.JWTRefreshTTL, 168*time.Hour)
}

// Leeway parses JWTLeeway as a time.Duration. Returns 30s if unset or invalid.
// Zero is a valid setting (strict validation).
func (c *Config) Leeway() time.Duration {
	if c.JWTLeeway == "0" || c.JWTLeeway == "0s" {
		return 0
	}
	return durationOr(c.JWTLeeway, 30*time.Second)
}

// CacheTTL parses TenantCacheTTL as a time.Duration. Returns 5m if unset or invalid.
func (c *Config) CacheTTL() time.Duration {
	return durationOr(c.TenantCacheTTL, 5*time.Minute)
}

// WorkerInterval parses CleanupInterval. Returns 1h if unset or invalid.
func (c *Config) WorkerInterval() time.Duration {
	return durationOr(c.CleanupInterval, time.Hour)
}

// WorkerRetention parses CleanupRetention. Returns 720h if unset or invalid.
func (c *Config) WorkerRetention() time.Duration {
	return durationOr(c.CleanupRetention, 720*time.Hour)
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if event production is enabled (non-empty list) and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	return splitCSV(c.KafkaBrokers)
}

// AllowedOriginsList returns CORS origins from the comma-separated config.
func (c *Config) AllowedOriginsList() []string {
	return splitCSV(c.AllowedOrigins)
}

func durationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
