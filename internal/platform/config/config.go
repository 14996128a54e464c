package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures process-level configuration. FromEnv builds it from
// environment variables so main stays lean.
type Config struct {
	Addr          string
	JWTSigningKey string

	// Audit pipeline
	LogAllRequests bool
	AuditQueueSize int
	PostgresURL    string

	// Brute-force engine
	Redis RedisConfig
}

// RedisConfig holds connection tuning for the shared redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	addr := os.Getenv("TASKBOARD_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	queueSize := 10000
	if raw := os.Getenv("AUDIT_QUEUE_SIZE"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			queueSize = n
		}
	}

	return Config{
		Addr:           addr,
		JWTSigningKey:  jwtSigningKey,
		LogAllRequests: os.Getenv("AUDIT_LOG_ALL_REQUESTS") == "true",
		AuditQueueSize: queueSize,
		PostgresURL:    os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
}
