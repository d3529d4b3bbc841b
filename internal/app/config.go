package app

import (
	"fmt"
	"os"
	"time"

	"courier/internal/presence"
)

// Config is the daemon's environment-driven configuration.
type Config struct {
	ServerID      string
	Port          string
	RedisURL      string
	RedisPassword string
	PostgresURL   string
	JWTSecret     string
	PresenceTTL   time.Duration
}

// LoadConfig reads configuration from the environment. JWT_SECRET is the
// only hard requirement; everything else has a usable default for local
// runs.
func LoadConfig() (Config, error) {
	cfg := Config{
		ServerID:      getenv("SERVER_ID", "courier-1"),
		Port:          getenv("SERVER_PORT", "8080"),
		RedisURL:      getenv("REDIS_URL", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		PostgresURL:   os.Getenv("POSTGRES_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		PresenceTTL:   getenvDuration("PRESENCE_TTL", presence.DefaultTTL),
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string { return ":" + c.Port }

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
