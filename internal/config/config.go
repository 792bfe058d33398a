package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL    string
	HTTPListenAddr string
	LogLevel       string
	// InstanceID identifies this process in logs when several scheduler
	// instances share one database.
	InstanceID string

	PollInterval    time.Duration
	LeaseDuration   time.Duration
	DispatchTimeout time.Duration
	MaxInFlight     int64

	ExecutionRetention time.Duration
	PurgeInterval      time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		HTTPListenAddr:     getEnv("HTTP_LISTEN_ADDR", ":8090"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		InstanceID:         getEnv("INSTANCE_ID", hostnameID()),
		PollInterval:       getDurationEnv("POLL_INTERVAL", time.Second),
		LeaseDuration:      getDurationEnv("LEASE_DURATION", time.Minute),
		DispatchTimeout:    getDurationEnv("DISPATCH_TIMEOUT", 30*time.Second),
		MaxInFlight:        getInt64Env("MAX_IN_FLIGHT_DISPATCHES", 32),
		ExecutionRetention: getDurationEnv("EXECUTION_RETENTION", 90*24*time.Hour),
		PurgeInterval:      getDurationEnv("PURGE_INTERVAL", time.Hour),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.LeaseDuration <= c.DispatchTimeout {
		return fmt.Errorf("LEASE_DURATION (%s) must exceed DISPATCH_TIMEOUT (%s)", c.LeaseDuration, c.DispatchTimeout)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getInt64Env(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func hostnameID() string {
	host, err := os.Hostname()
	if err != nil {
		return fmt.Sprintf("pid-%d", os.Getpid())
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
