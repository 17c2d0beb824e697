package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings of the engine, loaded from environment
// variables (.env file supported for local development).
type Config struct {
	HTTPAddr string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NATSURL string

	// SweepInterval is how often the lifecycle sweeper promotes scheduled
	// auctions and closes expired ones.
	SweepInterval time.Duration

	// DefaultAutoExtendWindow is used when an auction is created without an
	// explicit window.
	DefaultAutoExtendWindow time.Duration
}

// Load reads the configuration from the environment, applying defaults for
// anything unset.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:                getEnv("HTTP_ADDR", ":9000"),
		RedisAddr:               getEnv("REDIS_ADDR", ""),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		RedisDB:                 getInt("REDIS_DB", 0),
		NATSURL:                 getEnv("NATS_URL", ""),
		SweepInterval:           getDuration("SWEEP_INTERVAL", time.Second),
		DefaultAutoExtendWindow: getDuration("AUTO_EXTEND_WINDOW", 5*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
