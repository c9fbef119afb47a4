package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	HTTPAddr  string
	RedisAddr string
	RedisPass string
	JWTSecret string

	// Cache windows; defaults match the legacy platform constants but
	// are overridable per deployment.
	MaskFilterTTL  time.Duration
	IdempotencyTTL time.Duration
}

func Load() AppConfig {
	if err := godotenv.Load(); err != nil {
		log.Println("Messaging: No .env file found, relying on system env vars")
	}
	return AppConfig{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8021"),
		RedisAddr:      getEnv("REDIS_ADDR", "redis:6379"),
		RedisPass:      getEnv("REDIS_PASS", ""),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		MaskFilterTTL:  getDuration("MASK_FILTER_TTL_SECONDS", 5*time.Minute),
		IdempotencyTTL: getDuration("IDEMPOTENCY_TTL_SECONDS", 60*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
		log.Printf("Messaging: invalid %s=%q, using default", key, v)
	}
	return fallback
}
