package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	DatabaseURL string

	DefaultSlotMinutes    int
	DefaultConsultMinutes int

	MaterializeInterval time.Duration
	DeptLockTimeout     time.Duration
	DisplayPollInterval time.Duration
	EventBatchSize      int

	RateLimitPerMinute     int
	RateLimitBurst         int
	DeptRateLimitPerMinute int
	DeptRateLimitBurst     int
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		Port:                   port,
		DatabaseURL:            os.Getenv("DB_DSN"),
		DefaultSlotMinutes:     readInt("DEFAULT_SLOT_MINUTES", 15),
		DefaultConsultMinutes:  readInt("DEFAULT_CONSULT_MINUTES", 15),
		MaterializeInterval:    readDurationSeconds("MATERIALIZE_INTERVAL_SECONDS", 60),
		DeptLockTimeout:        readDurationMillis("DEPT_LOCK_TIMEOUT_MS", 3000),
		DisplayPollInterval:    readDurationSeconds("DISPLAY_POLL_INTERVAL_SECONDS", 1),
		EventBatchSize:         readInt("EVENT_BATCH_SIZE", 100),
		RateLimitPerMinute:     readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:         readInt("RATE_LIMIT_BURST", 30),
		DeptRateLimitPerMinute: readInt("DEPT_RATE_LIMIT_PER_MIN", 600),
		DeptRateLimitBurst:     readInt("DEPT_RATE_LIMIT_BURST", 120),
	}
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readDurationMillis(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Millisecond
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
