package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	Port        string
	Environment string

	// NATS
	NATSURL string

	// Pipeline
	WorkerCount        int
	QueueHighWatermark int
	ShutdownTimeout    time.Duration

	// Engines
	RecommendationTTL   time.Duration
	RefreshInterval     time.Duration
	ForecastWindowDays  int
	ForecastHorizonDays int

	// Synthetic traffic generator
	GeneratorEnabled  bool
	GeneratorInterval time.Duration

	// Pagination
	DefaultPageSize int
	MaxPageSize     int
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8088"),
		Environment: getEnv("ENVIRONMENT", "development"),

		NATSURL: getEnv("NATS_URL", ""),

		WorkerCount:        getEnvInt("WORKER_COUNT", 8),
		QueueHighWatermark: getEnvInt("QUEUE_HIGH_WATERMARK", 5000),
		ShutdownTimeout:    getEnvSeconds("SHUTDOWN_TIMEOUT", 15),

		RecommendationTTL:   getEnvSeconds("RECOMMENDATION_TTL", 300),
		RefreshInterval:     getEnvSeconds("RECOMMENDATION_REFRESH_INTERVAL", 120),
		ForecastWindowDays:  getEnvInt("FORECAST_WINDOW_DAYS", 30),
		ForecastHorizonDays: getEnvInt("FORECAST_HORIZON_DAYS", 7),

		GeneratorEnabled:  getEnvBool("GENERATOR_ENABLED", false),
		GeneratorInterval: getEnvMillis("GENERATOR_INTERVAL_MS", 500),

		DefaultPageSize: getEnvInt("DEFAULT_PAGE_SIZE", 20),
		MaxPageSize:     getEnvInt("MAX_PAGE_SIZE", 100),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultSec int) time.Duration {
	return time.Duration(getEnvInt(key, defaultSec)) * time.Second
}

func getEnvMillis(key string, defaultMs int) time.Duration {
	return time.Duration(getEnvInt(key, defaultMs)) * time.Millisecond
}
