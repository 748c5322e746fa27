package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8088", cfg.Port)
	assert.Equal(t, 8, cfg.WorkerCount)
	assert.Equal(t, 5000, cfg.QueueHighWatermark)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 5*time.Minute, cfg.RecommendationTTL)
	assert.Equal(t, 30, cfg.ForecastWindowDays)
	assert.Equal(t, 7, cfg.ForecastHorizonDays)
	assert.False(t, cfg.GeneratorEnabled)
	assert.Equal(t, 20, cfg.DefaultPageSize)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("WORKER_COUNT", "16")
	t.Setenv("RECOMMENDATION_TTL", "60")
	t.Setenv("GENERATOR_ENABLED", "true")
	t.Setenv("GENERATOR_INTERVAL_MS", "250")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 16, cfg.WorkerCount)
	assert.Equal(t, time.Minute, cfg.RecommendationTTL)
	assert.True(t, cfg.GeneratorEnabled)
	assert.Equal(t, 250*time.Millisecond, cfg.GeneratorInterval)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("WORKER_COUNT", "many")
	t.Setenv("GENERATOR_ENABLED", "yes please")

	cfg := Load()
	assert.Equal(t, 8, cfg.WorkerCount)
	assert.False(t, cfg.GeneratorEnabled)
}
