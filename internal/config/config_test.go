package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "deepseek/deepseek-chat-v3-0324", cfg.PrimaryModel)
	assert.Equal(t, "meta-llama/llama-3.3-70b-instruct", cfg.FallbackModel)
	assert.Equal(t, 2000, cfg.FallbackMaxTokens)
	assert.Equal(t, 20, cfg.RequestsPerMinute)
	assert.Equal(t, 5, cfg.MaxConcurrency)
	assert.Equal(t, 2*time.Second, cfg.RateLimitRetryDelay)
	assert.Equal(t, time.Second, cfg.QuotaRetryDelay)
	assert.Equal(t, 10.0, cfg.DailyCreditLimit)
	assert.Equal(t, []string{"localhost:19092"}, cfg.KafkaBrokers)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("PORT", "9000")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("AI_REQUESTS_PER_MINUTE", "7")
	t.Setenv("DAILY_CREDIT_LIMIT", "25")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProd())
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 7, cfg.RequestsPerMinute)
	assert.Equal(t, 25.0, cfg.DailyCreditLimit)
}

func TestGetAIBackoffConfig_TestEnvShortens(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	cfg, err := config.Load()
	require.NoError(t, err)
	require.True(t, cfg.IsTest())

	maxElapsed, initial, maxInterval, multiplier := cfg.GetAIBackoffConfig()
	assert.Equal(t, 2*time.Second, maxElapsed)
	assert.Equal(t, 50*time.Millisecond, initial)
	assert.Equal(t, 500*time.Millisecond, maxInterval)
	assert.Equal(t, 2.0, multiplier)
}
