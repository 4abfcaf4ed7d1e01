package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	vars := []string{
		"ENVIRONMENT", "SERVER_PORT", "DATABASE_URL", "SECRET_KEY",
		"TOKEN_ALGORITHM", "ACCESS_TOKEN_TTL", "CORS_ORIGINS", "KAFKA_BROKERS",
	}
	for _, v := range vars {
		// t.Setenv registers the restore; the unset makes the default apply.
		t.Setenv(v, "")
		os.Unsetenv(v)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 8000, cfg.ServerPort)
	assert.Equal(t, "sqlite://app.db", cfg.DatabaseURL)
	assert.Equal(t, "HS256", cfg.TokenAlgorithm)
	assert.Equal(t, 8*24*time.Hour, cfg.AccessTokenTTL)
	assert.Empty(t, cfg.KafkaBrokers)

	// Missing SECRET_KEY falls back to a generated one.
	assert.NotEmpty(t, cfg.SecretKey)
}

func TestIsProduction_CaseInsensitive(t *testing.T) {
	t.Parallel()

	assert.True(t, Config{Environment: "production"}.IsProduction())
	assert.True(t, Config{Environment: "Production"}.IsProduction())
	assert.True(t, Config{Environment: "PRODUCTION"}.IsProduction())
	assert.False(t, Config{Environment: "development"}.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("SECRET_KEY", "configured-secret")
	t.Setenv("ACCESS_TOKEN_TTL", "30m")
	t.Setenv("CORS_ORIGINS", "https://one.example,https://two.example")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 9000, cfg.ServerPort)
	assert.Equal(t, "configured-secret", cfg.SecretKey)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, []string{"https://one.example", "https://two.example"}, cfg.CORSOrigins)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}
