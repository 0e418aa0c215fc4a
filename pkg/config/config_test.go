package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL", "MONGO_URI", "MONGO_DATABASE", "REDIS_ADDR", "REDIS_DB",
		"COUNT_CACHE_TTL", "JWT_SECRET", "FIREBASE_CREDENTIALS_PATH", "FIREBASE_CREDENTIALS_JSON",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "socialmedia", cfg.MongoDatabase)
	assert.Equal(t, 30*time.Second, cfg.CountCacheTTL)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_ProductionRequiresJWTSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")

	cfg, err := Load()
	assert.ErrorIs(t, err, ErrMissingJWTSecret)
	assert.Nil(t, cfg)

	t.Setenv("JWT_SECRET", "s3cret")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_DB", "3")
	t.Setenv("COUNT_CACHE_TTL", "10s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 10*time.Second, cfg.CountCacheTTL)

	t.Setenv("REDIS_DB", "three")
	t.Setenv("COUNT_CACHE_TTL", "soon")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 30*time.Second, cfg.CountCacheTTL)
}
