package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("RATELIMIT_BURST", "7")
	t.Setenv("REDIS_FAN_CACHE_TTL", "10m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, ":9090", cfg.Server.Addr())
	assert.Equal(t, 7, cfg.RateLimit.Burst)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expire)
	assert.Equal(t, 40, cfg.App.PostsPerPage)
	assert.Equal(t, "@every 5m", cfg.App.TagWarmSpec)
	assert.Equal(t, 5*time.Minute, cfg.Redis.TagCacheTTL)
	assert.Equal(t, 10*time.Minute, cfg.Redis.FanCacheTTL)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "mysql")
	_, err := Load()
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestValidate(t *testing.T) {
	valid := Config{
		Database: DatabaseConfig{Driver: "postgres"},
		JWT:      JWTConfig{Secret: "x"},
		App:      AppConfig{PostsPerPage: 40, CommentsPerPage: 20},
	}
	require.NoError(t, valid.Validate())

	noSecret := valid
	noSecret.JWT.Secret = ""
	assert.Error(t, noSecret.Validate())

	badPage := valid
	badPage.App.CommentsPerPage = 0
	assert.Error(t, badPage.Validate())
}
