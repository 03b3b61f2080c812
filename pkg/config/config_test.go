package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	t.Run("Should populate every section with a usable baseline", func(t *testing.T) {
		cfg := Default()
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, DBTypePostgres, cfg.Database.Type)
		assert.Equal(t, 60, cfg.RateLimit.DefaultRequestsPerMinute)
		assert.Equal(t, 50, cfg.Scheduler.BatchSize)
	})

	t.Run("Should leave redis disabled until an address is configured", func(t *testing.T) {
		cfg := Default()
		assert.False(t, cfg.Redis.Enabled())
	})
}

func TestRedisConfigEnabled(t *testing.T) {
	t.Run("Should report enabled once an address is set", func(t *testing.T) {
		cfg := RedisConfig{Addr: "localhost:6379"}
		assert.True(t, cfg.Enabled())
	})
}
