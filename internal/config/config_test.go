package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SNOWFLAKE_NODE", "")
	t.Setenv("RECALCULATE_SNOWFLAKE_NODE", "")
	t.Setenv("RECALCULATE_LOCK_TTL", "")

	cfg := Load()
	assert.Equal(t, int64(1), cfg.SnowflakeNode)
	assert.Equal(t, int64(2), cfg.RecalculateSnowflakeNode)
	assert.NotEqual(t, cfg.SnowflakeNode, cfg.RecalculateSnowflakeNode)
	assert.Equal(t, 10*time.Minute, cfg.RecalculateLockTTL)
}

func TestLoadSnowflakeNodesFromEnv(t *testing.T) {
	t.Setenv("SNOWFLAKE_NODE", "7")
	t.Setenv("RECALCULATE_SNOWFLAKE_NODE", "8")
	t.Setenv("RECALCULATE_LOCK_TTL", "not-a-duration")

	cfg := Load()
	assert.Equal(t, int64(7), cfg.SnowflakeNode)
	assert.Equal(t, int64(8), cfg.RecalculateSnowflakeNode)
	assert.Equal(t, 10*time.Minute, cfg.RecalculateLockTTL)
}
