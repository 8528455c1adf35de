package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SUPABASE_DB_URL", "")
	t.Setenv("NAV_TIMEOUT_SEC", "")
	t.Setenv("DRY_RUN", "")

	cfg := Load()
	assert.Equal(t, "", cfg.DatabaseURL)
	assert.True(t, cfg.Headless)
	assert.False(t, cfg.DryRun)
	assert.Equal(t, 60*time.Second, cfg.NavTimeout)
	assert.Equal(t, 3*time.Second, cfg.DealerDelay)
	assert.ErrorIs(t, cfg.Validate(), ErrMissingDatabaseURL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/carbi")
	t.Setenv("DRY_RUN", "true")
	t.Setenv("NAV_RETRIES", "4")
	t.Setenv("PAUSE_MIN_MS", "10")
	t.Setenv("PAUSE_MAX_MS", "20")

	cfg := Load()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "postgres://u:p@db:5432/carbi", cfg.DatabaseURL)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, 4, cfg.NavRetries)
	assert.Equal(t, 10*time.Millisecond, cfg.PauseMin)
	assert.Equal(t, 20*time.Millisecond, cfg.PauseMax)
}

func TestSupabaseAlias(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SUPABASE_DB_URL", "postgres://supabase")

	cfg := Load()
	assert.Equal(t, "postgres://supabase", cfg.DatabaseURL)
}

func TestValidateClampsPacing(t *testing.T) {
	cfg := &Config{DatabaseURL: "x", NavRetries: 0, PauseMin: time.Second, PauseMax: 0}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.NavRetries)
	assert.Equal(t, time.Second, cfg.PauseMax)
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("NAV_RETRIES", "many")
	t.Setenv("HEADLESS", "perhaps")

	cfg := Load()
	assert.Equal(t, 2, cfg.NavRetries)
	assert.True(t, cfg.Headless)
}
