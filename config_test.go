package healthsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, 5*time.Second, cfg.DebounceInterval)
	require.Equal(t, 24*time.Hour, cfg.DeletionLookback)
	require.Equal(t, 7, cfg.SeedChunkDays)
	require.Equal(t, 2*time.Second, cfg.SeedChunkPacing)
	require.Equal(t, 64, cfg.TZHistoryBound)
	require.Equal(t, 3*time.Second, cfg.PollInterval)
	require.Equal(t, 5*time.Minute, cfg.PollMaxWait)
	require.Equal(t, 30*time.Second, cfg.HTTPTimeout)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("VOYANT_DEBOUNCE_INTERVAL", "1s")
	t.Setenv("VOYANT_SEED_CHUNK_DAYS", "3")
	t.Setenv("VOYANT_STATE_PATH", "/tmp/state.db")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, time.Second, cfg.DebounceInterval)
	require.Equal(t, 3, cfg.SeedChunkDays)
	require.Equal(t, "/tmp/state.db", cfg.StatePath)
	// Untouched knobs keep their defaults.
	require.Equal(t, 3*time.Second, cfg.PollInterval)
}

func TestLoadConfigBadValue(t *testing.T) {
	t.Setenv("VOYANT_DEBOUNCE_INTERVAL", "not-a-duration")
	_, err := LoadConfig()
	require.Error(t, err)
}
