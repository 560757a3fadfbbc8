package healthsync

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config carries the engine's tuning knobs. Values are policy constants
// copied from the observed system; none are load-bearing for correctness.
type Config struct {
	// StatePath locates the sqlite state database. Empty means
	// <user config dir>/voyant/healthsync.db.
	StatePath string `envconfig:"STATE_PATH"`

	// DebounceInterval coalesces change notifications per record type.
	DebounceInterval time.Duration `envconfig:"DEBOUNCE_INTERVAL" default:"5s"`

	// DeletionLookback is re-fetched as upserts when a delta carries only
	// deletions.
	DeletionLookback time.Duration `envconfig:"DELETION_LOOKBACK" default:"24h"`

	// SeedChunkDays sizes one backfill chunk.
	SeedChunkDays int `envconfig:"SEED_CHUNK_DAYS" default:"7"`

	// SeedChunkPacing spaces consecutive seed chunk uploads.
	SeedChunkPacing time.Duration `envconfig:"SEED_CHUNK_PACING" default:"2s"`

	// TZHistoryBound caps each timezone timeline's entry count.
	TZHistoryBound int `envconfig:"TZ_HISTORY_BOUND" default:"64"`

	// PollInterval/PollMaxWait drive seed chunk task-status polling.
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"3s"`
	PollMaxWait  time.Duration `envconfig:"POLL_MAX_WAIT" default:"5m"`

	// HTTPTimeout bounds a single backend request end to end.
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`

	// LocationRefresh spaces periodic location fixes feeding the geocoded
	// timezone timeline.
	LocationRefresh time.Duration `envconfig:"LOCATION_REFRESH" default:"6h"`
}

// LoadConfig reads VOYANT_* environment variables (loading a local .env
// first, best effort) on top of the documented defaults.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process("voyant", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns the documented defaults without touching the
// environment.
func DefaultConfig() Config {
	return Config{
		DebounceInterval: 5 * time.Second,
		DeletionLookback: 24 * time.Hour,
		SeedChunkDays:    7,
		SeedChunkPacing:  2 * time.Second,
		TZHistoryBound:   64,
		PollInterval:     3 * time.Second,
		PollMaxWait:      5 * time.Minute,
		HTTPTimeout:      30 * time.Second,
		LocationRefresh:  6 * time.Hour,
	}
}

func (c Config) statePath() (string, error) {
	if c.StatePath != "" {
		return c.StatePath, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve state path: %w", err)
	}
	full := filepath.Join(dir, "voyant")
	if err := os.MkdirAll(full, 0o755); err != nil {
		return "", fmt.Errorf("create state dir: %w", err)
	}
	return filepath.Join(full, "healthsync.db"), nil
}
