package healthsync

// This file defines functional options that configure the Engine during
// construction. Keeping them in a standalone file makes it easy to discover
// all available knobs at a glance.

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sgzrov/Voyant/internal/platform"
	"github.com/sgzrov/Voyant/internal/store"
	"github.com/sgzrov/Voyant/internal/types"
)

// Option configures an Engine during construction in New.
//
// Options are applied before the authorization transport wrapper is
// installed, so transport-related options (like debug logging) sit beneath
// the API-key wrapper. Options must be deterministic and side-effect free.
type Option func(*Engine) error

// WithConfig replaces the default Config wholesale. Combine with LoadConfig
// to honor VOYANT_* environment overrides.
func WithConfig(cfg Config) Option {
	return func(e *Engine) error {
		e.cfg = cfg
		e.http.Timeout = cfg.HTTPTimeout
		return nil
	}
}

// WithHTTPTimeout sets the underlying http.Client timeout. Prefer
// per-request context deadlines where possible; this is a coarse safety net
// bounding a single request end to end.
func WithHTTPTimeout(d time.Duration) Option {
	return func(e *Engine) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be > 0")
		}
		e.http.Timeout = d
		return nil
	}
}

// WithDebugLogging wraps the engine's transport so each request/response is
// dumped when enabled. Not for production: bodies include user data.
func WithDebugLogging(enabled bool) Option {
	return func(e *Engine) error {
		if enabled {
			e.http.Transport = &debugTransport{base: e.http.Transport}
		}
		return nil
	}
}

// WithLogger installs a zerolog logger; the default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) error {
		e.log = log
		return nil
	}
}

// WithStore substitutes the state store (tests use store.NewMemStore()).
// The engine takes ownership and closes it on Close, or on a failed New.
func WithStore(st store.Store) Option {
	return func(e *Engine) error {
		if st == nil {
			return fmt.Errorf("store cannot be nil")
		}
		e.st = st
		return nil
	}
}

// WithExecutor substitutes the internal async executor.
func WithExecutor(exec executor) Option {
	return func(e *Engine) error {
		if exec == nil {
			return fmt.Errorf("executor cannot be nil")
		}
		e.exec = exec
		return nil
	}
}

// WithLocation wires the location-fix provider and reverse geocoder feeding
// the geocoded timezone timeline. Without both, the engine relies on device
// timezone signals alone.
func WithLocation(loc platform.LocationProvider, geo platform.Geocoder) Option {
	return func(e *Engine) error {
		e.location = loc
		e.geocoder = geo
		return nil
	}
}

// WithRecordTypes narrows the synced record types (default: all registered).
func WithRecordTypes(rts ...RecordType) Option {
	return func(e *Engine) error {
		if len(rts) == 0 {
			return fmt.Errorf("record types cannot be empty")
		}
		for _, rt := range rts {
			if err := types.ValidateRecordType(rt); err != nil {
				return err
			}
		}
		e.syncTypes = rts
		return nil
	}
}

// WithClock substitutes the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		e.clock = now
		return nil
	}
}
