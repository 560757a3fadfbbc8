// Package platform declares the interfaces the engine consumes from the
// device platform: the health data store, the location-fix provider, and the
// reverse geocoder. Production adapters live with the embedding app; tests
// substitute fakes.
package platform

import (
	"context"
	"time"

	"github.com/sgzrov/Voyant/internal/types"
)

// DeltaResult is the outcome of an anchored delta query. Cursor is opaque;
// the engine persists it untouched.
type DeltaResult struct {
	Added   []types.RawSample
	Deleted []types.RecordID
	Cursor  string
}

// ChangeEvent notifies that records of Type were created, updated or deleted
// in the platform store.
type ChangeEvent struct {
	Type types.RecordType
	At   time.Time
}

// HealthStore is the platform data store the engine mirrors from.
type HealthStore interface {
	// QueryDelta returns records added/deleted since cursor. An empty cursor
	// means "from the beginning of history": on first run the result set is
	// the full history and must not be treated as an incremental change.
	QueryDelta(ctx context.Context, rt types.RecordType, cursor string) (DeltaResult, error)

	// QueryWindow returns all samples of rt in [start, end), bypassing
	// cursors. Used for seed chunks and the deletion lookback window.
	QueryWindow(ctx context.Context, rt types.RecordType, start, end time.Time) ([]types.RawSample, error)

	// Observe delivers change events for rt on the returned channel until
	// ctx is cancelled. The channel is closed on cancellation.
	Observe(ctx context.Context, rt types.RecordType) (<-chan ChangeEvent, error)
}

// Fix is one geographic location observation.
type Fix struct {
	Latitude  float64
	Longitude float64
	At        time.Time
}

// LocationProvider yields location fixes on demand. Implementations must
// surface permission denial as an error; the engine degrades to unknown
// timezone context instead of propagating it.
type LocationProvider interface {
	CurrentFix(ctx context.Context) (Fix, error)
}

// GeocodeResult maps a coordinate to its timezone and locality.
type GeocodeResult struct {
	TZName string
	Place  types.Place
}

// Geocoder reverse-geocodes a fix.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodeResult, error)
}
