package tzhistory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sgzrov/Voyant/internal/store"
	"github.com/sgzrov/Voyant/internal/types"
)

// Resolver answers "what timezone was active at T" against the device and
// geocode timelines. Preference order at query time:
//
//  1. a confirmed geocode-origin entry at-or-before T (most specific);
//  2. the device timeline entry at-or-before T;
//  3. unknown, never the current device zone. Guessing "current" would
//     mis-stamp history written before the first recorded signal.
type Resolver struct {
	device *Timeline
	geo    *Timeline
}

// NewResolver restores both timelines from st.
func NewResolver(ctx context.Context, st store.TimelineStore, bound int) (*Resolver, error) {
	device, err := LoadTimeline(ctx, st, store.TimelineDevice, bound)
	if err != nil {
		return nil, err
	}
	geo, err := LoadTimeline(ctx, st, store.TimelineGeocode, bound)
	if err != nil {
		return nil, err
	}
	return &Resolver{device: device, geo: geo}, nil
}

// Resolve returns the timezone context for ts. Known=false means no timeline
// has an entry at-or-before ts.
func (r *Resolver) Resolve(ts time.Time) types.TZResolution {
	if e, ok := r.geo.At(ts); ok && e.Origin == types.OriginGeocode {
		return resolutionFrom(e, ts)
	}
	if e, ok := r.device.At(ts); ok {
		return resolutionFrom(e, ts)
	}
	return types.TZResolution{}
}

// RecordDeviceTimezone appends a device-reported timezone change.
func (r *Resolver) RecordDeviceTimezone(ctx context.Context, tzName string, at time.Time) error {
	return r.device.Append(ctx, types.TimezoneHistoryEntry{
		EffectiveAt: at,
		TZName:      tzName,
		Origin:      types.OriginDevice,
	})
}

// RecordGeocodedFix appends a geocode-derived entry with its place context.
func (r *Resolver) RecordGeocodedFix(ctx context.Context, tzName string, place types.Place, at time.Time) error {
	return r.geo.Append(ctx, types.TimezoneHistoryEntry{
		EffectiveAt: at,
		TZName:      tzName,
		Place:       place,
		Origin:      types.OriginGeocode,
	})
}

// SeedIfEmpty writes a seed entry with the current device zone, but only
// into an empty device timeline, so some context exists before any real
// signal arrives. Seeds never enter the geocode timeline.
//
// currentTZ must be a concrete IANA name. The literal "Local" is rejected:
// stored entries are re-resolved at mapping time, and "Local" would resolve
// to whatever zone the process is in by then, re-stamping seed-era samples
// after travel.
func (r *Resolver) SeedIfEmpty(ctx context.Context, currentTZ string, now time.Time) error {
	if currentTZ == "" || currentTZ == "Local" {
		return fmt.Errorf("tzhistory: %q is not an IANA zone name", currentTZ)
	}
	if !r.device.Empty() {
		return nil
	}
	return r.device.Append(ctx, types.TimezoneHistoryEntry{
		EffectiveAt: now,
		TZName:      currentTZ,
		Origin:      types.OriginSeed,
	})
}

func resolutionFrom(e types.TimezoneHistoryEntry, ts time.Time) types.TZResolution {
	res := types.TZResolution{Known: true, TZName: e.TZName, Place: e.Place}
	loc, err := time.LoadLocation(e.TZName)
	if err != nil {
		// Zone database miss: keep the name, leave the offset unknown rather
		// than fabricating one.
		log.Warn().Str("tz", e.TZName).Err(err).Msg("tzhistory: unknown zone name")
		return res
	}
	_, offsetSec := ts.In(loc).Zone()
	res.UTCOffsetMin = offsetSec / 60
	res.OffsetKnown = true
	return res
}
