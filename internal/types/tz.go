package types

import "time"

// TZOrigin records which signal produced a timezone history entry.
type TZOrigin string

const (
	// OriginDevice entries come from device timezone-change notifications.
	OriginDevice TZOrigin = "device"
	// OriginGeocode entries come from reverse-geocoded location fixes.
	OriginGeocode TZOrigin = "geocode"
	// OriginSeed entries are the app-launch placeholder written only into an
	// empty timeline so some context exists before a real signal arrives.
	OriginSeed TZOrigin = "seed"
)

// Place is the optional geocoded locality attached to a timezone entry.
type Place struct {
	Country string
	Region  string
	City    string
}

// IsZero reports whether no place information is present.
func (p Place) IsZero() bool { return p == Place{} }

// TimezoneHistoryEntry is one point on a timezone timeline. Timelines record
// changes, not samples: consecutive entries never share a TZName.
type TimezoneHistoryEntry struct {
	EffectiveAt time.Time
	TZName      string
	Place       Place
	Origin      TZOrigin
}

// TZResolution answers "what timezone was active at T". Known is false when
// the query precedes all history; callers must not substitute the current
// device zone in that case.
type TZResolution struct {
	Known  bool
	TZName string
	// UTCOffsetMin is only meaningful when OffsetKnown is true; a TZName whose
	// zone data is unavailable resolves with the name but no offset.
	UTCOffsetMin int
	OffsetKnown  bool
	Place        Place
}
