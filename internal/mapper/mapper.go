// Package mapper converts raw platform records into canonical mirror rows
// and serializes them into the CSV wire format. Mapping is pure: the only
// inputs are the sample, the type registry, and the timezone resolver.
package mapper

import (
	"fmt"
	"time"

	"github.com/sgzrov/Voyant/internal/errs"
	"github.com/sgzrov/Voyant/internal/types"
)

// TZResolver is the slice of tzhistory the mapper needs.
type TZResolver interface {
	Resolve(ts time.Time) types.TZResolution
}

// Mapper turns RawSamples into MirrorRows for one user.
type Mapper struct {
	userID   string
	resolver TZResolver
	now      func() time.Time
}

// New constructs a Mapper. now is substitutable for tests; nil means
// time.Now.
func New(userID string, resolver TZResolver, now func() time.Time) *Mapper {
	if now == nil {
		now = time.Now
	}
	return &Mapper{userID: userID, resolver: resolver, now: now}
}

// MapSample maps one raw sample to its mirror row(s). Unknown record types
// and malformed samples return an irrecoverable error so the caller skips
// the single sample without abandoning the batch.
func (m *Mapper) MapSample(s types.RawSample, rt types.RecordType) ([]types.MirrorRow, error) {
	spec, ok := types.Spec(rt)
	if !ok {
		return nil, errs.Permanent(fmt.Errorf("map sample %s: unknown record type %q", s.ID, rt))
	}

	// Timezone context always comes from the sample's own start time, never
	// from when mapping happens to run.
	tz := m.resolver.Resolve(s.StartTime)

	switch spec.Kind {
	case types.PointSample:
		value := s.Value
		if spec.PercentAsFraction {
			value *= 100
		}
		return []types.MirrorRow{m.row(s, string(s.ID), string(rt), value, spec.Unit, tz)}, nil

	case types.IntervalSample:
		if s.EndTime.Before(s.StartTime) {
			return nil, errs.Permanent(fmt.Errorf("map sample %s: end before start", s.ID))
		}
		value, err := intervalValue(s.EndTime.Sub(s.StartTime), spec.Unit)
		if err != nil {
			return nil, errs.Permanent(fmt.Errorf("map sample %s: %w", s.ID, err))
		}
		r := m.row(s, string(s.ID), string(rt), value, spec.Unit, tz)
		r.EndTimestamp = s.EndTime
		return []types.MirrorRow{r}, nil

	case types.CompositeSample:
		if s.Stats == nil {
			return nil, errs.Permanent(fmt.Errorf("map sample %s: composite without stats", s.ID))
		}
		rows := make([]types.MirrorRow, 0, len(types.WorkoutDerivedMetrics))
		for _, name := range types.WorkoutDerivedMetrics {
			value, unit := derivedQuantity(name, s.Stats)
			r := m.row(s, DerivedID(string(s.ID), name), name, value, unit, tz)
			r.EndTimestamp = s.EndTime
			rows = append(rows, r)
		}
		return rows, nil

	default:
		return nil, errs.Permanent(fmt.Errorf("map sample %s: unhandled sample kind", s.ID))
	}
}

// MapDeletion maps one deleted record id to its tombstone row(s). Composite
// types additionally tombstone every derived metric sharing the id prefix.
func (m *Mapper) MapDeletion(id types.RecordID, rt types.RecordType) []types.MirrorRow {
	rows := []types.MirrorRow{types.Tombstone(string(id))}
	if spec, ok := types.Spec(rt); ok && spec.Kind == types.CompositeSample {
		for _, name := range types.WorkoutDerivedMetrics {
			rows = append(rows, types.Tombstone(DerivedID(string(id), name)))
		}
	}
	return rows
}

// DerivedID forms the synthetic row id for one derived quantity of a
// composite record, so each can be upserted or tombstoned independently.
func DerivedID(recordID, derivedName string) string {
	return recordID + "|" + derivedName
}

func (m *Mapper) row(s types.RawSample, id, metric string, value float64, unit string, tz types.TZResolution) types.MirrorRow {
	r := types.MirrorRow{
		UserID:        m.userID,
		Timestamp:     s.StartTime,
		MetricType:    metric,
		Value:         value,
		Unit:          unit,
		SourceLabel:   s.SourceName,
		CreatedAt:     m.now(),
		Operation:     types.OpUpsert,
		RecordID:      id,
		SourceBundle:  s.SourceBundleID,
		SourceName:    s.SourceName,
		SourceVersion: s.SourceVersion,
	}
	if tz.Known {
		r.TZName = tz.TZName
		r.UTCOffsetMin = tz.UTCOffsetMin
		r.OffsetKnown = tz.OffsetKnown
		r.Country = tz.Place.Country
		r.Region = tz.Place.Region
		r.City = tz.Place.City
	}
	if md, err := types.EncodeMetadata(s.Metadata); err == nil {
		r.MetadataJSON = md
	}
	return r
}

func intervalValue(d time.Duration, unit string) (float64, error) {
	switch unit {
	case "hours":
		return d.Hours(), nil
	case "minutes":
		return d.Minutes(), nil
	case "seconds":
		return d.Seconds(), nil
	default:
		return 0, fmt.Errorf("interval unit %q not supported", unit)
	}
}

func derivedQuantity(name string, stats *types.CompositeStats) (float64, string) {
	switch name {
	case types.DerivedWorkoutDuration:
		return stats.DurationMin, "minutes"
	case types.DerivedWorkoutDistance:
		return stats.DistanceKm, "km"
	case types.DerivedWorkoutEnergy:
		return stats.EnergyKcal, "kcal"
	default:
		return 0, ""
	}
}
