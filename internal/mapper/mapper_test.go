package mapper

import (
	"strings"
	"testing"
	"time"

	"github.com/sgzrov/Voyant/internal/errs"
	"github.com/sgzrov/Voyant/internal/types"
)

// staticResolver returns a fixed resolution for any timestamp at or after
// knownFrom and unknown before it.
type staticResolver struct {
	knownFrom time.Time
	res       types.TZResolution
}

func (r staticResolver) Resolve(ts time.Time) types.TZResolution {
	if ts.Before(r.knownFrom) {
		return types.TZResolution{}
	}
	return r.res
}

var (
	testStart = time.Date(2026, 3, 5, 8, 30, 0, 0, time.UTC)
	testNow   = time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
)

func newTestMapper() *Mapper {
	resolver := staticResolver{
		knownFrom: testStart.AddDate(0, -1, 0),
		res: types.TZResolution{
			Known:        true,
			TZName:       "Europe/London",
			UTCOffsetMin: 0,
			OffsetKnown:  true,
			Place:        types.Place{Country: "GB", City: "London"},
		},
	}
	return New("user-1", resolver, func() time.Time { return testNow })
}

func TestMapPointSample(t *testing.T) {
	m := newTestMapper()
	rows, err := m.MapSample(types.RawSample{
		ID:             "hk-1",
		StartTime:      testStart,
		Value:          62,
		SourceName:     "Apple Watch",
		SourceBundleID: "com.apple.health",
		SourceVersion:  "11.2",
	}, types.TypeHeartRate)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	r := rows[0]
	if r.MetricType != "heart_rate" || r.Value != 62 || r.Unit != "bpm" {
		t.Fatalf("row = %+v", r)
	}
	if r.Operation != types.OpUpsert || r.RecordID != "hk-1" {
		t.Fatalf("row identity = %+v", r)
	}
	if r.TZName != "Europe/London" || r.Country != "GB" {
		t.Fatalf("timezone context missing: %+v", r)
	}
	if !r.CreatedAt.Equal(testNow) {
		t.Fatalf("created_at = %v", r.CreatedAt)
	}
}

// Fraction-reported percentages rescale x100.
func TestMapPercentFraction(t *testing.T) {
	m := newTestMapper()
	rows, err := m.MapSample(types.RawSample{
		ID:        "hk-spo2",
		StartTime: testStart,
		Value:     0.97,
	}, types.TypeOxygenSaturation)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if got := rows[0].Value; got != 97 {
		t.Fatalf("value = %v, want 97", got)
	}
	if rows[0].Unit != "percent" {
		t.Fatalf("unit = %q", rows[0].Unit)
	}

	csv := string(EncodeCSV(rows))
	if !strings.Contains(csv, ",97.00,") {
		t.Fatalf("serialized value wrong:\n%s", csv)
	}
}

func TestMapIntervalSample(t *testing.T) {
	m := newTestMapper()
	end := testStart.Add(7*time.Hour + 30*time.Minute)
	rows, err := m.MapSample(types.RawSample{
		ID:        "hk-sleep",
		StartTime: testStart,
		EndTime:   end,
		Value:     999, // embedded value is ignored for intervals
	}, types.TypeSleep)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	r := rows[0]
	if r.Value != 7.5 || r.Unit != "hours" {
		t.Fatalf("row = %+v, want 7.5 hours", r)
	}
	if !r.EndTimestamp.Equal(end) {
		t.Fatalf("end timestamp = %v", r.EndTimestamp)
	}

	// Minutes-denominated intervals scale accordingly.
	rows, err = m.MapSample(types.RawSample{
		ID:        "hk-mind",
		StartTime: testStart,
		EndTime:   testStart.Add(15 * time.Minute),
	}, types.TypeMindfulness)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if rows[0].Value != 15 || rows[0].Unit != "minutes" {
		t.Fatalf("row = %+v, want 15 minutes", rows[0])
	}
}

func TestMapIntervalEndBeforeStart(t *testing.T) {
	m := newTestMapper()
	_, err := m.MapSample(types.RawSample{
		ID:        "hk-bad",
		StartTime: testStart,
		EndTime:   testStart.Add(-time.Hour),
	}, types.TypeSleep)
	if err == nil || !errs.IsIrrecoverable(err) {
		t.Fatalf("err = %v, want irrecoverable", err)
	}
}

func TestMapUnknownTypeIrrecoverable(t *testing.T) {
	m := newTestMapper()
	_, err := m.MapSample(types.RawSample{ID: "hk-x", StartTime: testStart}, types.RecordType("blood_type"))
	if err == nil || !errs.IsIrrecoverable(err) {
		t.Fatalf("err = %v, want irrecoverable", err)
	}
}

func TestMapWorkoutDerivedRows(t *testing.T) {
	m := newTestMapper()
	end := testStart.Add(45 * time.Minute)
	rows, err := m.MapSample(types.RawSample{
		ID:        "hk-workout",
		StartTime: testStart,
		EndTime:   end,
		Stats:     &types.CompositeStats{DurationMin: 45, DistanceKm: 8.2, EnergyKcal: 512},
	}, types.TypeWorkout)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3 derived", len(rows))
	}

	want := map[string]struct {
		value float64
		unit  string
	}{
		"workout_duration_min": {45, "minutes"},
		"workout_distance_km":  {8.2, "km"},
		"workout_energy_kcal":  {512, "kcal"},
	}
	for _, r := range rows {
		w, ok := want[r.MetricType]
		if !ok {
			t.Fatalf("unexpected derived metric %q", r.MetricType)
		}
		if r.Value != w.value || r.Unit != w.unit {
			t.Fatalf("%s = %v %s, want %v %s", r.MetricType, r.Value, r.Unit, w.value, w.unit)
		}
		if r.RecordID != "hk-workout|"+r.MetricType {
			t.Fatalf("derived id = %q", r.RecordID)
		}
		if !r.EndTimestamp.Equal(end) {
			t.Fatalf("derived row lost end timestamp: %+v", r)
		}
	}
}

func TestMapWorkoutWithoutStats(t *testing.T) {
	m := newTestMapper()
	_, err := m.MapSample(types.RawSample{ID: "hk-w", StartTime: testStart}, types.TypeWorkout)
	if err == nil || !errs.IsIrrecoverable(err) {
		t.Fatalf("err = %v, want irrecoverable", err)
	}
}

// Timezone context follows the sample's own start time.
func TestMapTimezoneFromSampleTime(t *testing.T) {
	m := newTestMapper()
	// Older than the resolver's history: row carries no timezone context.
	old := testStart.AddDate(-1, 0, 0)
	rows, err := m.MapSample(types.RawSample{ID: "hk-old", StartTime: old, Value: 70}, types.TypeHeartRate)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	r := rows[0]
	if r.TZName != "" || r.OffsetKnown || r.Country != "" {
		t.Fatalf("pre-history sample must omit timezone fields: %+v", r)
	}
}

func TestMapDeletionTombstones(t *testing.T) {
	m := newTestMapper()

	rows := m.MapDeletion("hk-1", types.TypeHeartRate)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	r := rows[0]
	if r.Operation != types.OpDelete || r.RecordID != "hk-1" {
		t.Fatalf("tombstone = %+v", r)
	}
	if r.UserID != "" || r.MetricType != "" || r.Value != 0 || r.TZName != "" {
		t.Fatalf("tombstone must carry only id and operation: %+v", r)
	}

	// Composite deletions fan out over derived ids too.
	rows = m.MapDeletion("hk-workout", types.TypeWorkout)
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want base + 3 derived", len(rows))
	}
	ids := map[string]bool{}
	for _, r := range rows {
		if r.Operation != types.OpDelete {
			t.Fatalf("non-tombstone in deletion output: %+v", r)
		}
		ids[r.RecordID] = true
	}
	for _, want := range []string{
		"hk-workout",
		"hk-workout|workout_duration_min",
		"hk-workout|workout_distance_km",
		"hk-workout|workout_energy_kcal",
	} {
		if !ids[want] {
			t.Fatalf("missing tombstone %q in %v", want, ids)
		}
	}
}

func TestMapMetadataEncoding(t *testing.T) {
	m := newTestMapper()
	rows, err := m.MapSample(types.RawSample{
		ID:        "hk-meta",
		StartTime: testStart,
		Value:     120,
		Metadata: map[string]types.MetadataValue{
			"context": types.MetaStr("post-exercise"),
		},
	}, types.TypeBloodPressureSystolic)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if rows[0].MetadataJSON != `{"context":"post-exercise"}` {
		t.Fatalf("metadata = %q", rows[0].MetadataJSON)
	}
}
