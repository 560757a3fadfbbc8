package types

// ------------------------------
// Record type registry
// ------------------------------

// Aggregation describes how the backend rolls a metric up over time buckets.
type Aggregation int

const (
	// Sum metrics accumulate (steps, energy, distance).
	Sum Aggregation = iota
	// Average metrics are sampled levels (heart rate, SpO2, body mass).
	Average
)

func (a Aggregation) String() string {
	if a == Sum {
		return "sum"
	}
	return "average"
}

// SampleKind classifies the raw shape a record type arrives in.
type SampleKind int

const (
	// PointSample carries a single value at (or over) a timestamp.
	PointSample SampleKind = iota
	// IntervalSample derives its value from end-start duration (sleep,
	// mindfulness); any embedded value field is ignored.
	IntervalSample
	// CompositeSample is a workout-like record producing several derived rows.
	CompositeSample
)

// RecordType identifies one mirrored metric stream. The string value is the
// wire-level metric_type column.
type RecordType string

const (
	TypeHeartRate              RecordType = "heart_rate"
	TypeRestingHeartRate       RecordType = "resting_heart_rate"
	TypeWalkingHeartRateAvg    RecordType = "walking_hr_avg"
	TypeHRVariabilitySDNN      RecordType = "hr_variability_sdnn"
	TypeOxygenSaturation       RecordType = "oxygen_saturation"
	TypeRespiratoryRate        RecordType = "respiratory_rate"
	TypeBodyTemperature        RecordType = "body_temperature"
	TypeBodyMass               RecordType = "body_mass"
	TypeBodyMassIndex          RecordType = "body_mass_index"
	TypeBloodGlucose           RecordType = "blood_glucose"
	TypeBloodPressureSystolic  RecordType = "blood_pressure_systolic"
	TypeBloodPressureDiastolic RecordType = "blood_pressure_diastolic"
	TypeVO2Max                 RecordType = "vo2_max"
	TypeWalkingSpeed           RecordType = "walking_speed"
	TypeSteps                  RecordType = "steps"
	TypeActiveEnergyBurned     RecordType = "active_energy_burned"
	TypeDistanceWalkingRunning RecordType = "distance_walking_running_km"
	TypeDistanceCycling        RecordType = "distance_cycling_km"
	TypeDistanceSwimming       RecordType = "distance_swimming_km"
	TypeDietaryWater           RecordType = "dietary_water"
	TypeSleep                  RecordType = "sleep_hours"
	TypeMindfulness            RecordType = "mindfulness_minutes"
	TypeWorkout                RecordType = "workout"
)

// Derived metric names emitted for composite (workout) records. Each derived
// row gets a synthetic id "<record_id>|<name>" so it can be upserted and
// tombstoned independently.
const (
	DerivedWorkoutDuration = "workout_duration_min"
	DerivedWorkoutDistance = "workout_distance_km"
	DerivedWorkoutEnergy   = "workout_energy_kcal"
)

// WorkoutDerivedMetrics is the fixed derived set, in emission order.
var WorkoutDerivedMetrics = []string{
	DerivedWorkoutDuration,
	DerivedWorkoutDistance,
	DerivedWorkoutEnergy,
}

// RecordSpec declares per-type mapping behavior. The aggregation split and
// the percent-as-fraction flags are an explicit table, not an inferred rule:
// the backend's rollup SQL names each metric individually and this table
// mirrors it.
type RecordSpec struct {
	Type        RecordType
	Kind        SampleKind
	Aggregation Aggregation
	// Unit is the canonical wire unit after conversion.
	Unit string
	// PercentAsFraction marks metrics the platform store reports as 0..1
	// fractions; the mapper rescales them x100 into percent.
	PercentAsFraction bool
}

var registry = map[RecordType]RecordSpec{
	TypeHeartRate:              {TypeHeartRate, PointSample, Average, "bpm", false},
	TypeRestingHeartRate:       {TypeRestingHeartRate, PointSample, Average, "bpm", false},
	TypeWalkingHeartRateAvg:    {TypeWalkingHeartRateAvg, PointSample, Average, "bpm", false},
	TypeHRVariabilitySDNN:      {TypeHRVariabilitySDNN, PointSample, Average, "ms", false},
	TypeOxygenSaturation:       {TypeOxygenSaturation, PointSample, Average, "percent", true},
	TypeRespiratoryRate:        {TypeRespiratoryRate, PointSample, Average, "breaths/min", false},
	TypeBodyTemperature:        {TypeBodyTemperature, PointSample, Average, "degC", false},
	TypeBodyMass:               {TypeBodyMass, PointSample, Average, "kg", false},
	TypeBodyMassIndex:          {TypeBodyMassIndex, PointSample, Average, "count", false},
	TypeBloodGlucose:           {TypeBloodGlucose, PointSample, Average, "mg/dL", false},
	TypeBloodPressureSystolic:  {TypeBloodPressureSystolic, PointSample, Average, "mmHg", false},
	TypeBloodPressureDiastolic: {TypeBloodPressureDiastolic, PointSample, Average, "mmHg", false},
	TypeVO2Max:                 {TypeVO2Max, PointSample, Average, "mL/kg/min", false},
	TypeWalkingSpeed:           {TypeWalkingSpeed, PointSample, Average, "km/h", false},
	TypeSteps:                  {TypeSteps, PointSample, Sum, "count", false},
	TypeActiveEnergyBurned:     {TypeActiveEnergyBurned, PointSample, Sum, "kcal", false},
	TypeDistanceWalkingRunning: {TypeDistanceWalkingRunning, PointSample, Sum, "km", false},
	TypeDistanceCycling:        {TypeDistanceCycling, PointSample, Sum, "km", false},
	TypeDistanceSwimming:       {TypeDistanceSwimming, PointSample, Sum, "km", false},
	TypeDietaryWater:           {TypeDietaryWater, PointSample, Sum, "mL", false},
	TypeSleep:                  {TypeSleep, IntervalSample, Sum, "hours", false},
	TypeMindfulness:            {TypeMindfulness, IntervalSample, Sum, "minutes", false},
	TypeWorkout:                {TypeWorkout, CompositeSample, Sum, "", false},
}

// Spec returns the mapping spec for rt; ok is false for unknown types, which
// the mapper treats as a permanent per-sample error (skip, don't abort).
func Spec(rt RecordType) (RecordSpec, bool) {
	s, ok := registry[rt]
	return s, ok
}

// AllRecordTypes returns every registered type. Order is unspecified; callers
// needing determinism sort the result.
func AllRecordTypes() []RecordType {
	out := make([]RecordType, 0, len(registry))
	for rt := range registry {
		out = append(out, rt)
	}
	return out
}

// IsKnown reports whether rt is registered.
func IsKnown(rt RecordType) bool {
	_, ok := registry[rt]
	return ok
}
