package types

import "time"

// ------------------------------
// Raw records (platform store side)
// ------------------------------

// RecordID is the platform store's globally unique, re-fetch-stable sample id.
type RecordID string

// RawSample is one record as handed over by the platform data store, before
// mapping. For interval kinds Value is ignored; for composites the Stats
// block carries the derived quantities.
type RawSample struct {
	ID             RecordID
	StartTime      time.Time
	EndTime        time.Time
	Value          float64
	SourceName     string
	SourceBundleID string
	SourceVersion  string
	// Stats is populated for composite (workout) samples only.
	Stats *CompositeStats
	// Metadata holds arbitrary per-sample key/values; filtered to JSON-safe
	// kinds at the mapping boundary.
	Metadata map[string]MetadataValue
}

// CompositeStats are the workout-level statistics a composite record exposes.
type CompositeStats struct {
	DurationMin float64
	DistanceKm  float64
	EnergyKcal  float64
}

// RawChange is the outcome of one delta fetch for a record type.
type RawChange struct {
	Type    RecordType
	Added   []RawSample
	Deleted []RecordID
}

// Empty reports whether the change carries no work at all.
func (c RawChange) Empty() bool {
	return len(c.Added) == 0 && len(c.Deleted) == 0
}

// ------------------------------
// Canonical output (backend side)
// ------------------------------

// Operation marks a MirrorRow as a value write or a tombstone.
type Operation string

const (
	OpUpsert Operation = "upsert"
	OpDelete Operation = "delete"
)

// MirrorRow is the canonical wire unit. A delete row carries only RecordID
// and Operation; every other field stays zero. It is a tombstone, not a
// value update.
type MirrorRow struct {
	UserID        string
	Timestamp     time.Time
	EndTimestamp  time.Time // zero when not an interval
	MetricType    string
	Value         float64
	Unit          string
	SourceLabel   string
	TZName        string // empty == unknown
	UTCOffsetMin  int
	OffsetKnown   bool
	Country       string
	Region        string
	City          string
	CreatedAt     time.Time
	Operation     Operation
	RecordID      string
	SourceBundle  string
	SourceName    string
	SourceVersion string
	MetadataJSON  string
}

// Tombstone builds a delete row for id; the caller supplies nothing else.
func Tombstone(id string) MirrorRow {
	return MirrorRow{Operation: OpDelete, RecordID: id}
}

// UploadMode distinguishes a one-time historical seed from an incremental
// delta batch on the wire.
type UploadMode string

const (
	ModeSeed  UploadMode = "seed"
	ModeDelta UploadMode = "delta"
)

// UploadBatch is one unit of delivery. IdempotencyKey is the sha256 hex of
// the serialized payload and is computed by the uploader, never by callers.
type UploadBatch struct {
	Mode UploadMode
	Rows []MirrorRow

	// Seed chunk bookkeeping; zero values for delta batches.
	BatchID    string
	ChunkIndex int
	ChunkTotal int
}
