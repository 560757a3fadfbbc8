// Package store persists the engine's durable state: per-type anchor
// cursors, the two timezone timelines, and seed batch progress. The sqlite
// implementation backs production use; MemStore backs tests.
package store

import (
	"context"
	"time"

	"github.com/sgzrov/Voyant/internal/types"
)

// Timeline source names used as the persistence key for the two independent
// timezone histories.
const (
	TimelineDevice  = "device"
	TimelineGeocode = "geocode"
)

// AnchorStore persists opaque delta-fetch cursors per record type. Cursor
// content is never validated; absence signals "first run for this type".
type AnchorStore interface {
	LoadAnchor(ctx context.Context, rt types.RecordType) (cursor string, ok bool, err error)
	SaveAnchor(ctx context.Context, rt types.RecordType, cursor string) error
}

// TimelineStore persists timezone history entries per timeline source.
// Ordering/dedupe invariants are enforced by the tzhistory package; the
// store only appends, loads in order, and prunes beyond a bound.
type TimelineStore interface {
	AppendTimelineEntry(ctx context.Context, source string, e types.TimezoneHistoryEntry) error
	LoadTimeline(ctx context.Context, source string) ([]types.TimezoneHistoryEntry, error)
	PruneTimeline(ctx context.Context, source string, keep int) error
}

// SeedBatch summarizes one historical backfill attempt. WindowStart/End and
// ChunkSpan pin the covered range and per-chunk size so a resumed batch
// re-derives the exact same chunk windows (and therefore the same payload
// hashes) even if configuration changed in between.
type SeedBatch struct {
	BatchID     string
	ChunkTotal  int
	ChunkSpan   time.Duration
	WindowStart time.Time
	WindowEnd   time.Time
	StartedAt   time.Time
	CompletedAt time.Time // zero until the final chunk is accepted
}

// SeedStore records which seed chunks the backend has accepted, so an
// interrupted backfill resumes instead of restarting.
type SeedStore interface {
	StartSeedBatch(ctx context.Context, b SeedBatch) error
	MarkChunkAccepted(ctx context.Context, batchID string, chunkIndex int) error
	AcceptedChunks(ctx context.Context, batchID string) (map[int]bool, error)
	MarkSeedCompleted(ctx context.Context, batchID string) error
	// LatestSeedBatch returns the most recently started batch, ok=false when
	// none exists.
	LatestSeedBatch(ctx context.Context) (SeedBatch, bool, error)
}

// Store is the union the engine wires in.
type Store interface {
	AnchorStore
	TimelineStore
	SeedStore
	Close() error
}
