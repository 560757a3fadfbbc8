package healthsync

import "github.com/sgzrov/Voyant/internal/types"

// Public type aliases so embedders can import only the healthsync package.
type (
	// Record identity and shape
	RecordType = types.RecordType
	RecordID   = types.RecordID
	RawSample  = types.RawSample
	RawChange  = types.RawChange

	// Canonical output
	MirrorRow   = types.MirrorRow
	UploadBatch = types.UploadBatch
	Operation   = types.Operation
	UploadMode  = types.UploadMode

	// Timezone history
	TimezoneHistoryEntry = types.TimezoneHistoryEntry
	TZResolution         = types.TZResolution
	Place                = types.Place

	// Metadata union
	MetadataValue = types.MetadataValue
)

// Re-exported constants for embedders.
const (
	OpUpsert  = types.OpUpsert
	OpDelete  = types.OpDelete
	ModeSeed  = types.ModeSeed
	ModeDelta = types.ModeDelta
)
