package types

import (
	"encoding/json"
	"time"
)

// MetadataKind tags the JSON-safe primitive kinds a metadata value may hold.
// Anything else (nested objects, binary blobs) is dropped at the mapping
// boundary instead of being serialized opaquely.
type MetadataKind int

const (
	MetaString MetadataKind = iota
	MetaNumber
	MetaTimestamp
)

// MetadataValue is a tagged union over the supported primitive kinds.
type MetadataValue struct {
	Kind MetadataKind
	Str  string
	Num  float64
	Time time.Time
}

// MetaStr wraps a string value.
func MetaStr(s string) MetadataValue { return MetadataValue{Kind: MetaString, Str: s} }

// MetaNum wraps a numeric value.
func MetaNum(f float64) MetadataValue { return MetadataValue{Kind: MetaNumber, Num: f} }

// MetaTime wraps a timestamp value.
func MetaTime(t time.Time) MetadataValue { return MetadataValue{Kind: MetaTimestamp, Time: t} }

// EncodeMetadata renders md as a compact JSON object with keys in sorted
// order so identical metadata always serializes to identical bytes. Returns
// "" for empty input.
func EncodeMetadata(md map[string]MetadataValue) (string, error) {
	if len(md) == 0 {
		return "", nil
	}
	obj := make(map[string]any, len(md))
	for k, v := range md {
		switch v.Kind {
		case MetaString:
			obj[k] = v.Str
		case MetaNumber:
			obj[k] = v.Num
		case MetaTimestamp:
			obj[k] = v.Time.UTC().Format(time.RFC3339)
		}
	}
	// json.Marshal sorts map keys, keeping the encoding deterministic.
	b, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
