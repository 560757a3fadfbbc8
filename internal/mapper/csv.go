package mapper

import (
	"strconv"
	"strings"
	"time"

	"github.com/sgzrov/Voyant/internal/types"
)

// Columns is the fixed wire column order the backend ingests. Changing it is
// a wire-contract change.
var Columns = []string{
	"user_id",
	"timestamp",
	"end_timestamp",
	"metric_type",
	"metric_value",
	"unit",
	"source",
	"timezone",
	"utc_offset_min",
	"country",
	"region",
	"city",
	"created_at",
	"operation",
	"hk_uuid",
	"hk_source_bundle_id",
	"hk_source_name",
	"hk_source_version",
	"hk_metadata",
}

// EncodeCSV renders rows as the UTF-8 CSV payload: header line, then one
// line per row in Columns order. Encoding the same rows always yields
// byte-identical output, which is what makes the content-hash idempotency
// key stable across retries.
func EncodeCSV(rows []types.MirrorRow) []byte {
	var b strings.Builder
	b.WriteString(strings.Join(Columns, ","))
	b.WriteByte('\n')
	for i := range rows {
		writeRow(&b, &rows[i])
	}
	return []byte(b.String())
}

func writeRow(b *strings.Builder, r *types.MirrorRow) {
	fields := fieldsOf(r)
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(quoteField(f))
	}
	b.WriteByte('\n')
}

// Column positions needed when serializing tombstones.
const (
	colOperation = 13 // "operation"
	colRecordID  = 14 // "hk_uuid"
)

func fieldsOf(r *types.MirrorRow) []string {
	// A tombstone carries only its id and operation; every other field
	// serializes empty.
	if r.Operation == types.OpDelete {
		fields := make([]string, len(Columns))
		fields[colOperation] = string(types.OpDelete)
		fields[colRecordID] = r.RecordID
		return fields
	}

	offset := ""
	if r.OffsetKnown {
		offset = strconv.Itoa(r.UTCOffsetMin)
	}
	return []string{
		r.UserID,
		timeField(r.Timestamp),
		timeField(r.EndTimestamp),
		r.MetricType,
		strconv.FormatFloat(r.Value, 'f', 2, 64),
		r.Unit,
		r.SourceLabel,
		r.TZName,
		offset,
		r.Country,
		r.Region,
		r.City,
		timeField(r.CreatedAt),
		string(r.Operation),
		r.RecordID,
		r.SourceBundle,
		r.SourceName,
		r.SourceVersion,
		r.MetadataJSON,
	}
}

func timeField(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// quoteField applies the wire quoting rule: newlines inside a field flatten
// to spaces; a field containing a comma or double quote is wrapped in double
// quotes with internal quotes doubled.
func quoteField(f string) string {
	if strings.ContainsAny(f, "\r\n") {
		f = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(f)
	}
	if strings.ContainsAny(f, ",\"") {
		return "\"" + strings.ReplaceAll(f, "\"", "\"\"") + "\""
	}
	return f
}
