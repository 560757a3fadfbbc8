package mapper

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sgzrov/Voyant/internal/types"
)

func sampleRow() types.MirrorRow {
	return types.MirrorRow{
		UserID:        "user-1",
		Timestamp:     time.Date(2026, 3, 5, 8, 30, 0, 0, time.UTC),
		MetricType:    "heart_rate",
		Value:         62,
		Unit:          "bpm",
		SourceLabel:   "Apple Watch",
		TZName:        "Europe/London",
		UTCOffsetMin:  0,
		OffsetKnown:   true,
		Country:       "GB",
		City:          "London",
		CreatedAt:     time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC),
		Operation:     types.OpUpsert,
		RecordID:      "hk-1",
		SourceBundle:  "com.apple.health",
		SourceName:    "Apple Watch",
		SourceVersion: "11.2",
	}
}

func TestEncodeCSVHeaderAndShape(t *testing.T) {
	out := EncodeCSV([]types.MirrorRow{sampleRow()})
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want header + 1 row", len(lines))
	}
	if lines[0] != strings.Join(Columns, ",") {
		t.Fatalf("header = %q", lines[0])
	}
	fields := strings.Split(lines[1], ",")
	if len(fields) != len(Columns) {
		t.Fatalf("fields = %d, want %d", len(fields), len(Columns))
	}
	if fields[0] != "user-1" || fields[1] != "2026-03-05T08:30:00Z" {
		t.Fatalf("row start = %v", fields[:2])
	}
	if fields[4] != "62.00" {
		t.Fatalf("value field = %q, want two decimal places", fields[4])
	}
	if fields[8] != "0" {
		t.Fatalf("offset field = %q, want explicit 0 when known", fields[8])
	}
}

// Identical inputs must serialize to identical bytes: the upload idempotency
// key is a hash of this payload.
func TestEncodeCSVDeterministic(t *testing.T) {
	rows := []types.MirrorRow{sampleRow(), types.Tombstone("hk-2")}
	rows[0].MetadataJSON = `{"a":1,"b":2}`

	first := EncodeCSV(rows)
	for i := 0; i < 20; i++ {
		if !bytes.Equal(first, EncodeCSV(rows)) {
			t.Fatal("serialization not byte-stable")
		}
	}
}

func TestEncodeCSVTombstoneLine(t *testing.T) {
	out := EncodeCSV([]types.MirrorRow{types.Tombstone("hk-9")})
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	fields := strings.Split(lines[1], ",")
	if len(fields) != len(Columns) {
		t.Fatalf("fields = %d, want %d", len(fields), len(Columns))
	}
	for i, f := range fields {
		switch i {
		case colOperation:
			if f != "delete" {
				t.Fatalf("operation = %q", f)
			}
		case colRecordID:
			if f != "hk-9" {
				t.Fatalf("record id = %q", f)
			}
		default:
			if f != "" {
				t.Fatalf("column %s = %q, want empty on tombstone", Columns[i], f)
			}
		}
	}
}

func TestEncodeCSVUnknownOffsetEmpty(t *testing.T) {
	r := sampleRow()
	r.TZName = ""
	r.OffsetKnown = false
	r.UTCOffsetMin = 0
	r.Country, r.City = "", ""

	out := EncodeCSV([]types.MirrorRow{r})
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	fields := strings.Split(lines[1], ",")
	if fields[7] != "" || fields[8] != "" {
		t.Fatalf("timezone/offset = %q/%q, want empty when unknown", fields[7], fields[8])
	}
}

func TestQuoteField(t *testing.T) {
	cases := []struct{ in, want string }{
		{"plain", "plain"},
		{"has,comma", `"has,comma"`},
		{`has"quote`, `"has""quote"`},
		{"line\nbreak", "line break"},
		{"crlf\r\nbreak", "crlf break"},
		{"both,\nkinds", `"both, kinds"`},
	}
	for _, tc := range cases {
		if got := quoteField(tc.in); got != tc.want {
			t.Errorf("quoteField(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEncodeCSVQuotesSourceNames(t *testing.T) {
	r := sampleRow()
	r.SourceLabel = `Oura Ring, "Gen 3"`
	r.SourceName = r.SourceLabel

	out := string(EncodeCSV([]types.MirrorRow{r}))
	if !strings.Contains(out, `"Oura Ring, ""Gen 3"""`) {
		t.Fatalf("source not quoted:\n%s", out)
	}
}

func TestEncodeCSVEmptyBatch(t *testing.T) {
	out := string(EncodeCSV(nil))
	if out != strings.Join(Columns, ",")+"\n" {
		t.Fatalf("empty batch = %q, want header only", out)
	}
}
