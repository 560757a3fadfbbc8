package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sgzrov/Voyant/internal/types"
)

// SQLiteStore is the durable Store implementation.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// Open opens (creating if necessary) the state database at path with WAL.
func Open(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	// A single writer keeps sqlite happy under concurrent cycles.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping state db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// ------------------------- anchors -------------------------

func (s *SQLiteStore) LoadAnchor(ctx context.Context, rt types.RecordType) (string, bool, error) {
	var cursor string
	err := s.db.QueryRowContext(ctx,
		`SELECT cursor FROM anchors WHERE record_type = ?`, string(rt)).Scan(&cursor)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load anchor %s: %w", rt, err)
	}
	return cursor, true, nil
}

func (s *SQLiteStore) SaveAnchor(ctx context.Context, rt types.RecordType, cursor string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO anchors (record_type, cursor, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (record_type) DO UPDATE SET
		  cursor = excluded.cursor,
		  updated_at = excluded.updated_at
	`, string(rt), cursor, timeText(time.Now()))
	if err != nil {
		return fmt.Errorf("save anchor %s: %w", rt, err)
	}
	return nil
}

// ------------------------- timezone timelines -------------------------

func (s *SQLiteStore) AppendTimelineEntry(ctx context.Context, source string, e types.TimezoneHistoryEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tz_history (source, effective_at, tz_name, country, region, city, origin)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source, effective_at) DO UPDATE SET
		  tz_name = excluded.tz_name,
		  country = excluded.country,
		  region  = excluded.region,
		  city    = excluded.city,
		  origin  = excluded.origin
	`, source, timeText(e.EffectiveAt), e.TZName, e.Place.Country, e.Place.Region, e.Place.City, string(e.Origin))
	if err != nil {
		return fmt.Errorf("append tz entry (%s): %w", source, err)
	}
	return nil
}

func (s *SQLiteStore) LoadTimeline(ctx context.Context, source string) ([]types.TimezoneHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT effective_at, tz_name, country, region, city, origin
		FROM tz_history
		WHERE source = ?
		ORDER BY effective_at ASC
	`, source)
	if err != nil {
		return nil, fmt.Errorf("load timeline %s: %w", source, err)
	}
	defer rows.Close()

	var out []types.TimezoneHistoryEntry
	for rows.Next() {
		var e types.TimezoneHistoryEntry
		var effective, origin string
		if err := rows.Scan(&effective, &e.TZName, &e.Place.Country, &e.Place.Region, &e.Place.City, &origin); err != nil {
			return nil, fmt.Errorf("scan tz entry: %w", err)
		}
		e.EffectiveAt, err = timeFromText(effective)
		if err != nil {
			return nil, fmt.Errorf("parse tz entry time: %w", err)
		}
		e.Origin = types.TZOrigin(origin)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) PruneTimeline(ctx context.Context, source string, keep int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM tz_history
		WHERE source = ? AND effective_at NOT IN (
		  SELECT effective_at FROM tz_history
		  WHERE source = ?
		  ORDER BY effective_at DESC
		  LIMIT ?
		)
	`, source, source, keep)
	if err != nil {
		return fmt.Errorf("prune timeline %s: %w", source, err)
	}
	return nil
}

// ------------------------- seed progress -------------------------

func (s *SQLiteStore) StartSeedBatch(ctx context.Context, b SeedBatch) error {
	started := b.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO seed_batches (batch_id, chunk_total, chunk_span_secs, window_start, window_end, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (batch_id) DO NOTHING
	`, b.BatchID, b.ChunkTotal, int64(b.ChunkSpan/time.Second), timeText(b.WindowStart), timeText(b.WindowEnd), timeText(started))
	if err != nil {
		return fmt.Errorf("start seed batch: %w", err)
	}
	return nil
}

func (s *SQLiteStore) MarkChunkAccepted(ctx context.Context, batchID string, chunkIndex int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO seed_chunks (batch_id, chunk_index, accepted_at)
		VALUES (?, ?, ?)
		ON CONFLICT (batch_id, chunk_index) DO NOTHING
	`, batchID, chunkIndex, timeText(time.Now()))
	if err != nil {
		return fmt.Errorf("mark chunk accepted: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AcceptedChunks(ctx context.Context, batchID string) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_index FROM seed_chunks WHERE batch_id = ?`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query accepted chunks: %w", err)
	}
	defer rows.Close()

	accepted := make(map[int]bool)
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, fmt.Errorf("scan chunk index: %w", err)
		}
		accepted[idx] = true
	}
	return accepted, rows.Err()
}

func (s *SQLiteStore) MarkSeedCompleted(ctx context.Context, batchID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE seed_batches SET completed_at = ? WHERE batch_id = ?`,
		timeText(time.Now()), batchID)
	if err != nil {
		return fmt.Errorf("mark seed completed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LatestSeedBatch(ctx context.Context) (SeedBatch, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT batch_id, chunk_total, chunk_span_secs, window_start, window_end, started_at, completed_at
		FROM seed_batches
		ORDER BY started_at DESC
		LIMIT 1
	`)
	var b SeedBatch
	var spanSecs int64
	var winStart, winEnd, started string
	var completed sql.NullString
	if err := row.Scan(&b.BatchID, &b.ChunkTotal, &spanSecs, &winStart, &winEnd, &started, &completed); err != nil {
		if err == sql.ErrNoRows {
			return SeedBatch{}, false, nil
		}
		return SeedBatch{}, false, fmt.Errorf("scan seed batch: %w", err)
	}
	b.ChunkSpan = time.Duration(spanSecs) * time.Second
	var err error
	if b.WindowStart, err = timeFromText(winStart); err != nil {
		return SeedBatch{}, false, fmt.Errorf("parse seed window start: %w", err)
	}
	if b.WindowEnd, err = timeFromText(winEnd); err != nil {
		return SeedBatch{}, false, fmt.Errorf("parse seed window end: %w", err)
	}
	b.StartedAt, err = timeFromText(started)
	if err != nil {
		return SeedBatch{}, false, fmt.Errorf("parse seed batch time: %w", err)
	}
	if completed.Valid {
		b.CompletedAt, err = timeFromText(completed.String)
		if err != nil {
			return SeedBatch{}, false, fmt.Errorf("parse seed completed time: %w", err)
		}
	}
	return b, true, nil
}

// ------------------------- helpers -------------------------

// timeLayout pads nanoseconds to a fixed width. RFC3339Nano trims trailing
// zeros, which makes text order diverge from time order ("...00Z" sorts
// after "...00.5Z"); ORDER BY started_at relies on the two matching.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func timeText(t time.Time) string { return t.UTC().Format(timeLayout) }

func timeFromText(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
