// Package syncer orchestrates anchored delta cycles against the platform
// health store and hands mapped rows to the uploader. Cycles are serialized
// per record type through the shard executor; distinct types run
// concurrently with no ordering between them.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sgzrov/Voyant/internal/errs"
	"github.com/sgzrov/Voyant/internal/mapper"
	"github.com/sgzrov/Voyant/internal/platform"
	"github.com/sgzrov/Voyant/internal/shardqueue"
	"github.com/sgzrov/Voyant/internal/store"
	"github.com/sgzrov/Voyant/internal/types"
)

// Executor abstracts the shard executor so tests can run cycles inline.
type Executor interface {
	Submit(ctx context.Context, key string, job shardqueue.Job) error
}

// Uploads is the slice of the upload coordinator the syncer drives.
type Uploads interface {
	UploadDelta(ctx context.Context, rows []types.MirrorRow) error
	UploadSeedChunk(ctx context.Context, batch types.UploadBatch) error
	AcceptedOnBackend(ctx context.Context, batchID string) (map[int]bool, error)
	Pace(ctx context.Context) error
}

// Config tunes cycle behavior. These are policy constants, not load-bearing
// for correctness.
type Config struct {
	// DebounceWindow coalesces change notifications per type (default 5s).
	DebounceWindow time.Duration
	// DeletionLookback is the window re-fetched as upserts when a delta
	// carries deletions but no additions (default 24h); the tombstones alone
	// still need a batch to ride in.
	DeletionLookback time.Duration
	// SeedChunk is the time span of one backfill chunk (default 7 days).
	SeedChunk time.Duration
}

func (c Config) withDefaults() Config {
	if c.DebounceWindow <= 0 {
		c.DebounceWindow = 5 * time.Second
	}
	if c.DeletionLookback <= 0 {
		c.DeletionLookback = 24 * time.Hour
	}
	if c.SeedChunk <= 0 {
		c.SeedChunk = 7 * 24 * time.Hour
	}
	return c
}

// Coordinator drives per-type sync cycles and the historical backfill.
type Coordinator struct {
	health  platform.HealthStore
	anchors store.AnchorStore
	seeds   store.SeedStore
	mapper  *mapper.Mapper
	uploads Uploads
	exec    Executor
	cfg     Config
	log     zerolog.Logger
	now     func() time.Time

	debounce *Debouncer
	syncs    []types.RecordType

	mu  sync.Mutex
	gen map[types.RecordType]uint64 // cycle generation, guards stale cursor writes

	wg sync.WaitGroup
}

// New constructs a Coordinator syncing the given record types. now is
// substitutable for tests; nil means time.Now.
func New(health platform.HealthStore, anchors store.AnchorStore, seeds store.SeedStore, m *mapper.Mapper, up Uploads, exec Executor, syncs []types.RecordType, cfg Config, log zerolog.Logger, now func() time.Time) *Coordinator {
	cfg = cfg.withDefaults()
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		health:   health,
		anchors:  anchors,
		seeds:    seeds,
		mapper:   m,
		uploads:  up,
		exec:     exec,
		cfg:      cfg,
		log:      log,
		now:      now,
		debounce: NewDebouncer(cfg.DebounceWindow),
		syncs:    syncs,
		gen:      make(map[types.RecordType]uint64),
	}
}

// Start subscribes to change notifications for every synced type. Observers
// run until ctx is cancelled.
func (c *Coordinator) Start(ctx context.Context) error {
	for _, rt := range c.syncs {
		if err := types.ValidateRecordType(rt); err != nil {
			return err
		}
		ch, err := c.health.Observe(ctx, rt)
		if err != nil {
			return fmt.Errorf("observe %s: %w", rt, err)
		}
		c.wg.Add(1)
		go func(rt types.RecordType, ch <-chan platform.ChangeEvent) {
			defer c.wg.Done()
			for range ch {
				c.NotifyChange(ctx, rt)
			}
		}(rt, ch)
	}
	return nil
}

// Stop cancels pending debounce timers and waits for observer goroutines.
// The caller cancels the Start context first.
func (c *Coordinator) Stop() {
	c.debounce.Stop()
	c.wg.Wait()
}

// NotifyChange schedules a debounced delta cycle for rt. Bursts within the
// debounce window collapse into a single cycle.
func (c *Coordinator) NotifyChange(ctx context.Context, rt types.RecordType) {
	c.debounce.Trigger(string(rt), func() {
		job := shardqueue.JobFunc(func(jobCtx context.Context) error {
			return c.RunCycle(jobCtx, rt)
		})
		if err := c.exec.Submit(ctx, string(rt), job); err != nil {
			c.log.Warn().Str("type", string(rt)).Err(err).Msg("syncer: cycle submit rejected")
		}
	})
}

// RunCycle executes one delta cycle for rt. Exported for the executor and
// for explicit kicks; concurrent calls for the same type must be serialized
// by the caller (the shard executor does this by key).
func (c *Coordinator) RunCycle(ctx context.Context, rt types.RecordType) error {
	gen := c.beginCycle(rt)

	cursor, hadCursor, err := c.anchors.LoadAnchor(ctx, rt)
	if err != nil {
		cyclesTotal.WithLabelValues(string(rt), outcomeError).Inc()
		return fmt.Errorf("cycle %s: %w", rt, err)
	}

	delta, err := c.health.QueryDelta(ctx, rt, cursor)
	if err != nil {
		// Cursor untouched; the next notification retries safely.
		cyclesTotal.WithLabelValues(string(rt), outcomeError).Inc()
		return fmt.Errorf("cycle %s: delta query: %w", rt, err)
	}

	if !hadCursor {
		// First run: the "delta" is the full history, not a change. Establish
		// the anchor silently; the explicit seed flow transfers history.
		if err := c.commitCursor(ctx, rt, delta.Cursor, gen); err != nil {
			cyclesTotal.WithLabelValues(string(rt), outcomeError).Inc()
			return err
		}
		firstRunTotal.WithLabelValues(string(rt)).Inc()
		cyclesTotal.WithLabelValues(string(rt), outcomeFirstRun).Inc()
		c.log.Info().Str("type", string(rt)).Int("discarded", len(delta.Added)).
			Msg("syncer: first run, anchor established")
		return nil
	}

	change := types.RawChange{Type: rt, Added: delta.Added, Deleted: delta.Deleted}

	var rows []types.MirrorRow
	if !change.Empty() {
		rows, err = c.mapChange(ctx, change)
		if err != nil {
			cyclesTotal.WithLabelValues(string(rt), outcomeError).Inc()
			return err
		}
	}

	if len(rows) > 0 {
		if err := c.uploads.UploadDelta(ctx, rows); err != nil {
			// Cursor not advanced: the retried cycle re-fetches the same
			// delta and produces the same idempotency key.
			cyclesTotal.WithLabelValues(string(rt), outcomeError).Inc()
			return fmt.Errorf("cycle %s: %w", rt, err)
		}
	}

	// Persist the cursor only after the batch is handed off.
	if err := c.commitCursor(ctx, rt, delta.Cursor, gen); err != nil {
		cyclesTotal.WithLabelValues(string(rt), outcomeStale).Inc()
		return err
	}
	cyclesTotal.WithLabelValues(string(rt), outcomeOK).Inc()
	return nil
}

// mapChange maps a change's additions and deletions to mirror rows. A change
// carrying deletions but no additions pulls in the lookback window so the
// tombstones ride in a batch with current context.
func (c *Coordinator) mapChange(ctx context.Context, change types.RawChange) ([]types.MirrorRow, error) {
	rt := change.Type
	added := change.Added
	if len(change.Deleted) > 0 && len(added) == 0 {
		end := c.now()
		window, err := c.health.QueryWindow(ctx, rt, end.Add(-c.cfg.DeletionLookback), end)
		if err != nil {
			return nil, fmt.Errorf("cycle %s: lookback query: %w", rt, err)
		}
		added = window
	}

	var rows []types.MirrorRow
	for _, s := range added {
		mapped, err := c.mapper.MapSample(s, rt)
		if err != nil {
			if errs.IsIrrecoverable(err) {
				// One bad sample never sinks the batch.
				samplesSkipped.WithLabelValues(string(rt)).Inc()
				c.log.Warn().Str("type", string(rt)).Str("record", string(s.ID)).Err(err).
					Msg("syncer: sample skipped")
				continue
			}
			return nil, err
		}
		rows = append(rows, mapped...)
	}
	for _, id := range change.Deleted {
		rows = append(rows, c.mapper.MapDeletion(id, rt)...)
	}
	return rows, nil
}

func (c *Coordinator) beginCycle(rt types.RecordType) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen[rt]++
	return c.gen[rt]
}

// commitCursor persists cursor unless a newer cycle for rt has begun since
// gen was issued; an out-of-order completion must not clobber the anchor
// with stale data.
func (c *Coordinator) commitCursor(ctx context.Context, rt types.RecordType, cursor string, gen uint64) error {
	c.mu.Lock()
	current := c.gen[rt]
	c.mu.Unlock()
	if current != gen {
		return fmt.Errorf("cycle %s: superseded (gen %d < %d), cursor not advanced", rt, gen, current)
	}
	if err := c.anchors.SaveAnchor(ctx, rt, cursor); err != nil {
		return fmt.Errorf("cycle %s: save anchor: %w", rt, err)
	}
	return nil
}
