package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sgzrov/Voyant/internal/errs"
	"github.com/sgzrov/Voyant/internal/store"
	"github.com/sgzrov/Voyant/internal/types"
)

// seedBatchPlan is the resolved chunking plan for one backfill run. ChunkSpan
// rides with the persisted batch, not the live config, so a resume reproduces
// the original chunk windows (and payload hashes) even after the chunk-size
// setting changed.
type seedBatchPlan struct {
	BatchID     string
	ChunkTotal  int
	ChunkSpan   time.Duration
	WindowStart time.Time
	WindowEnd   time.Time
}

func (p seedBatchPlan) asStoreBatch() store.SeedBatch {
	return store.SeedBatch{
		BatchID:     p.BatchID,
		ChunkTotal:  p.ChunkTotal,
		ChunkSpan:   p.ChunkSpan,
		WindowStart: p.WindowStart,
		WindowEnd:   p.WindowEnd,
	}
}

// chunkWindow returns chunk i's (1-based) half-open window; the last chunk
// is clipped to the batch end.
func (p seedBatchPlan) chunkWindow(i int) (time.Time, time.Time) {
	start := p.WindowStart.Add(time.Duration(i-1) * p.ChunkSpan)
	end := start.Add(p.ChunkSpan)
	if end.After(p.WindowEnd) {
		end = p.WindowEnd
	}
	return start, end
}

// RunBackfill transfers the last `span` of history in fixed-size chunks,
// oldest first. It resumes an interrupted batch: chunks the backend already
// accepted are skipped, and the batch is marked complete only after the
// final chunk is accepted. A chunk failure stops this run; cursors are
// untouched either way, since backfill bypasses anchors entirely.
func (c *Coordinator) RunBackfill(ctx context.Context, span time.Duration) error {
	batch, err := c.resumeOrStartBatch(ctx, span)
	if err != nil {
		return err
	}

	accepted, err := c.seeds.AcceptedChunks(ctx, batch.BatchID)
	if err != nil {
		return fmt.Errorf("backfill: load progress: %w", err)
	}

	// The backend may hold chunks whose local acceptance mark was lost (a
	// crash between ingest completion and the durable mark). Its view wins;
	// an unreachable status endpoint degrades to the local marks.
	if remote, err := c.uploads.AcceptedOnBackend(ctx, batch.BatchID); err == nil {
		for idx := range remote {
			if accepted[idx] {
				continue
			}
			accepted[idx] = true
			if err := c.seeds.MarkChunkAccepted(ctx, batch.BatchID, idx); err != nil {
				return fmt.Errorf("backfill: record backend acceptance: %w", err)
			}
		}
	} else {
		c.log.Debug().Str("batch_id", batch.BatchID).Err(err).
			Msg("syncer: seed status unavailable")
	}

	for i := 1; i <= batch.ChunkTotal; i++ {
		if accepted[i] {
			continue
		}
		start, end := batch.chunkWindow(i)
		rows, err := c.collectWindow(ctx, start, end)
		if err != nil {
			return fmt.Errorf("backfill chunk %d/%d: %w", i, batch.ChunkTotal, err)
		}
		if err := c.uploads.UploadSeedChunk(ctx, types.UploadBatch{
			Mode:       types.ModeSeed,
			Rows:       rows,
			BatchID:    batch.BatchID,
			ChunkIndex: i,
			ChunkTotal: batch.ChunkTotal,
		}); err != nil {
			return err
		}
		if i < batch.ChunkTotal {
			if err := c.uploads.Pace(ctx); err != nil {
				return err
			}
		}
	}

	// Completion is recorded only once every chunk is accepted, never when
	// merely enqueued.
	if err := c.seeds.MarkSeedCompleted(ctx, batch.BatchID); err != nil {
		return fmt.Errorf("backfill: mark completed: %w", err)
	}
	c.log.Info().Str("batch_id", batch.BatchID).Int("chunks", batch.ChunkTotal).
		Msg("syncer: backfill completed")
	return nil
}

// resumeOrStartBatch reuses the most recent unfinished seed batch so chunk
// windows (and payload hashes) stay stable across restarts, or starts a
// fresh batch.
func (c *Coordinator) resumeOrStartBatch(ctx context.Context, span time.Duration) (seedBatchPlan, error) {
	latest, ok, err := c.seeds.LatestSeedBatch(ctx)
	if err != nil {
		return seedBatchPlan{}, fmt.Errorf("backfill: load latest batch: %w", err)
	}
	if ok && latest.CompletedAt.IsZero() {
		span := latest.ChunkSpan
		if span <= 0 {
			span = c.cfg.SeedChunk
		}
		c.log.Info().Str("batch_id", latest.BatchID).Msg("syncer: resuming seed batch")
		return seedBatchPlan{
			BatchID:     latest.BatchID,
			ChunkTotal:  latest.ChunkTotal,
			ChunkSpan:   span,
			WindowStart: latest.WindowStart,
			WindowEnd:   latest.WindowEnd,
		}, nil
	}

	end := c.now().UTC()
	start := end.Add(-span)
	total := int((span + c.cfg.SeedChunk - 1) / c.cfg.SeedChunk) // ceil
	if total < 1 {
		return seedBatchPlan{}, errs.Permanent(fmt.Errorf("backfill: span %s too small", span))
	}
	plan := seedBatchPlan{
		BatchID:     uuid.NewString(),
		ChunkTotal:  total,
		ChunkSpan:   c.cfg.SeedChunk,
		WindowStart: start,
		WindowEnd:   end,
	}
	if err := c.seeds.StartSeedBatch(ctx, plan.asStoreBatch()); err != nil {
		return seedBatchPlan{}, fmt.Errorf("backfill: start batch: %w", err)
	}
	return plan, nil
}

// collectWindow queries and maps every synced type over one time window.
// Per-sample mapping failures are skipped, matching delta cycle behavior.
func (c *Coordinator) collectWindow(ctx context.Context, start, end time.Time) ([]types.MirrorRow, error) {
	var rows []types.MirrorRow
	for _, rt := range c.syncs {
		samples, err := c.health.QueryWindow(ctx, rt, start, end)
		if err != nil {
			return nil, fmt.Errorf("window query %s: %w", rt, err)
		}
		for _, s := range samples {
			mapped, err := c.mapper.MapSample(s, rt)
			if err != nil {
				if errs.IsIrrecoverable(err) {
					samplesSkipped.WithLabelValues(string(rt)).Inc()
					continue
				}
				return nil, err
			}
			rows = append(rows, mapped...)
		}
	}
	return rows, nil
}
