// Package uploader drives batch delivery to the backend: payload
// serialization, content-addressed idempotency keys, seed chunk pacing with
// durable per-chunk acceptance, and task-status polling.
package uploader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/sgzrov/Voyant/internal/api"
	"github.com/sgzrov/Voyant/internal/errs"
	"github.com/sgzrov/Voyant/internal/mapper"
	"github.com/sgzrov/Voyant/internal/store"
	"github.com/sgzrov/Voyant/internal/types"
)

// Backend is the wire surface the coordinator needs; the HTTP implementation
// wraps internal/api and tests substitute fakes.
type Backend interface {
	Upload(ctx context.Context, payload []byte, idempotencyKey string, batch types.UploadBatch) (*api.UploadAck, error)
	TaskStatus(ctx context.Context, taskID string) (api.TaskState, error)
	SeedStatus(ctx context.Context, batchID string) (*api.SeedStatusResponse, error)
}

// HTTPBackend calls the real backend.
type HTTPBackend struct {
	HTTP    *http.Client
	BaseURL string
}

func (b *HTTPBackend) Upload(ctx context.Context, payload []byte, key string, batch types.UploadBatch) (*api.UploadAck, error) {
	return api.UploadCSV(ctx, b.HTTP, b.BaseURL, payload, key, batch)
}

func (b *HTTPBackend) TaskStatus(ctx context.Context, taskID string) (api.TaskState, error) {
	return api.TaskStatus(ctx, b.HTTP, b.BaseURL, taskID)
}

func (b *HTTPBackend) SeedStatus(ctx context.Context, batchID string) (*api.SeedStatusResponse, error) {
	return api.SeedStatus(ctx, b.HTTP, b.BaseURL, batchID)
}

// Config tunes delivery behavior.
type Config struct {
	// PollInterval spaces task-status polls for seed chunks (default 3s).
	PollInterval time.Duration
	// PollMaxWait bounds how long one chunk may stay pending before the
	// chunk counts as failed (default 5m).
	PollMaxWait time.Duration
	// ChunkPacing is the delay between consecutive seed chunk uploads
	// (default 2s) to avoid bursty resource use.
	ChunkPacing time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 3 * time.Second
	}
	if c.PollMaxWait <= 0 {
		c.PollMaxWait = 5 * time.Minute
	}
	if c.ChunkPacing <= 0 {
		c.ChunkPacing = 2 * time.Second
	}
	return c
}

// Coordinator owns batch lifecycle from serialized rows to backend
// acknowledgement.
type Coordinator struct {
	backend Backend
	seeds   store.SeedStore
	cfg     Config
	log     zerolog.Logger
}

// New constructs a Coordinator.
func New(backend Backend, seeds store.SeedStore, cfg Config, log zerolog.Logger) *Coordinator {
	return &Coordinator{backend: backend, seeds: seeds, cfg: cfg.withDefaults(), log: log}
}

// IdempotencyKey returns the sha256 hex of payload. Identical payloads hash
// identically, which is the whole dedup contract with the backend.
func IdempotencyKey(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// UploadDelta ships rows as one delta batch. Delivery is fire-and-forget at
// this level: the caller runs inside a retrying executor job, so a returned
// recoverable error re-runs the upload with the same idempotency key.
func (c *Coordinator) UploadDelta(ctx context.Context, rows []types.MirrorRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := types.UploadBatch{Mode: types.ModeDelta, Rows: rows}
	payload := mapper.EncodeCSV(rows)
	key := IdempotencyKey(payload)

	ack, err := c.backend.Upload(ctx, payload, key, batch)
	if err != nil {
		uploadFailures.WithLabelValues(string(types.ModeDelta)).Inc()
		return err
	}
	batchesUploaded.WithLabelValues(string(types.ModeDelta)).Inc()
	rowsUploaded.Add(float64(len(rows)))
	c.log.Debug().
		Str("task_id", ack.TaskID).
		Str("status", ack.Status).
		Int("rows", len(rows)).
		Msg("uploader: delta batch accepted")
	return nil
}

// UploadSeedChunk ships one seed chunk and blocks until the backend reports
// the ingest task terminal. Acceptance is recorded durably only on success,
// so an interrupted seed resumes at this chunk instead of skipping it.
func (c *Coordinator) UploadSeedChunk(ctx context.Context, batch types.UploadBatch) error {
	payload := mapper.EncodeCSV(batch.Rows)
	key := IdempotencyKey(payload)

	ack, err := c.backend.Upload(ctx, payload, key, batch)
	if err != nil {
		uploadFailures.WithLabelValues(string(types.ModeSeed)).Inc()
		return fmt.Errorf("seed chunk %d/%d: %w", batch.ChunkIndex, batch.ChunkTotal, err)
	}
	batchesUploaded.WithLabelValues(string(types.ModeSeed)).Inc()
	rowsUploaded.Add(float64(len(batch.Rows)))

	// "completed" means the backend already absorbed this content hash.
	if ack.Status != "completed" {
		if err := c.awaitTask(ctx, ack.TaskID); err != nil {
			uploadFailures.WithLabelValues(string(types.ModeSeed)).Inc()
			return fmt.Errorf("seed chunk %d/%d: %w", batch.ChunkIndex, batch.ChunkTotal, err)
		}
	}

	if err := c.seeds.MarkChunkAccepted(ctx, batch.BatchID, batch.ChunkIndex); err != nil {
		return fmt.Errorf("seed chunk %d/%d: record acceptance: %w", batch.ChunkIndex, batch.ChunkTotal, err)
	}
	seedChunksAccepted.Inc()
	c.log.Info().
		Str("batch_id", batch.BatchID).
		Int("chunk", batch.ChunkIndex).
		Int("total", batch.ChunkTotal).
		Msg("uploader: seed chunk accepted")
	return nil
}

// AcceptedOnBackend returns the backend's view of which chunks of batchID
// finished ingest. A resume reconciles local acceptance marks against this
// so a chunk the backend absorbed is never re-shipped after a crash between
// ingest completion and the durable local mark.
func (c *Coordinator) AcceptedOnBackend(ctx context.Context, batchID string) (map[int]bool, error) {
	status, err := c.backend.SeedStatus(ctx, batchID)
	if err != nil {
		return nil, err
	}
	accepted := make(map[int]bool, len(status.Chunks))
	for _, chunk := range status.Chunks {
		if strings.EqualFold(chunk.Status, "completed") {
			accepted[chunk.ChunkIndex] = true
		}
	}
	return accepted, nil
}

// Pace sleeps the inter-chunk delay, honouring cancellation.
func (c *Coordinator) Pace(ctx context.Context) error {
	select {
	case <-time.After(c.cfg.ChunkPacing):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// awaitTask polls the ingest task until it is terminal. Transient poll
// errors are retried; a failure state is irrecoverable for this chunk.
func (c *Coordinator) awaitTask(ctx context.Context, taskID string) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(c.cfg.PollInterval),
			uint64(c.cfg.PollMaxWait/c.cfg.PollInterval),
		), ctx)

	return backoff.Retry(func() error {
		state, err := c.backend.TaskStatus(ctx, taskID)
		if err != nil {
			if errs.IsIrrecoverable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		switch state {
		case api.TaskSuccess:
			return nil
		case api.TaskFailure:
			return backoff.Permanent(errs.Permanent(fmt.Errorf("ingest task %s failed", taskID)))
		default:
			return fmt.Errorf("ingest task %s still pending", taskID)
		}
	}, policy)
}
