package uploader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sgzrov/Voyant/internal/api"
	"github.com/sgzrov/Voyant/internal/errs"
	"github.com/sgzrov/Voyant/internal/mapper"
	"github.com/sgzrov/Voyant/internal/store"
	"github.com/sgzrov/Voyant/internal/types"
)

type uploadCall struct {
	payload []byte
	key     string
	batch   types.UploadBatch
}

type fakeBackend struct {
	uploads    []uploadCall
	uploadErr  error
	ackStatus  string
	taskStates []api.TaskState // consumed per poll, last repeats
	taskErr    error
	polls      int
	seedStatus *api.SeedStatusResponse
	seedErr    error
}

func (f *fakeBackend) Upload(_ context.Context, payload []byte, key string, batch types.UploadBatch) (*api.UploadAck, error) {
	f.uploads = append(f.uploads, uploadCall{payload: payload, key: key, batch: batch})
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	status := f.ackStatus
	if status == "" {
		status = "queued"
	}
	return &api.UploadAck{TaskID: "task-1", Status: status}, nil
}

func (f *fakeBackend) TaskStatus(context.Context, string) (api.TaskState, error) {
	f.polls++
	if f.taskErr != nil {
		return "", f.taskErr
	}
	i := f.polls - 1
	if i >= len(f.taskStates) {
		i = len(f.taskStates) - 1
	}
	return f.taskStates[i], nil
}

func (f *fakeBackend) SeedStatus(context.Context, string) (*api.SeedStatusResponse, error) {
	if f.seedErr != nil {
		return nil, f.seedErr
	}
	if f.seedStatus == nil {
		return &api.SeedStatusResponse{}, nil
	}
	return f.seedStatus, nil
}

func newTestCoordinator(b Backend, seeds store.SeedStore) *Coordinator {
	return New(b, seeds, Config{
		PollInterval: time.Millisecond,
		PollMaxWait:  50 * time.Millisecond,
		ChunkPacing:  time.Millisecond,
	}, zerolog.Nop())
}

func deltaRows() []types.MirrorRow {
	return []types.MirrorRow{{
		UserID:     "user-1",
		Timestamp:  time.Date(2026, 3, 5, 8, 30, 0, 0, time.UTC),
		MetricType: "steps",
		Value:      4200,
		Unit:       "count",
		CreatedAt:  time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC),
		Operation:  types.OpUpsert,
		RecordID:   "hk-1",
	}}
}

func TestIdempotencyKeyStable(t *testing.T) {
	rows := deltaRows()
	first := IdempotencyKey(mapper.EncodeCSV(rows))
	second := IdempotencyKey(mapper.EncodeCSV(rows))
	if first != second {
		t.Fatalf("keys differ for identical rows: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("key = %q, want sha256 hex", first)
	}

	rows[0].Value = 4201
	if IdempotencyKey(mapper.EncodeCSV(rows)) == first {
		t.Fatal("different payload must hash differently")
	}
}

func TestUploadDelta(t *testing.T) {
	b := &fakeBackend{}
	c := newTestCoordinator(b, store.NewMemStore())

	rows := deltaRows()
	if err := c.UploadDelta(context.Background(), rows); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(b.uploads) != 1 {
		t.Fatalf("uploads = %d", len(b.uploads))
	}
	call := b.uploads[0]
	if call.batch.Mode != types.ModeDelta {
		t.Fatalf("mode = %s", call.batch.Mode)
	}
	if call.key != IdempotencyKey(call.payload) {
		t.Fatal("key does not hash the shipped payload")
	}
}

func TestUploadDeltaEmpty(t *testing.T) {
	b := &fakeBackend{}
	c := newTestCoordinator(b, store.NewMemStore())

	if err := c.UploadDelta(context.Background(), nil); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(b.uploads) != 0 {
		t.Fatal("empty batch must not touch the network")
	}
}

func TestUploadDeltaPropagatesError(t *testing.T) {
	wantErr := errs.NewHTTPError(503, "", "upload csv")
	b := &fakeBackend{uploadErr: wantErr}
	c := newTestCoordinator(b, store.NewMemStore())

	err := c.UploadDelta(context.Background(), deltaRows())
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v", err)
	}
}

func TestUploadSeedChunkPollsUntilSuccess(t *testing.T) {
	ctx := context.Background()
	seeds := store.NewMemStore()
	b := &fakeBackend{taskStates: []api.TaskState{api.TaskPending, api.TaskPending, api.TaskSuccess}}
	c := newTestCoordinator(b, seeds)

	batch := types.UploadBatch{
		Mode: types.ModeSeed, Rows: deltaRows(),
		BatchID: "batch-1", ChunkIndex: 2, ChunkTotal: 9,
	}
	if err := c.UploadSeedChunk(ctx, batch); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if b.polls < 3 {
		t.Fatalf("polls = %d, want at least 3", b.polls)
	}

	accepted, _ := seeds.AcceptedChunks(ctx, "batch-1")
	if !accepted[2] {
		t.Fatalf("chunk not recorded accepted: %v", accepted)
	}
}

func TestUploadSeedChunkCompletedShortCircuit(t *testing.T) {
	ctx := context.Background()
	seeds := store.NewMemStore()
	// "completed" means the content hash was already absorbed; no polling.
	b := &fakeBackend{ackStatus: "completed"}
	c := newTestCoordinator(b, seeds)

	batch := types.UploadBatch{Mode: types.ModeSeed, Rows: deltaRows(), BatchID: "batch-1", ChunkIndex: 1, ChunkTotal: 1}
	if err := c.UploadSeedChunk(ctx, batch); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if b.polls != 0 {
		t.Fatalf("polls = %d, want 0", b.polls)
	}
	accepted, _ := seeds.AcceptedChunks(ctx, "batch-1")
	if !accepted[1] {
		t.Fatal("completed chunk must still be recorded accepted")
	}
}

func TestUploadSeedChunkFailureNotAccepted(t *testing.T) {
	ctx := context.Background()
	seeds := store.NewMemStore()
	b := &fakeBackend{taskStates: []api.TaskState{api.TaskFailure}}
	c := newTestCoordinator(b, seeds)

	batch := types.UploadBatch{Mode: types.ModeSeed, Rows: deltaRows(), BatchID: "batch-1", ChunkIndex: 4, ChunkTotal: 9}
	err := c.UploadSeedChunk(ctx, batch)
	if err == nil {
		t.Fatal("failed ingest must surface as error")
	}
	accepted, _ := seeds.AcceptedChunks(ctx, "batch-1")
	if len(accepted) != 0 {
		t.Fatalf("failed chunk must not be accepted: %v", accepted)
	}
}

func TestUploadSeedChunkPollTimeout(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{taskStates: []api.TaskState{api.TaskPending}}
	c := newTestCoordinator(b, store.NewMemStore())

	batch := types.UploadBatch{Mode: types.ModeSeed, Rows: deltaRows(), BatchID: "batch-1", ChunkIndex: 1, ChunkTotal: 1}
	if err := c.UploadSeedChunk(ctx, batch); err == nil {
		t.Fatal("a forever-pending task must time out")
	}
}

func TestAcceptedOnBackend(t *testing.T) {
	b := &fakeBackend{seedStatus: &api.SeedStatusResponse{
		BatchID: "batch-1",
		Chunks: []api.SeedChunkStatus{
			{ChunkIndex: 1, Status: "completed"},
			{ChunkIndex: 2, Status: "failed"},
			{ChunkIndex: 3, Status: "COMPLETED"},
			{ChunkIndex: 4, Status: "processing"},
		},
	}}
	c := newTestCoordinator(b, store.NewMemStore())

	accepted, err := c.AcceptedOnBackend(context.Background(), "batch-1")
	if err != nil {
		t.Fatalf("seed status: %v", err)
	}
	if len(accepted) != 2 || !accepted[1] || !accepted[3] {
		t.Fatalf("accepted = %v, want chunks 1 and 3", accepted)
	}
}

func TestAcceptedOnBackendPropagatesError(t *testing.T) {
	wantErr := errs.NewHTTPError(503, "", "seed status")
	c := newTestCoordinator(&fakeBackend{seedErr: wantErr}, store.NewMemStore())
	if _, err := c.AcceptedOnBackend(context.Background(), "batch-1"); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v", err)
	}
}

func TestPaceHonoursCancellation(t *testing.T) {
	c := New(&fakeBackend{}, store.NewMemStore(), Config{ChunkPacing: time.Hour}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Pace(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
