package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sgzrov/Voyant/internal/types"
)

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu        sync.Mutex
	anchors   map[types.RecordType]string
	timelines map[string][]types.TimezoneHistoryEntry
	batches   map[string]*SeedBatch
	chunks    map[string]map[int]bool
	order     []string // batch ids in start order
}

var _ Store = (*MemStore)(nil)

// NewMemStore constructs an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		anchors:   make(map[types.RecordType]string),
		timelines: make(map[string][]types.TimezoneHistoryEntry),
		batches:   make(map[string]*SeedBatch),
		chunks:    make(map[string]map[int]bool),
	}
}

func (m *MemStore) Close() error { return nil }

func (m *MemStore) LoadAnchor(_ context.Context, rt types.RecordType) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.anchors[rt]
	return c, ok, nil
}

func (m *MemStore) SaveAnchor(_ context.Context, rt types.RecordType, cursor string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anchors[rt] = cursor
	return nil
}

func (m *MemStore) AppendTimelineEntry(_ context.Context, source string, e types.TimezoneHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tl := append(m.timelines[source], e)
	sort.Slice(tl, func(i, j int) bool { return tl[i].EffectiveAt.Before(tl[j].EffectiveAt) })
	m.timelines[source] = tl
	return nil
}

func (m *MemStore) LoadTimeline(_ context.Context, source string) ([]types.TimezoneHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.TimezoneHistoryEntry, len(m.timelines[source]))
	copy(out, m.timelines[source])
	return out, nil
}

func (m *MemStore) PruneTimeline(_ context.Context, source string, keep int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tl := m.timelines[source]
	if len(tl) > keep {
		m.timelines[source] = append([]types.TimezoneHistoryEntry(nil), tl[len(tl)-keep:]...)
	}
	return nil
}

func (m *MemStore) StartSeedBatch(_ context.Context, b SeedBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.batches[b.BatchID]; ok {
		return nil
	}
	if b.StartedAt.IsZero() {
		b.StartedAt = time.Now()
	}
	m.batches[b.BatchID] = &b
	m.chunks[b.BatchID] = make(map[int]bool)
	m.order = append(m.order, b.BatchID)
	return nil
}

func (m *MemStore) MarkChunkAccepted(_ context.Context, batchID string, chunkIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.chunks[batchID] == nil {
		m.chunks[batchID] = make(map[int]bool)
	}
	m.chunks[batchID][chunkIndex] = true
	return nil
}

func (m *MemStore) AcceptedChunks(_ context.Context, batchID string) (map[int]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]bool, len(m.chunks[batchID]))
	for k, v := range m.chunks[batchID] {
		out[k] = v
	}
	return out, nil
}

func (m *MemStore) MarkSeedCompleted(_ context.Context, batchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.batches[batchID]; ok {
		b.CompletedAt = time.Now()
	}
	return nil
}

func (m *MemStore) LatestSeedBatch(_ context.Context) (SeedBatch, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.order) == 0 {
		return SeedBatch{}, false, nil
	}
	return *m.batches[m.order[len(m.order)-1]], true, nil
}
