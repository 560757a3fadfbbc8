// Package tzhistory maintains two independent, bounded, append-only
// timezone timelines (device-reported and geocode-derived) and resolves
// which timezone was active at a given historical timestamp. The timelines
// record changes, not samples: an append whose zone matches the latest entry
// is suppressed.
package tzhistory

import (
	"context"
	"fmt"
	"sync"

	"time"

	"github.com/sgzrov/Voyant/internal/store"
	"github.com/sgzrov/Voyant/internal/types"
)

// DefaultBound is the per-timeline entry cap; the oldest entries are evicted
// beyond it. Travel histories are sparse, so 64 covers years of movement.
const DefaultBound = 64

// Timeline is one ordered history of timezone-change events, cached in
// memory and persisted through a store.TimelineStore.
type Timeline struct {
	mu      sync.Mutex
	source  string
	bound   int
	store   store.TimelineStore
	entries []types.TimezoneHistoryEntry // ascending by EffectiveAt
}

// LoadTimeline builds a timeline backed by st, restoring persisted entries.
func LoadTimeline(ctx context.Context, st store.TimelineStore, source string, bound int) (*Timeline, error) {
	if bound <= 0 {
		bound = DefaultBound
	}
	entries, err := st.LoadTimeline(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("restore %s timeline: %w", source, err)
	}
	return &Timeline{source: source, bound: bound, store: st, entries: entries}, nil
}

// Append records a timezone change. The entry is suppressed (nil error) when
// its zone matches the latest stored entry, and rejected when it would break
// the strict EffectiveAt ordering. Beyond the bound the oldest entry is
// evicted.
func (t *Timeline) Append(ctx context.Context, e types.TimezoneHistoryEntry) error {
	if e.TZName == "" {
		return fmt.Errorf("tzhistory: empty zone name")
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if n := len(t.entries); n > 0 {
		last := t.entries[n-1]
		if last.TZName == e.TZName {
			return nil // change-log semantics: same zone is not a change
		}
		if !e.EffectiveAt.After(last.EffectiveAt) {
			return fmt.Errorf("tzhistory: entry at %s not after last entry %s",
				e.EffectiveAt.Format(time.RFC3339), last.EffectiveAt.Format(time.RFC3339))
		}
	}

	if err := t.store.AppendTimelineEntry(ctx, t.source, e); err != nil {
		return err
	}
	t.entries = append(t.entries, e)
	if len(t.entries) > t.bound {
		t.entries = t.entries[len(t.entries)-t.bound:]
		if err := t.store.PruneTimeline(ctx, t.source, t.bound); err != nil {
			return err
		}
	}
	return nil
}

// At returns the latest entry with EffectiveAt <= ts. ok is false when ts
// precedes all history.
func (t *Timeline) At(ts time.Time) (types.TimezoneHistoryEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.entries) - 1; i >= 0; i-- {
		if !t.entries[i].EffectiveAt.After(ts) {
			return t.entries[i], true
		}
	}
	return types.TimezoneHistoryEntry{}, false
}

// Empty reports whether the timeline holds no entries.
func (t *Timeline) Empty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries) == 0
}

// Len returns the number of retained entries.
func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
