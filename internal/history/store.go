// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists analysis runs and compares a new run against the
// most recent earlier run that shares at least one paper.
package history

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// Store is the persistence boundary for analysis history. "Latest" means
// greatest Timestamp; entries with equal timestamps are ordered by insertion.
type Store interface {
	// Append persists a new entry.
	Append(ctx context.Context, e types.HistoryEntry) error

	// LatestOverlapping returns the latest entry referencing any of the given
	// paper IDs, or nil when there is none.
	LatestOverlapping(ctx context.Context, paperIDs []string) (*types.HistoryEntry, error)

	// Recent returns up to limit entries, latest first. limit <= 0 means all.
	Recent(ctx context.Context, limit int) ([]types.HistoryEntry, error)

	Close() error
}

// Open returns the store selected by cfg.Driver.
func Open(cfg types.HistoryConfig) (Store, error) {
	switch cfg.Driver {
	case types.HistorySQLite, types.HistoryPostgres:
		return OpenSQL(cfg.Driver, cfg.DSN)
	case types.HistoryFile:
		return NewFileStore(cfg.DSN)
	case types.HistoryMemory:
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown history driver %q", cfg.Driver)
}

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []types.HistoryEntry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, e types.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, cloneEntry(e))
	return nil
}

func (s *MemoryStore) LatestOverlapping(_ context.Context, paperIDs []string) (*types.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return latestOverlapping(s.entries, paperIDs), nil
}

func (s *MemoryStore) Recent(_ context.Context, limit int) ([]types.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return recent(s.entries, limit), nil
}

func (s *MemoryStore) Close() error { return nil }

// latestOverlapping scans entries held in insertion order.
func latestOverlapping(entries []types.HistoryEntry, paperIDs []string) *types.HistoryEntry {
	if len(paperIDs) == 0 {
		return nil
	}
	best := -1
	for i, e := range entries {
		if !e.Overlaps(paperIDs) {
			continue
		}
		if best < 0 || !e.Timestamp.Before(entries[best].Timestamp) {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	e := cloneEntry(entries[best])
	return &e
}

// recent orders entries held in insertion order latest first.
func recent(entries []types.HistoryEntry, limit int) []types.HistoryEntry {
	idx := make([]int, len(entries))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ta, tb := entries[idx[a]].Timestamp, entries[idx[b]].Timestamp
		if ta.Equal(tb) {
			return idx[a] > idx[b]
		}
		return ta.After(tb)
	})
	if limit > 0 && len(idx) > limit {
		idx = idx[:limit]
	}
	out := make([]types.HistoryEntry, len(idx))
	for i, j := range idx {
		out[i] = cloneEntry(entries[j])
	}
	return out
}

// cloneEntry copies the slices and maps of e so stored entries are not
// aliased by callers.
func cloneEntry(e types.HistoryEntry) types.HistoryEntry {
	e.PaperIDs = append([]string(nil), e.PaperIDs...)
	e.Result.Order = append([]string(nil), e.Result.Order...)
	e.Result.Analyses = maps.Clone(e.Result.Analyses)
	e.Result.Titles = maps.Clone(e.Result.Titles)
	return e
}
