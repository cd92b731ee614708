// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/arxiv-digest/internal/logger"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// Comparator persists analyses and diffs each one against the latest earlier
// run sharing a paper. Compare calls on one Comparator are serialized, so the
// baseline a call sees is always the entry persisted by the previous call
// when their paper sets overlap. The guarantee holds within one process:
// comparators in separate processes sharing a store may pick the same
// baseline, though each still persists its own entry.
type Comparator struct {
	Store Store

	// Now stamps new entries; defaults to time.Now.
	Now func() time.Time

	// DiffContext is the number of context lines in unified diffs.
	DiffContext int

	mu   sync.Mutex
	last time.Time
}

// NewComparator returns a Comparator over s.
func NewComparator(s Store) *Comparator {
	return &Comparator{Store: s, Now: time.Now, DiffContext: 1}
}

// Compare looks up the baseline for papers, then persists (papers, analysis)
// as a new entry. It returns nil when no earlier entry overlaps the batch.
func (c *Comparator) Compare(ctx context.Context, papers []types.Paper, analysis types.AnalysisResult) (*types.ComparisonResult, error) {
	ids := types.PaperIDs(papers)

	c.mu.Lock()
	defer c.mu.Unlock()

	baseline, err := c.Store.LatestOverlapping(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("looking up baseline: %w", err)
	}

	entry := types.HistoryEntry{
		ID:        uuid.NewString(),
		Timestamp: c.now(),
		PaperIDs:  ids,
		Result:    analysis,
	}
	if err := c.Store.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("persisting analysis: %w", err)
	}

	if baseline == nil {
		logger.Log.WithField("entry", entry.ID).Debug("no overlapping history, baseline recorded")
		return nil, nil
	}

	res := classify(ids, analysis, *baseline, c.DiffContext)
	logger.Log.WithFields(logrus.Fields{
		"entry":      entry.ID,
		"baseline":   baseline.ID,
		"new":        len(res.New),
		"reappeared": len(res.Reappeared),
		"changed":    res.ChangedCount(),
		"absent":     len(res.Absent),
	}).Debug("compared analysis with history")
	return res, nil
}

// History returns up to limit persisted entries, latest first.
func (c *Comparator) History(ctx context.Context, limit int) ([]types.HistoryEntry, error) {
	return c.Store.Recent(ctx, limit)
}

// now returns a timestamp strictly after the previous one issued by c, so
// entries persisted in sequence never tie or go backwards on clock skew.
func (c *Comparator) now() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	t := now().UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}

// classify splits the current batch into new and reappearing papers, and
// lists baseline papers missing from the batch. Output order follows ids for
// New and Reappeared and the baseline's order for Absent.
func classify(ids []string, analysis types.AnalysisResult, baseline types.HistoryEntry, diffContext int) *types.ComparisonResult {
	res := &types.ComparisonResult{
		BaselineID:        baseline.ID,
		BaselineTimestamp: baseline.Timestamp,
		New:               []string{},
		Reappeared:        []types.Reappearance{},
		Absent:            []string{},
	}

	prior := make(map[string]bool, len(baseline.PaperIDs))
	for _, id := range baseline.PaperIDs {
		prior[id] = true
	}
	current := make(map[string]bool, len(ids))
	for _, id := range ids {
		if current[id] {
			continue
		}
		current[id] = true

		if !prior[id] {
			res.New = append(res.New, id)
			continue
		}
		before, _ := baseline.Result.Text(id)
		after, _ := analysis.Text(id)
		r := types.Reappearance{PaperID: id, Changed: before != after}
		if r.Changed {
			r.Diff = unifiedDiff(before, after, diffContext)
		}
		res.Reappeared = append(res.Reappeared, r)
	}

	for _, id := range baseline.PaperIDs {
		if !current[id] {
			res.Absent = append(res.Absent, id)
			current[id] = true
		}
	}
	return res
}

func unifiedDiff(before, after string, contextLines int) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "previous",
		ToFile:   "current",
		Context:  contextLines,
	})
	if err != nil {
		return ""
	}
	return diff
}
