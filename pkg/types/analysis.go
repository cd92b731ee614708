// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ModelID identifies the weights a local LLM backend should load.
type ModelID string

const (
	ModelGemma3     ModelID = "gemma3"
	ModelDeepSeekR1 ModelID = "deepseek-r1:1.5b"
	ModelQwen25     ModelID = "qwen2.5:7b"

	// DefaultModel is used whenever a caller names an unsupported model.
	DefaultModel = ModelGemma3
)

// SupportedModels lists the accepted model identifiers in display order.
var SupportedModels = []ModelID{ModelGemma3, ModelDeepSeekR1, ModelQwen25}

// DepthMode selects how much per-paper material is given to the backend.
type DepthMode string

const (
	DepthTitle    DepthMode = "title"
	DepthAbstract DepthMode = "abstract"
	DepthRAG      DepthMode = "rag"
)

// AnalysisResult is the backend's judgement over a batch of papers.
type AnalysisResult struct {
	Model ModelID   `json:"model" yaml:"model"`
	Depth DepthMode `json:"depth" yaml:"depth"`

	// Analyses maps paper ID to the generated analysis text.
	Analyses map[string]string `json:"analyses" yaml:"analyses"`

	// Order holds the paper IDs in batch order.
	Order []string `json:"order" yaml:"order"`

	// Titles maps paper ID to title for display of persisted results.
	Titles map[string]string `json:"titles,omitempty" yaml:"titles,omitempty"`

	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
}

// Text returns the analysis for paperID and whether one exists.
func (r AnalysisResult) Text(paperID string) (string, bool) {
	t, ok := r.Analyses[paperID]
	return t, ok
}

// HistoryEntry is one persisted analysis run.
type HistoryEntry struct {
	ID        string         `json:"id" yaml:"id"`
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
	PaperIDs  []string       `json:"paper_ids" yaml:"paper_ids"`
	Result    AnalysisResult `json:"result" yaml:"result"`
}

// Overlaps reports whether the entry references any of the given IDs.
func (e HistoryEntry) Overlaps(ids []string) bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	for _, id := range e.PaperIDs {
		if set[id] {
			return true
		}
	}
	return false
}

// Reappearance describes a paper analyzed in the baseline run and again now.
type Reappearance struct {
	PaperID string `json:"paper_id" yaml:"paper_id"`
	Changed bool   `json:"changed" yaml:"changed"`

	// Diff is a unified diff of the analysis text; empty when unchanged.
	Diff string `json:"diff,omitempty" yaml:"diff,omitempty"`
}

// ComparisonResult classifies the current batch against the latest
// overlapping history entry.
type ComparisonResult struct {
	BaselineID        string         `json:"baseline_id" yaml:"baseline_id"`
	BaselineTimestamp time.Time      `json:"baseline_timestamp" yaml:"baseline_timestamp"`
	New               []string       `json:"new" yaml:"new"`
	Reappeared        []Reappearance `json:"reappeared" yaml:"reappeared"`
	Absent            []string       `json:"absent" yaml:"absent"`
}

// ChangedCount returns how many reappearing papers have a different analysis.
func (c ComparisonResult) ChangedCount() int {
	n := 0
	for _, r := range c.Reappeared {
		if r.Changed {
			n++
		}
	}
	return n
}
