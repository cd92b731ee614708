// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analysis dispatches a batch of papers to a local LLM backend at a
// chosen depth and assembles the per-paper answers into an AnalysisResult.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/arxiv-digest/internal/logger"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// ErrNoPapers is returned when Analyze is called with an empty batch.
var ErrNoPapers = errors.New("no papers to analyze")

// ContextBuilder produces one context per paper in input order.
// *rag.Builder satisfies it.
type ContextBuilder interface {
	BuildContexts(ctx context.Context, papers []types.Paper) []types.PaperContext
}

// BackendError reports a failed inference call. The engine does not fall
// back to another backend.
type BackendError struct {
	Model   types.ModelID
	PaperID string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("analysis backend unavailable (model %s, paper %s): %v", e.Model, e.PaperID, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Kind is always types.ErrBackendUnavailable.
func (e *BackendError) Kind() types.ErrorKind { return types.ErrBackendUnavailable }

// Engine runs analyses against one backend.
type Engine struct {
	Backend  Backend
	Contexts ContextBuilder

	// Now stamps results; defaults to time.Now.
	Now func() time.Time
}

// NewEngine returns an Engine over the given backend and context builder.
func NewEngine(b Backend, cb ContextBuilder) *Engine {
	return &Engine{Backend: b, Contexts: cb, Now: time.Now}
}

// Analyze generates one analysis per paper. The model is normalized first, so
// an unsupported identifier behaves exactly like the default. Contexts are
// built, and returned, only for types.DepthRAG.
func (e *Engine) Analyze(ctx context.Context, papers []types.Paper, model types.ModelID, depth types.DepthMode) (types.AnalysisResult, []types.PaperContext, error) {
	if len(papers) == 0 {
		return types.AnalysisResult{}, nil, ErrNoPapers
	}

	model = NormalizeModel(string(model))
	depth = NormalizeDepth(string(depth))

	var contexts []types.PaperContext
	if depth == types.DepthRAG {
		if e.Contexts == nil {
			return types.AnalysisResult{}, nil, fmt.Errorf("rag depth requires a context builder")
		}
		contexts = e.Contexts.BuildContexts(ctx, papers)
	}

	result := types.AnalysisResult{
		Model:    model,
		Depth:    depth,
		Analyses: make(map[string]string, len(papers)),
		Order:    make([]string, 0, len(papers)),
		Titles:   make(map[string]string, len(papers)),
	}

	for i, p := range papers {
		var pc *types.PaperContext
		if i < len(contexts) {
			pc = &contexts[i]
		}

		prompt, err := renderPrompt(p, depth, pc)
		if err != nil {
			return types.AnalysisResult{}, nil, fmt.Errorf("rendering prompt for %s: %w", p.ID, err)
		}

		start := time.Now()
		text, err := e.Backend.Generate(ctx, model, prompt)
		if err != nil {
			return types.AnalysisResult{}, nil, &BackendError{Model: model, PaperID: p.ID, Err: err}
		}
		logger.Log.WithFields(logrus.Fields{
			"paper":   p.ID,
			"model":   model,
			"depth":   depth,
			"elapsed": time.Since(start).Round(time.Millisecond),
		}).Debug("analyzed paper")

		if _, seen := result.Analyses[p.ID]; !seen {
			result.Order = append(result.Order, p.ID)
		}
		result.Analyses[p.ID] = cleanResponse(text)
		result.Titles[p.ID] = p.Title
	}

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	result.GeneratedAt = now().UTC()

	return result, contexts, nil
}
