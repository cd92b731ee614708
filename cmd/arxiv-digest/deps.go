// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"

	"github.com/pdiddy/arxiv-digest/internal/analysis"
	"github.com/pdiddy/arxiv-digest/internal/feed"
	"github.com/pdiddy/arxiv-digest/internal/history"
	"github.com/pdiddy/arxiv-digest/internal/rag"
	"github.com/pdiddy/arxiv-digest/internal/retrieval"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

func newRetrieval(cfg types.Config) *retrieval.Service {
	return retrieval.NewService(feed.NewClient(cfg.Feed))
}

func newEngine(ctx context.Context, cfg types.Config) (*analysis.Engine, error) {
	backend, err := analysis.NewBackend(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}
	return analysis.NewEngine(backend, rag.NewBuilder(cfg.RAG)), nil
}

// openComparator returns a comparator over the configured store. The caller
// closes the store.
func openComparator(cfg types.Config) (*history.Comparator, history.Store, error) {
	store, err := history.Open(cfg.History)
	if err != nil {
		return nil, nil, err
	}
	return history.NewComparator(store), store, nil
}
