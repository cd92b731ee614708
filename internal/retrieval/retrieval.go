// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieval is the entry point callers use for "give me today's
// papers". It turns the feed client's error-as-data result into a single
// typed failure.
package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdiddy/arxiv-digest/internal/feed"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// ErrPaperNotFound is returned by FindPaper when the listing has no such ID.
var ErrPaperNotFound = errors.New("paper not found")

// Lister fetches a listing as data. *feed.Client satisfies it.
type Lister interface {
	FetchListing(ctx context.Context) feed.ListingResult
}

// PaperRetrievalError is returned when the listing could not be retrieved.
// Details is a copy of the structured payload; the underlying fault, when
// there was one, is reachable through errors.Unwrap.
type PaperRetrievalError struct {
	Details map[string]any
	cause   error
}

func (e *PaperRetrievalError) Error() string {
	if msg, ok := e.Details["message"].(string); ok && msg != "" {
		return msg
	}
	return "unable to load papers"
}

func (e *PaperRetrievalError) Unwrap() error { return e.cause }

// Kind returns the error kind recorded in Details.
func (e *PaperRetrievalError) Kind() types.ErrorKind {
	s, _ := e.Details["type"].(string)
	return types.ErrorKind(s)
}

// Service wraps a Lister.
type Service struct {
	Feed Lister
}

// NewService returns a Service over the given lister.
func NewService(l Lister) *Service {
	return &Service{Feed: l}
}

// GetPapers returns the current listing or a *PaperRetrievalError.
func (s *Service) GetPapers(ctx context.Context) ([]types.Paper, error) {
	res := s.Feed.FetchListing(ctx)
	if res.Err != nil {
		return nil, &PaperRetrievalError{
			Details: res.Err.Map(),
			cause:   res.Err.Cause(),
		}
	}
	return res.Papers, nil
}

// FindPaper returns the paper with the given ID from the current listing.
func (s *Service) FindPaper(ctx context.Context, id string) (types.Paper, error) {
	papers, err := s.GetPapers(ctx)
	if err != nil {
		return types.Paper{}, err
	}
	for _, p := range papers {
		if p.ID == id {
			return p, nil
		}
	}
	return types.Paper{}, fmt.Errorf("%w: %s", ErrPaperNotFound, id)
}
