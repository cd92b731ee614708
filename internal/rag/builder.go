// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rag builds bounded document excerpts used as retrieval-augmented
// context for the analysis backend. Each paper's document is fetched and
// extracted independently; a failure is recorded on that paper's context and
// never aborts the batch.
package rag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pdiddy/arxiv-digest/internal/httputil"
	"github.com/pdiddy/arxiv-digest/internal/logger"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// ErrorExcerptPrefix starts the placeholder excerpt of a failed context.
const ErrorExcerptPrefix = "Error retrieving paper content: "

const (
	defaultWorkers      = 4
	defaultExcerptChars = 4000
	defaultMaxDocBytes  = 20 << 20
)

// Builder fetches and extracts paper documents.
type Builder struct {
	HTTP   *http.Client
	Config types.RAGConfig

	// Limiter paces document requests across workers. Nil disables pacing.
	Limiter *rate.Limiter
}

// NewBuilder returns a Builder with a timeout-bounded client and, when
// cfg.RequestsPerSecond is positive, a shared limiter.
func NewBuilder(cfg types.RAGConfig) *Builder {
	b := &Builder{
		HTTP:   &http.Client{Timeout: cfg.Timeout},
		Config: cfg,
	}
	if cfg.RequestsPerSecond > 0 {
		b.Limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(1, cfg.Workers))
	}
	return b
}

// BuildContexts returns one context per paper in input order. Fetches run
// concurrently up to Config.Workers; each goroutine writes only its own slot.
func (b *Builder) BuildContexts(ctx context.Context, papers []types.Paper) []types.PaperContext {
	out := make([]types.PaperContext, len(papers))
	if len(papers) == 0 {
		return out
	}

	workers := b.Config.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	start := time.Now()
	var g errgroup.Group
	g.SetLimit(workers)
	for i, p := range papers {
		i, p := i, p
		g.Go(func() error {
			out[i] = b.buildOne(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, c := range out {
		if c.Failed() {
			failed++
		}
	}
	logger.Log.WithFields(logrus.Fields{
		"papers":  len(papers),
		"failed":  failed,
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Debug("built paper contexts")

	return out
}

func (b *Builder) buildOne(ctx context.Context, p types.Paper) types.PaperContext {
	pc := types.PaperContext{PaperID: p.ID, Title: p.Title}

	text, se := b.fetchExcerpt(ctx, p.PDFLink)
	if se != nil {
		logger.Log.WithFields(logrus.Fields{
			"paper":   p.ID,
			"type":    se.Type,
			"details": se.Details,
		}).Warn("context extraction failed")
		pc.Error = se
		pc.Excerpt = ErrorExcerptPrefix + se.Message
		return pc
	}
	pc.Excerpt = text
	return pc
}

func (b *Builder) fetchExcerpt(ctx context.Context, link string) (string, *types.StructuredError) {
	if link == "" {
		return "", types.NewStructuredError(types.ErrParse, "paper has no document link", nil)
	}

	if b.Limiter != nil {
		if err := b.Limiter.Wait(ctx); err != nil {
			return "", limiterFault(ctx, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", types.NewStructuredError(types.ErrConnection, "invalid document link", err)
	}
	if b.Config.UserAgent != "" {
		req.Header.Set("User-Agent", b.Config.UserAgent)
	}
	req.Header.Set("Accept", "application/pdf, text/html;q=0.9, text/plain;q=0.8")

	client := b.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, b.Config.MaxRetries)
	if err != nil {
		return "", httputil.Fault(err, "document download")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", httputil.StatusFault(resp.StatusCode, "document server")
	}

	maxBytes := b.Config.MaxDocumentBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxDocBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return "", httputil.Fault(err, "document download")
	}
	if int64(len(data)) > maxBytes {
		return "", types.NewStructuredError(types.ErrParse,
			fmt.Sprintf("document exceeds %d bytes", maxBytes), nil)
	}

	limit := b.Config.ExcerptChars
	if limit <= 0 {
		limit = defaultExcerptChars
	}

	text, err := extractText(data, resp.Header.Get("Content-Type"), req.URL, limit)
	if err != nil {
		return "", httputil.ParseFault(err, "document")
	}

	excerpt := truncateRunes(normalizeSpace(text), limit)
	if excerpt == "" {
		return "", types.NewStructuredError(types.ErrParse, "document contains no extractable text", nil)
	}
	return excerpt, nil
}

// limiterFault classifies a failed limiter wait. The limiter rejects a wait
// that cannot finish before the deadline without wrapping
// context.DeadlineExceeded, so the context decides the kind.
func limiterFault(ctx context.Context, err error) *types.StructuredError {
	cause := ctx.Err()
	if cause == nil {
		if _, ok := ctx.Deadline(); ok {
			cause = context.DeadlineExceeded
		}
	}
	if cause != nil && !errors.Is(err, cause) {
		err = fmt.Errorf("%w: %v", cause, err)
	}
	return httputil.Fault(err, "document download")
}

// DisplayExcerpt caps an excerpt for display, appending an ellipsis when it
// was shortened. The display cap is independent of the extraction cap.
func DisplayExcerpt(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return truncateRunes(s, n) + "..."
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
