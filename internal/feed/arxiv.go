// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package feed fetches the recent-paper listing from the arXiv Atom API.
// Failures are returned as data (types.StructuredError), never as Go errors,
// so callers decide whether a failed listing is fatal.
package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/arxiv-digest/internal/httputil"
	"github.com/pdiddy/arxiv-digest/internal/logger"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// maxFeedBytes bounds the listing body; a 100-entry page is well under 1 MiB.
const maxFeedBytes = 16 << 20

const subject = "request to arXiv"

// ListingResult is either an ordered listing or a structured error.
type ListingResult struct {
	Papers []types.Paper
	Err    *types.StructuredError
}

// OK reports whether the listing was retrieved.
func (r ListingResult) OK() bool { return r.Err == nil }

func failed(se *types.StructuredError) ListingResult {
	logger.Log.WithFields(logrus.Fields{
		"type":    se.Type,
		"details": se.Details,
	}).Warn(se.Message)
	return ListingResult{Err: se}
}

// Client queries the feed endpoint once per FetchListing call. It performs
// no retries; retry policy belongs to the caller.
type Client struct {
	HTTP   *http.Client
	Config types.FeedConfig
}

// NewClient returns a client whose requests are bounded by cfg.Timeout.
func NewClient(cfg types.FeedConfig) *Client {
	return &Client{
		HTTP:   &http.Client{Timeout: cfg.Timeout},
		Config: cfg,
	}
}

// FetchListing retrieves the most recent papers of the configured category,
// newest first.
func (c *Client) FetchListing(ctx context.Context) ListingResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.listingURL(), nil)
	if err != nil {
		return failed(types.NewStructuredError(types.ErrConnection, "could not build arXiv request", err))
	}
	if c.Config.UserAgent != "" {
		req.Header.Set("User-Agent", c.Config.UserAgent)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return failed(httputil.Fault(err, subject))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failed(httputil.StatusFault(resp.StatusCode, "arXiv API"))
	}

	var f atomFeed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, maxFeedBytes)).Decode(&f); err != nil {
		if httputil.IsTimeout(err) {
			return failed(httputil.Fault(err, subject))
		}
		return failed(httputil.ParseFault(err, "arXiv response"))
	}

	papers := make([]types.Paper, 0, len(f.Entries))
	for _, e := range f.Entries {
		p, ok := e.paper()
		if !ok {
			continue
		}
		papers = append(papers, p)
	}

	logger.Log.WithFields(logrus.Fields{
		"category": c.Config.Category,
		"papers":   len(papers),
		"elapsed":  time.Since(start).Round(time.Millisecond),
	}).Debug("fetched listing")

	return ListingResult{Papers: papers}
}

func (c *Client) listingURL() string {
	maxResults := c.Config.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}
	category := c.Config.Category
	if category == "" {
		category = "cs.AI"
	}

	q := url.Values{}
	q.Set("search_query", "cat:"+category)
	q.Set("sortBy", "submittedDate")
	q.Set("sortOrder", "descending")
	q.Set("start", "0")
	q.Set("max_results", strconv.Itoa(maxResults))
	return fmt.Sprintf("%s?%s", c.Config.BaseURL, q.Encode())
}

// arXiv Atom feed XML structures.
// The root must be an Atom <feed>; any other document fails to decode.
type atomFeed struct {
	XMLName xml.Name    `xml:"http://www.w3.org/2005/Atom feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Summary    string         `xml:"summary"`
	Published  string         `xml:"published"`
	Updated    string         `xml:"updated"`
	Authors    []atomAuthor   `xml:"author"`
	Links      []atomLink     `xml:"link"`
	Categories []atomCategory `xml:"category"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

func (e atomEntry) paper() (types.Paper, bool) {
	id := extractArxivID(e.ID)
	if id == "" {
		return types.Paper{}, false
	}

	p := types.Paper{
		ID:       id,
		Title:    collapseSpace(e.Title),
		Abstract: collapseSpace(e.Summary),
	}
	for _, a := range e.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			p.Authors = append(p.Authors, name)
		}
	}
	for _, c := range e.Categories {
		if c.Term != "" {
			p.Categories = append(p.Categories, c.Term)
		}
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published)); err == nil {
		p.Published = t
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Updated)); err == nil {
		p.Updated = t
	}

	for _, l := range e.Links {
		switch {
		case l.Title == "pdf" || l.Type == "application/pdf":
			p.PDFLink = l.Href
		case l.Rel == "alternate":
			p.AbsLink = l.Href
		}
	}
	if p.PDFLink == "" {
		p.PDFLink = "https://arxiv.org/pdf/" + id
	}
	if p.AbsLink == "" {
		p.AbsLink = "https://arxiv.org/abs/" + id
	}
	return p, true
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" -> "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := strings.TrimSpace(idURL[idx+len(prefix):])

	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
