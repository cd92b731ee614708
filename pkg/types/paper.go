// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data structures shared across the digest pipeline:
// papers from the feed, per-paper document contexts, analysis results,
// persisted history entries, and the structured error payload used at the
// transport boundary.
package types

import "time"

// Paper holds the metadata of one feed entry. Papers are immutable after the
// feed client builds them and are passed by value downstream.
type Paper struct {
	// ID is the feed identifier without version suffix (e.g. "2301.07041").
	ID string `json:"id" yaml:"id"`

	// Title is the paper title with whitespace collapsed.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper summary text.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors lists the paper authors in feed order.
	Authors []string `json:"authors" yaml:"authors"`

	// Published is the first submission time.
	Published time.Time `json:"published" yaml:"published"`

	// Updated is the time of the latest revision.
	Updated time.Time `json:"updated,omitempty" yaml:"updated,omitempty"`

	// Categories lists the feed categories, primary first.
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`

	// AbsLink is the landing page URL.
	AbsLink string `json:"link,omitempty" yaml:"link,omitempty"`

	// PDFLink is the source document URL used for context extraction.
	PDFLink string `json:"pdf_link" yaml:"pdf_link"`
}

// PaperContext is the document excerpt built for one paper when the analysis
// runs at rag depth. Error is set when extraction failed for that paper; the
// rest of the batch is unaffected.
type PaperContext struct {
	PaperID string           `json:"paper_id" yaml:"paper_id"`
	Title   string           `json:"title" yaml:"title"`
	Excerpt string           `json:"excerpt" yaml:"excerpt"`
	Error   *StructuredError `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether extraction failed for this context.
func (c PaperContext) Failed() bool {
	return c.Error != nil
}

// PaperIDs returns the identifiers of papers in input order.
func PaperIDs(papers []Paper) []string {
	ids := make([]string, len(papers))
	for i, p := range papers {
		ids[i] = p.ID
	}
	return ids
}
