// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rag

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/arxiv-digest/internal/httputil"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type timeoutErr struct{ msg string }

func (e timeoutErr) Error() string { return e.msg }
func (e timeoutErr) Timeout() bool { return true }
func (e timeoutErr) Temporary() bool { return true }

func testConfig() types.RAGConfig {
	return types.RAGConfig{
		HTTPConfig:          types.HTTPConfig{Timeout: 2 * time.Second, UserAgent: "test/0.1"},
		Workers:             3,
		ExcerptChars:        200,
		DisplayExcerptChars: 50,
		MaxRetries:          1,
	}
}

const articleHTML = `<!DOCTYPE html>
<html><head><title>Sparse Transformers</title></head>
<body>
<nav><a href="/">Home</a></nav>
<article>
<h1>Sparse Transformers</h1>
<p>Sparse transformer layers route each token to a small subset of experts, which keeps inference cost nearly constant as the parameter count grows. We evaluate the approach on long-context reasoning benchmarks.</p>
<p>Sparse transformer layers route each token to a small subset of experts, which keeps inference cost nearly constant as the parameter count grows. We evaluate the approach on long-context reasoning benchmarks.</p>
<p>Sparse transformer layers route each token to a small subset of experts, which keeps inference cost nearly constant as the parameter count grows. We evaluate the approach on long-context reasoning benchmarks.</p>
</article>
</body></html>`

// buildPDF assembles an uncompressed PDF with one line of Helvetica text per
// page. remap, when set, may rewrite the object offsets listed in the xref.
func buildPDF(remap func(offsets []int), pages ...string) []byte {
	fontID := 3 + 2*len(pages)
	objs := make([]string, fontID)
	kids := make([]string, len(pages))
	for i, text := range pages {
		pageID, contentID := 3+2*i, 4+2*i
		kids[i] = fmt.Sprintf("%d 0 R", pageID)
		objs[pageID-1] = fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", fontID, contentID)
		content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objs[contentID-1] = fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content)
	}
	objs[0] = "<< /Type /Catalog /Pages 2 0 R >>"
	objs[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))
	objs[fontID-1] = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	if remap != nil {
		remap(offsets)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

// swapRootXref points the catalog's xref entry at the page tree object.
func swapRootXref(offsets []int) {
	offsets[0], offsets[1] = offsets[1], offsets[0]
}

func newDocServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	validPDF := buildPDF(nil, "Grounded retrieval works")
	brokenPDF := buildPDF(swapRootXref, "Grounded retrieval works")
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		switch r.URL.Path {
		case "/text":
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			fmt.Fprint(w, "We propose   a method\n\nfor grounding analysis in source text.")
		case "/html":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, articleHTML)
		case "/long":
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprint(w, strings.Repeat("abcde ", 500))
		case "/binary":
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write([]byte{0x00, 0x01, 0x02, 0x03, 0xff})
		case "/pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write(validPDF)
		case "/brokenpdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write(brokenPDF)
		case "/fakepdf":
			w.Header().Set("Content-Type", "application/pdf")
			fmt.Fprint(w, "this is not a pdf")
		case "/slow":
			time.Sleep(60 * time.Millisecond)
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprint(w, "slow document")
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestBuildContextsTimeout(t *testing.T) {
	b := &Builder{
		HTTP: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, timeoutErr{"download timed out"}
		})},
		Config: testConfig(),
	}

	papers := []types.Paper{{
		ID:      "1234.56789",
		Title:   "Sample Paper",
		PDFLink: "https://arxiv.org/pdf/1234.56789.pdf",
	}}

	contexts := b.BuildContexts(context.Background(), papers)
	require.Len(t, contexts, 1)

	c := contexts[0]
	assert.Equal(t, "Sample Paper", c.Title)
	assert.Equal(t, "1234.56789", c.PaperID)
	require.NotNil(t, c.Error)
	assert.Equal(t, types.ErrTimeout, c.Error.Type)
	assert.Contains(t, c.Excerpt, "timed out")
	assert.True(t, strings.HasPrefix(c.Excerpt, ErrorExcerptPrefix))
}

func TestBuildContextsIsolatesFailures(t *testing.T) {
	ts := newDocServer(t, nil)
	defer ts.Close()

	papers := []types.Paper{
		{ID: "a", Title: "Text", PDFLink: ts.URL + "/text"},
		{ID: "b", Title: "Missing", PDFLink: ts.URL + "/missing"},
		{ID: "c", Title: "HTML", PDFLink: ts.URL + "/html"},
	}

	contexts := NewBuilder(testConfig()).BuildContexts(context.Background(), papers)
	require.Len(t, contexts, 3)

	assert.Equal(t, "a", contexts[0].PaperID)
	assert.Nil(t, contexts[0].Error)
	assert.Equal(t, "We propose a method for grounding analysis in source text.", contexts[0].Excerpt)

	assert.Equal(t, "b", contexts[1].PaperID)
	require.NotNil(t, contexts[1].Error)
	assert.Equal(t, types.ErrHTTPStatus, contexts[1].Error.Type)
	assert.Equal(t, http.StatusNotFound, contexts[1].Error.StatusCode)

	assert.Equal(t, "c", contexts[2].PaperID)
	assert.Nil(t, contexts[2].Error)
	assert.Contains(t, contexts[2].Excerpt, "Sparse transformer layers")
	assert.NotContains(t, contexts[2].Excerpt, "<p>")
}

func TestBuildContextsPreservesOrder(t *testing.T) {
	ts := newDocServer(t, nil)
	defer ts.Close()

	// The slow documents come first so completion order differs from input order.
	var papers []types.Paper
	for i := 0; i < 6; i++ {
		path := "/text"
		if i < 3 {
			path = "/slow"
		}
		papers = append(papers, types.Paper{ID: fmt.Sprintf("p%d", i), PDFLink: ts.URL + path})
	}

	contexts := NewBuilder(testConfig()).BuildContexts(context.Background(), papers)
	require.Len(t, contexts, len(papers))
	for i, c := range contexts {
		assert.Equal(t, papers[i].ID, c.PaperID)
		assert.Nil(t, c.Error)
	}
	assert.Equal(t, "slow document", contexts[0].Excerpt)
}

func TestBuildContextsExcerptCap(t *testing.T) {
	ts := newDocServer(t, nil)
	defer ts.Close()

	contexts := NewBuilder(testConfig()).BuildContexts(context.Background(),
		[]types.Paper{{ID: "long", PDFLink: ts.URL + "/long"}})
	require.Nil(t, contexts[0].Error)
	assert.Equal(t, 200, len([]rune(contexts[0].Excerpt)))
}

func TestBuildContextsParseFailures(t *testing.T) {
	ts := newDocServer(t, nil)
	defer ts.Close()

	contexts := NewBuilder(testConfig()).BuildContexts(context.Background(), []types.Paper{
		{ID: "bin", PDFLink: ts.URL + "/binary"},
		{ID: "pdf", PDFLink: ts.URL + "/fakepdf"},
	})
	require.Len(t, contexts, 2)
	for _, c := range contexts {
		require.NotNil(t, c.Error, c.PaperID)
		assert.Equal(t, types.ErrParse, c.Error.Type, c.PaperID)
		assert.NotEmpty(t, c.Error.Details, c.PaperID)
	}
	assert.Contains(t, contexts[0].Error.Details, "unsupported document type")
}

func TestBuildContextsPDF(t *testing.T) {
	ts := newDocServer(t, nil)
	defer ts.Close()

	contexts := NewBuilder(testConfig()).BuildContexts(context.Background(), []types.Paper{
		{ID: "ok", Title: "Grounding", PDFLink: ts.URL + "/pdf"},
		{ID: "broken", Title: "Broken", PDFLink: ts.URL + "/brokenpdf"},
	})
	require.Len(t, contexts, 2)

	assert.Nil(t, contexts[0].Error)
	assert.Equal(t, "Grounded retrieval works", contexts[0].Excerpt)

	require.NotNil(t, contexts[1].Error)
	assert.Equal(t, types.ErrParse, contexts[1].Error.Type)
	assert.Contains(t, contexts[1].Error.Details, "malformed PDF")
	assert.True(t, strings.HasPrefix(contexts[1].Excerpt, ErrorExcerptPrefix))
}

func TestPDFTextStopsReadingPastLimit(t *testing.T) {
	data := buildPDF(nil, "Alpha section text", "Beta section text", "Gamma section text")

	all, err := pdfText(data, 0)
	require.NoError(t, err)
	assert.Equal(t, "Alpha section text Beta section text Gamma section text", normalizeSpace(all))

	first, err := pdfText(data, 4)
	require.NoError(t, err)
	assert.Contains(t, first, "Alpha section text")
	assert.NotContains(t, first, "Beta")
}

func TestPDFTextRecoversParserPanic(t *testing.T) {
	text, err := pdfText(buildPDF(swapRootXref, "unreachable"), 100)
	require.Error(t, err)
	assert.Empty(t, text)
	assert.Contains(t, err.Error(), "malformed PDF")
}

func TestBuildContextsLimiterDeadlineIsTimeout(t *testing.T) {
	ts := newDocServer(t, nil)
	defer ts.Close()

	cfg := testConfig()
	cfg.Workers = 1
	cfg.RequestsPerSecond = 0.5

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// The single token goes to the first paper; the second wait would end
	// after the deadline.
	contexts := NewBuilder(cfg).BuildContexts(ctx, []types.Paper{
		{ID: "a", PDFLink: ts.URL + "/text"},
		{ID: "b", PDFLink: ts.URL + "/text"},
	})
	require.Len(t, contexts, 2)
	assert.Nil(t, contexts[0].Error)

	require.NotNil(t, contexts[1].Error)
	assert.Equal(t, types.ErrTimeout, contexts[1].Error.Type)
	assert.Contains(t, contexts[1].Error.Details, "rate:")
	assert.ErrorIs(t, contexts[1].Error.Cause(), context.DeadlineExceeded)
}

func TestLimiterFault(t *testing.T) {
	waitErr := errors.New("rate: Wait(n=1) would exceed context deadline")

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	assert.Equal(t, types.ErrTimeout, limiterFault(ctx, waitErr).Type)

	canceled, stop := context.WithCancel(context.Background())
	stop()
	se := limiterFault(canceled, context.Canceled)
	assert.Equal(t, types.ErrConnection, se.Type)
	assert.Equal(t, "context canceled", se.Details)

	assert.Equal(t, types.ErrConnection, limiterFault(context.Background(), waitErr).Type)
}

func TestBuildContextsMissingLinkSkipsFetch(t *testing.T) {
	var hits int32
	ts := newDocServer(t, &hits)
	defer ts.Close()

	contexts := NewBuilder(testConfig()).BuildContexts(context.Background(), []types.Paper{
		{ID: "nolink", Title: "No Link"},
	})
	require.NotNil(t, contexts[0].Error)
	assert.Equal(t, types.ErrParse, contexts[0].Error.Type)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestBuildContextsRetriesRateLimit(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "after backoff")
	}))
	defer ts.Close()

	contexts := NewBuilder(testConfig()).BuildContexts(context.Background(),
		[]types.Paper{{ID: "x", PDFLink: ts.URL}})
	require.Nil(t, contexts[0].Error)
	assert.Equal(t, "after backoff", contexts[0].Excerpt)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestBuildContextsEmpty(t *testing.T) {
	assert.Empty(t, NewBuilder(testConfig()).BuildContexts(context.Background(), nil))
}

func TestNewBuilderLimiter(t *testing.T) {
	cfg := testConfig()
	assert.Nil(t, NewBuilder(cfg).Limiter)

	cfg.RequestsPerSecond = 2
	b := NewBuilder(cfg)
	require.NotNil(t, b.Limiter)
	assert.Equal(t, cfg.Workers, b.Limiter.Burst())
}

func TestDisplayExcerpt(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "abc", 5, "abc"},
		{"exact", "abcde", 5, "abcde"},
		{"truncated", "abcdefgh", 5, "abcde..."},
		{"runes", "ééééééé", 3, "ééé..."},
		{"disabled", "abcdefgh", 0, "abcdefgh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayExcerpt(tt.in, tt.n))
		})
	}
}

func TestDetectKind(t *testing.T) {
	assert.Equal(t, kindPDF, detectKind([]byte("%PDF-1.7\n..."), "application/octet-stream"))
	assert.Equal(t, kindPDF, detectKind([]byte("x"), "application/pdf"))
	assert.Equal(t, kindHTML, detectKind([]byte("x"), "text/html; charset=utf-8"))
	assert.Equal(t, kindText, detectKind([]byte("plain words"), ""))
	assert.Equal(t, kindUnknown, detectKind([]byte{0x00, 0x01}, "application/zip"))
}
