// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rag

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"
)

type docKind int

const (
	kindUnknown docKind = iota
	kindPDF
	kindHTML
	kindText
)

// detectKind prefers magic bytes, then the declared content type, then
// sniffing.
func detectKind(data []byte, contentType string) docKind {
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return kindPDF
	}
	if k := kindOf(contentType); k != kindUnknown {
		return k
	}
	return kindOf(http.DetectContentType(data))
}

func kindOf(contentType string) docKind {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return kindUnknown
	}
	switch mt {
	case "application/pdf", "application/x-pdf":
		return kindPDF
	case "text/html", "application/xhtml+xml":
		return kindHTML
	case "text/plain":
		return kindText
	}
	return kindUnknown
}

// extractText returns the plain text of a document. limit is a hint in runes;
// PDF extraction stops reading pages once enough text is collected.
func extractText(data []byte, contentType string, source *url.URL, limit int) (string, error) {
	switch detectKind(data, contentType) {
	case kindPDF:
		return pdfText(data, limit)
	case kindHTML:
		return htmlText(data, source)
	case kindText:
		return string(data), nil
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return "", fmt.Errorf("unsupported document type %q", contentType)
}

func pdfText(data []byte, limit int) (text string, err error) {
	// The PDF reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		s, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("reading page %d: %w", i, err)
		}
		b.WriteString(s)
		b.WriteByte('\n')

		// Whitespace normalization shrinks the text; read a margin past limit.
		if limit > 0 && b.Len() >= limit*4 {
			break
		}
	}
	return b.String(), nil
}

func htmlText(data []byte, source *url.URL) (string, error) {
	if source == nil {
		source = &url.URL{}
	}
	article, err := readability.FromReader(bytes.NewReader(data), source)
	if err != nil {
		return "", fmt.Errorf("reading HTML: %w", err)
	}
	return article.TextContent, nil
}
