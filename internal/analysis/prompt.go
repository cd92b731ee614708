// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analysis

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// paperPromptTmpl renders the per-paper prompt. Only the fields selected by
// the depth mode are populated, so the same paper and depth always yield the
// same prompt.
var paperPromptTmpl = template.Must(template.New("paper").Parse(`You are a research assistant reviewing a newly published arXiv paper.
Summarize the paper's contribution in two or three sentences, then explain in one sentence why it matters to practitioners. If the material below reveals a limitation, name it.
Answer in plain prose without headings or lists.

Title: {{.Title}}
{{- if .Abstract}}

Abstract:
{{.Abstract}}
{{- end}}
{{- if .RAG}}

Excerpt from the paper:
{{if .Excerpt}}{{.Excerpt}}{{else}}(document text unavailable){{end}}
{{- end}}
`))

type promptData struct {
	Title    string
	Abstract string
	RAG      bool
	Excerpt  string
}

// renderPrompt builds the prompt for one paper. pc is only consulted for
// DepthRAG and may be nil when the context for the paper failed.
func renderPrompt(p types.Paper, depth types.DepthMode, pc *types.PaperContext) (string, error) {
	d := promptData{Title: p.Title}
	switch depth {
	case types.DepthAbstract:
		d.Abstract = p.Abstract
	case types.DepthRAG:
		d.Abstract = p.Abstract
		d.RAG = true
		if pc != nil && !pc.Failed() {
			d.Excerpt = pc.Excerpt
		}
	}

	var buf bytes.Buffer
	if err := paperPromptTmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("executing prompt template: %w", err)
	}
	return buf.String(), nil
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// cleanResponse drops reasoning blocks emitted by reasoning models such as
// deepseek-r1 and trims surrounding whitespace.
func cleanResponse(s string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(s, ""))
}
