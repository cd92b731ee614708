// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-digest/internal/analysis"
	"github.com/pdiddy/arxiv-digest/internal/rag"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze the current listing with a local model",
	Long: `Analyze fetches the current listing and asks the local model for a short
analysis of each paper. --depth selects the material given to the model:
title, abstract, or rag (adds an excerpt of each paper's PDF). An unsupported
--model falls back to gemma3.

With --compare the run is saved to history and diffed against the latest
earlier run that shared at least one paper.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := analyzeOptions{}
		opts.Model, _ = cmd.Flags().GetString("model")
		opts.Depth, _ = cmd.Flags().GetString("depth")
		opts.Compare, _ = cmd.Flags().GetBool("compare")
		opts.IDs, _ = cmd.Flags().GetStringSlice("ids")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		if opts.Model == "" {
			opts.Model = appConfig.LLM.Model
		}
		return runAnalyze(cmd.Context(), cmd.OutOrStdout(), appConfig, opts)
	},
}

type analyzeOptions struct {
	Model   string
	Depth   string
	Compare bool
	IDs     []string
	JSON    bool
}

// contextView is an excerpt as shown to users, capped for display.
type contextView struct {
	PaperID string                 `json:"paper_id"`
	Title   string                 `json:"title"`
	Excerpt string                 `json:"excerpt"`
	Error   *types.StructuredError `json:"error,omitempty"`
}

type analyzeOutput struct {
	Analysis      types.AnalysisResult    `json:"analysis"`
	Comparison    *types.ComparisonResult `json:"comparison"`
	PaperContexts []contextView           `json:"paper_contexts"`
	ModelUsed     types.ModelID           `json:"model_used"`
}

func runAnalyze(ctx context.Context, w io.Writer, cfg types.Config, opts analyzeOptions) error {
	papers, err := newRetrieval(cfg).GetPapers(ctx)
	if err != nil {
		return reportRetrievalError(err)
	}
	papers, err = selectPapers(papers, opts.IDs)
	if err != nil {
		return err
	}

	engine, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}

	if !opts.JSON {
		fmt.Fprintf(w, "Analyzing %d papers with %s at %s depth...\n",
			len(papers), analysis.NormalizeModel(opts.Model), analysis.NormalizeDepth(opts.Depth))
	}

	result, contexts, err := engine.Analyze(ctx, papers, types.ModelID(opts.Model), types.DepthMode(opts.Depth))
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	out := analyzeOutput{Analysis: result, ModelUsed: result.Model}
	if result.Depth == types.DepthRAG {
		out.PaperContexts = displayContexts(contexts, cfg.RAG.DisplayExcerptChars)
	}

	if opts.Compare {
		comparator, store, err := openComparator(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		out.Comparison, err = comparator.Compare(ctx, papers, result)
		if err != nil {
			return fmt.Errorf("comparing with history: %w", err)
		}
	}

	if opts.JSON {
		return writeJSON(w, out)
	}
	printAnalysis(w, out, opts.Compare)
	return nil
}

// selectPapers keeps the papers named in ids, in listing order. An empty ids
// keeps the whole listing.
func selectPapers(papers []types.Paper, ids []string) ([]types.Paper, error) {
	if len(ids) == 0 {
		return papers, nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[strings.TrimSpace(id)] = true
	}
	var out []types.Paper
	for _, p := range papers {
		if want[p.ID] {
			out = append(out, p)
			delete(want, p.ID)
		}
	}
	if len(want) > 0 {
		missing := make([]string, 0, len(want))
		for _, id := range ids {
			if want[strings.TrimSpace(id)] {
				missing = append(missing, strings.TrimSpace(id))
			}
		}
		return nil, fmt.Errorf("papers not in the current listing: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

func displayContexts(contexts []types.PaperContext, maxChars int) []contextView {
	out := make([]contextView, len(contexts))
	for i, c := range contexts {
		out[i] = contextView{
			PaperID: c.PaperID,
			Title:   c.Title,
			Excerpt: rag.DisplayExcerpt(c.Excerpt, maxChars),
			Error:   c.Error,
		}
	}
	return out
}

func printAnalysis(w io.Writer, out analyzeOutput, compared bool) {
	res := out.Analysis
	fmt.Fprintf(w, "Model: %s  Depth: %s\n", out.ModelUsed, res.Depth)

	for i, id := range res.Order {
		text, _ := res.Text(id)
		fmt.Fprintf(w, "\n[%d] %s (%s)\n", i+1, res.Titles[id], id)
		fmt.Fprintln(w, text)
	}

	if len(out.PaperContexts) > 0 {
		fmt.Fprintln(w, "\nContext excerpts:")
		for _, c := range out.PaperContexts {
			marker := ""
			if c.Error != nil {
				marker = fmt.Sprintf(" [%s]", c.Error.Type)
			}
			fmt.Fprintf(w, "\n- %s%s\n  %s\n", c.Title, marker, c.Excerpt)
		}
	}

	if !compared {
		return
	}
	fmt.Fprintln(w)
	c := out.Comparison
	if c == nil {
		fmt.Fprintln(w, "No earlier analysis covers these papers; this run is now the baseline.")
		return
	}
	fmt.Fprintf(w, "Compared with run %s from %s:\n", c.BaselineID, c.BaselineTimestamp.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "  new:        %s\n", listOrNone(c.New))
	fmt.Fprintf(w, "  absent:     %s\n", listOrNone(c.Absent))
	fmt.Fprintf(w, "  reappeared: %d (%d changed)\n", len(c.Reappeared), c.ChangedCount())
	for _, r := range c.Reappeared {
		if r.Changed {
			fmt.Fprintf(w, "\n%s changed:\n%s", r.PaperID, r.Diff)
		}
	}
}

func listOrNone(ids []string) string {
	if len(ids) == 0 {
		return "none"
	}
	return strings.Join(ids, ", ")
}

func init() {
	analyzeCmd.Flags().String("model", "", "model identifier: gemma3, deepseek-r1:1.5b, qwen2.5:7b (default from llm.model)")
	analyzeCmd.Flags().String("depth", string(types.DepthTitle), "analysis depth: title, abstract, rag")
	analyzeCmd.Flags().Bool("compare", false, "save this run and compare it with the latest overlapping run")
	analyzeCmd.Flags().StringSlice("ids", nil, "analyze only these paper IDs (comma-separated)")
	analyzeCmd.Flags().Bool("json", false, "output the result as JSON")

	rootCmd.AddCommand(analyzeCmd)
}
