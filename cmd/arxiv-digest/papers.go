// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-digest/internal/retrieval"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

var papersCmd = &cobra.Command{
	Use:   "papers",
	Short: "List the most recent papers of the configured category",
	Long: `Papers queries the arXiv API for the newest papers of the configured
category (feed.category, default cs.AI) and prints them newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		return runPapers(cmd.Context(), cmd.OutOrStdout(), appConfig, jsonOutput)
	},
}

func runPapers(ctx context.Context, w io.Writer, cfg types.Config, jsonOutput bool) error {
	papers, err := newRetrieval(cfg).GetPapers(ctx)
	if err != nil {
		return reportRetrievalError(err)
	}

	if jsonOutput {
		return writeJSON(w, papers)
	}

	if len(papers) == 0 {
		fmt.Fprintln(w, "No papers found.")
		return nil
	}

	rows := make([][]string, 0, len(papers))
	for i, p := range papers {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			p.ID,
			p.Title,
			authorSummary(p.Authors),
			p.Published.Format("2006-01-02"),
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"#", "ID", "Title", "Authors", "Published"},
		rows,
		[]columnAlignment{alignRight},
		[]int{0, 0, 60, 30, 0},
	))
	fmt.Fprintf(w, "%d papers\n", len(papers))
	return nil
}

// reportRetrievalError prints the structured payload of a listing failure to
// stderr and returns the error so the command exits non-zero.
func reportRetrievalError(err error) error {
	var pre *retrieval.PaperRetrievalError
	if errors.As(err, &pre) {
		payload := make(map[string]any, len(pre.Details)+1)
		for k, v := range pre.Details {
			payload[k] = v
		}
		if cause := errors.Unwrap(pre); cause != nil {
			payload["cause"] = cause.Error()
		}
		data, _ := json.Marshal(payload)
		fmt.Fprintf(os.Stderr, "error: %s\n", data)
	}
	return err
}

func authorSummary(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1, 2:
		return strings.Join(authors, ", ")
	}
	return authors[0] + " et al."
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	papersCmd.Flags().Bool("json", false, "output papers as JSON")

	rootCmd.AddCommand(papersCmd)
}
