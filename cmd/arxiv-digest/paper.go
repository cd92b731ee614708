// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

var paperCmd = &cobra.Command{
	Use:   "paper <id>",
	Short: "Show one paper from the current listing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		return runPaper(cmd.Context(), cmd.OutOrStdout(), appConfig, args[0], jsonOutput)
	},
}

func runPaper(ctx context.Context, w io.Writer, cfg types.Config, id string, jsonOutput bool) error {
	p, err := newRetrieval(cfg).FindPaper(ctx, id)
	if err != nil {
		return reportRetrievalError(err)
	}

	if jsonOutput {
		return writeJSON(w, p)
	}

	fmt.Fprintf(w, "%s\n\n", p.Title)
	fmt.Fprintf(w, "ID:         %s\n", p.ID)
	fmt.Fprintf(w, "Authors:    %s\n", strings.Join(p.Authors, ", "))
	fmt.Fprintf(w, "Published:  %s\n", p.Published.Format("2006-01-02"))
	if len(p.Categories) > 0 {
		fmt.Fprintf(w, "Categories: %s\n", strings.Join(p.Categories, ", "))
	}
	if p.AbsLink != "" {
		fmt.Fprintf(w, "Link:       %s\n", p.AbsLink)
	}
	fmt.Fprintf(w, "PDF:        %s\n", p.PDFLink)
	fmt.Fprintf(w, "\n%s\n", p.Abstract)
	return nil
}

func init() {
	paperCmd.Flags().Bool("json", false, "output the paper as JSON")

	rootCmd.AddCommand(paperCmd)
}
