// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List analyses saved by analyze --compare",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		jsonOutput, _ := cmd.Flags().GetBool("json")
		return runHistory(cmd.Context(), cmd.OutOrStdout(), appConfig, limit, jsonOutput)
	},
}

func runHistory(ctx context.Context, w io.Writer, cfg types.Config, limit int, jsonOutput bool) error {
	comparator, store, err := openComparator(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := comparator.History(ctx, limit)
	if err != nil {
		return fmt.Errorf("listing history: %w", err)
	}

	if jsonOutput {
		if entries == nil {
			entries = []types.HistoryEntry{}
		}
		return writeJSON(w, entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No saved analyses.")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.ID,
			string(e.Result.Model),
			string(e.Result.Depth),
			strconv.Itoa(len(e.PaperIDs)),
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Saved", "ID", "Model", "Depth", "Papers"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
		nil,
	))
	return nil
}

func init() {
	historyCmd.Flags().Int("limit", 10, "maximum entries to list (0 = all)")
	historyCmd.Flags().Bool("json", false, "output entries as JSON")

	rootCmd.AddCommand(historyCmd)
}
