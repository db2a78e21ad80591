package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/weiihann/sortbench/history"
	"github.com/weiihann/sortbench/report"
)

func newHistoryCmd() *cobra.Command {
	var (
		dbPath string
		family string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show timings recorded by previous runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := history.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), family, limit)
			if err != nil {
				return err
			}

			return printHistory(cmd.OutOrStdout(), family, entries)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&dbPath, "history", "sortbench.db",
		"SQLite file written by run --history")
	flags.StringVar(&family, "family", "merge",
		"Sort family to show")
	flags.IntVar(&limit, "limit", 5,
		"Number of most recent runs to show")

	return cmd
}

func printHistory(w io.Writer, family string, entries []history.Entry) error {
	if len(entries) == 0 {
		fmt.Fprintf(w, "No recorded runs for %s.\n", family)

		return nil
	}

	fmt.Fprintf(w, "## History: %s\n", family)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Run | Started | Elements | Target | Elapsed | Match |")
	fmt.Fprintln(w, "|-----|---------|----------|--------|---------|-------|")

	for _, e := range entries {
		match := "yes"
		if !e.AllMatch {
			match = "no"
		}

		fmt.Fprintf(w, "| %s | %s | %d | %s | %s | %s |\n",
			e.RunID.String()[:8],
			e.StartedAt.UTC().Format(time.RFC3339),
			e.Elements,
			e.Label,
			report.FormatSeconds(e.Seconds),
			match,
		)
	}

	return nil
}
