// Package main provides the CLI entry point for sortbench, a harness that
// benchmarks and cross-checks sequential, OpenMP, MPI and hybrid builds of
// the same sorting algorithm.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	root := newRootCmd(logger, level)
	if err := root.Execute(); err != nil {
		logger.Error("sortbench failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "sortbench",
		Short: "Benchmark and cross-check parallel sort implementations",
		Long: `Sortbench feeds the same input to the sequential, OpenMP, MPI and
hybrid builds of a sorting algorithm, extracts each program's sorted output
and elapsed time, checks that every implementation agrees with the first one
and reports the timings.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if verbose {
				level.Set(slog.LevelDebug)
			}
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Log per-line parse diagnostics")

	root.AddCommand(newRunCmd(logger))
	root.AddCommand(newHistoryCmd())

	return root
}
