// Package report formats benchmark results into comparison tables.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/weiihann/sortbench/harness"
)

// DefaultThreshold is the longest sequence rendered in full.
const DefaultThreshold = 50

// Unavailable is rendered wherever a target reported no elapsed time.
const Unavailable = "unavailable"

// TimingRow is one entry of the label to elapsed time table.
type TimingRow struct {
	Label   string   `json:"label"`
	Seconds *float64 `json:"seconds"`
}

// Skipped records a target that could not be run.
type Skipped struct {
	Label  string `json:"label"`
	Reason string `json:"reason"`
}

// TargetReport summarises one target's parsed result.
type TargetReport struct {
	Label          string               `json:"label"`
	ElapsedSeconds *float64             `json:"elapsed_seconds"`
	Elements       int                  `json:"elements"`
	Diagnostics    []harness.Diagnostic `json:"diagnostics,omitempty"`
}

// FamilyReport is the report of one sort family.
type FamilyReport struct {
	Family       string         `json:"family"`
	Title        string         `json:"title"`
	Verification Outcome        `json:"verification"`
	Targets      []TargetReport `json:"targets"`
	Skipped      []Skipped      `json:"skipped,omitempty"`
	Preview      string         `json:"preview"`
}

// TimingTable returns the elapsed time of every result in insertion order.
func TimingTable(set *harness.ResultSet) []TimingRow {
	rows := make([]TimingRow, 0, set.Len())
	for label, r := range set.All() {
		rows = append(rows, TimingRow{Label: label, Seconds: r.ElapsedSeconds})
	}

	return rows
}

// Build assembles a FamilyReport. The preview shows the reference
// target's sequence truncated to threshold elements.
func Build(
	family, title string,
	set *harness.ResultSet,
	outcome Outcome,
	skipped []Skipped,
	threshold int,
) FamilyReport {
	rep := FamilyReport{
		Family:       family,
		Title:        title,
		Verification: outcome,
		Targets:      make([]TargetReport, 0, set.Len()),
		Skipped:      skipped,
	}

	for label, r := range set.All() {
		rep.Targets = append(rep.Targets, TargetReport{
			Label:          label,
			ElapsedSeconds: r.ElapsedSeconds,
			Elements:       len(r.Sequence),
			Diagnostics:    r.Diagnostics,
		})
	}

	if _, ref, ok := set.Reference(); ok {
		rep.Preview = FormatSequence(ref.Sequence, threshold)
	}

	return rep
}

// Generate writes a markdown section for one family.
func Generate(w io.Writer, rep FamilyReport) error {
	if len(rep.Targets) == 0 && len(rep.Skipped) == 0 {
		return ErrNoResults
	}

	title := rep.Title
	if title == "" {
		title = rep.Family
	}

	fmt.Fprintf(w, "## %s\n", title)
	fmt.Fprintln(w)

	if len(rep.Targets) > 0 {
		if rep.Verification.AllMatch {
			fmt.Fprintf(w, "Sorted sequences: **all match** (reference: %s)\n",
				rep.Verification.Reference)
		} else {
			fmt.Fprintf(w, "Sorted sequences: **MISMATCH** at %s (reference: %s)\n",
				rep.Verification.FirstMismatch, rep.Verification.Reference)
		}

		fmt.Fprintln(w)
	}

	refSeconds := referenceSeconds(rep)

	fmt.Fprintln(w, "| Target | Elapsed | Speedup | Elements | Diagnostics |")
	fmt.Fprintln(w, "|--------|---------|---------|----------|-------------|")

	for _, t := range rep.Targets {
		fmt.Fprintf(w, "| %s | %s | %s | %d | %d |\n",
			t.Label,
			FormatSeconds(t.ElapsedSeconds),
			formatSpeedup(refSeconds, t.ElapsedSeconds),
			t.Elements,
			len(t.Diagnostics),
		)
	}

	for _, s := range rep.Skipped {
		fmt.Fprintf(w, "| %s | not run | - | - | - |\n", s.Label)
	}

	if len(rep.Skipped) > 0 {
		fmt.Fprintln(w)

		for _, s := range rep.Skipped {
			fmt.Fprintf(w, "  - %s: %s\n", s.Label, s.Reason)
		}
	}

	if len(rep.Targets) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Sorted sequence from %s:\n", rep.Targets[0].Label)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "```")
		fmt.Fprintln(w, rep.Preview)
		fmt.Fprintln(w, "```")
	}

	return nil
}

// GenerateJSON writes reports as JSON to w.
func GenerateJSON(w io.Writer, reps []FamilyReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(reps)
}

// FormatSeconds renders an elapsed time, or Unavailable when absent.
func FormatSeconds(secs *float64) string {
	if secs == nil {
		return Unavailable
	}

	return fmt.Sprintf("%.6f s", *secs)
}

// FormatSequence renders seq in full when it has at most threshold
// elements, otherwise the first and last threshold/2 elements around an
// ellipsis followed by the total length.
func FormatSequence(seq []int, threshold int) string {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	if len(seq) <= threshold {
		return "[" + joinInts(seq) + "]"
	}

	half := threshold / 2

	parts := make([]string, 0, 2*half+1)
	for _, v := range seq[:half] {
		parts = append(parts, strconv.Itoa(v))
	}

	parts = append(parts, "...")

	for _, v := range seq[len(seq)-half:] {
		parts = append(parts, strconv.Itoa(v))
	}

	return fmt.Sprintf("[%s]\n(showing first and last %d of %d elements)",
		strings.Join(parts, ", "), half, len(seq))
}

func joinInts(seq []int) string {
	parts := make([]string, len(seq))
	for i, v := range seq {
		parts[i] = strconv.Itoa(v)
	}

	return strings.Join(parts, ", ")
}

func referenceSeconds(rep FamilyReport) *float64 {
	if len(rep.Targets) == 0 {
		return nil
	}

	return rep.Targets[0].ElapsedSeconds
}

// formatSpeedup renders ref/secs, the speedup over the reference target.
func formatSpeedup(ref, secs *float64) string {
	if ref == nil || secs == nil || *secs <= 0 {
		return "-"
	}

	return fmt.Sprintf("%.2fx", *ref / *secs)
}
