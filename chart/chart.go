// Package chart hands timing tables to an external chart renderer and
// draws a plain terminal bar chart for the run summary.
package chart

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/weiihann/sortbench/report"
)

// Bar is one x-axis entry of a chart.
type Bar struct {
	Label      string   `json:"label"`
	Seconds    *float64 `json:"seconds"`
	Annotation string   `json:"annotation"`
}

// Spec is the chart description written for the external renderer.
// Bars without a time have a null value and the "unavailable" annotation.
type Spec struct {
	Title  string `json:"title"`
	Output string `json:"output"`
	XLabel string `json:"x_label"`
	YLabel string `json:"y_label"`
	Bars   []Bar  `json:"bars"`
}

// FromTimings builds a Spec for one sort family.
func FromTimings(title, output string, rows []report.TimingRow) Spec {
	spec := Spec{
		Title:  title,
		Output: output,
		XLabel: "Implementation",
		YLabel: "Execution Time (seconds)",
		Bars:   make([]Bar, 0, len(rows)),
	}

	for _, row := range rows {
		annotation := report.Unavailable
		if row.Seconds != nil {
			annotation = fmt.Sprintf("%.6f", *row.Seconds)
		}

		spec.Bars = append(spec.Bars, Bar{
			Label:      row.Label,
			Seconds:    row.Seconds,
			Annotation: annotation,
		})
	}

	return spec
}

// WriteSpec writes spec as JSON to path.
func WriteSpec(path string, spec Spec) error {
	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode chart spec: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write chart spec %s: %w", path, err)
	}

	return nil
}

// Renderer runs an external program that turns a spec file into an image.
// The spec path is appended to Command.
type Renderer struct {
	Command []string
	Logger  *slog.Logger
}

// Render invokes the renderer for specPath. A renderer without a command
// does nothing.
func (r *Renderer) Render(ctx context.Context, specPath string) error {
	if len(r.Command) == 0 {
		return nil
	}

	args := append(append([]string{}, r.Command[1:]...), specPath)

	cmd := exec.CommandContext(ctx, r.Command[0], args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if r.Logger != nil {
		r.Logger.InfoContext(ctx, "rendering chart",
			slog.String("renderer", r.Command[0]),
			slog.String("spec", specPath),
		)
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("render chart %s: %w", specPath, err)
	}

	return nil
}
