package chart

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// BarWidth is the width in cells of the longest terminal bar.
const BarWidth = 40

const barGlyph = "█"

var (
	titleStyle       = lipgloss.NewStyle().Bold(true)
	barStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	unavailableStyle = lipgloss.NewStyle().Faint(true)
)

// RenderBars draws spec as horizontal bars scaled to the slowest target.
func RenderBars(w io.Writer, spec Spec) error {
	labelWidth := 0
	longest := 0.0

	for _, b := range spec.Bars {
		labelWidth = max(labelWidth, lipgloss.Width(b.Label))
		if b.Seconds != nil {
			longest = math.Max(longest, *b.Seconds)
		}
	}

	labelStyle := lipgloss.NewStyle().Width(labelWidth + 2)

	var sb strings.Builder

	sb.WriteString(titleStyle.Render(spec.Title))
	sb.WriteString("\n")

	for _, b := range spec.Bars {
		sb.WriteString(labelStyle.Render(b.Label))

		if b.Seconds == nil {
			sb.WriteString(unavailableStyle.Render(b.Annotation))
			sb.WriteString("\n")

			continue
		}

		n := barLength(*b.Seconds, longest)
		if n > 0 {
			sb.WriteString(barStyle.Render(strings.Repeat(barGlyph, n)))
			sb.WriteString(" ")
		}

		sb.WriteString(b.Annotation)
		sb.WriteString("\n")
	}

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("write bars: %w", err)
	}

	return nil
}

// barLength scales secs to BarWidth. Any positive time gets at least one
// cell.
func barLength(secs, longest float64) int {
	if longest <= 0 || secs <= 0 {
		return 0
	}

	return max(1, int(math.Round(secs/longest*BarWidth)))
}
