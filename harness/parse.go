package harness

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// DefaultTimingKeywords mark the line that carries a target's elapsed
// time. Matching is case-insensitive.
var DefaultTimingKeywords = []string{
	"SEQUENTIAL", "OPENMP", "MPI", "HYBRID", "EXECUTION", "MERGE",
}

// LineKind is the classification of one output line.
type LineKind int

const (
	LineUnrecognized LineKind = iota
	LineTiming
	LineData
)

func (k LineKind) String() string {
	switch k {
	case LineTiming:
		return "timing"
	case LineData:
		return "data"
	default:
		return "unrecognized"
	}
}

// Line is the classification of a single output line.
type Line struct {
	Number int
	Kind   LineKind

	// Timing lines.
	Seconds  float64
	HasValue bool

	// Data lines. Rejected is the first token that failed to parse; the
	// tokens after it are dropped.
	Values   []int
	Rejected string
}

// DiagnosticKind names a non-fatal parsing problem.
type DiagnosticKind string

const (
	DiagnosticMissingTiming      DiagnosticKind = "missing_timing"
	DiagnosticTimingWithoutValue DiagnosticKind = "timing_without_value"
	DiagnosticRejectedToken      DiagnosticKind = "rejected_token"
)

// Diagnostic records a parsing problem. Line is 0 for whole-output issues.
type Diagnostic struct {
	Line    int            `json:"line,omitempty"`
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message"`
}

// Parser extracts results from target output.
type Parser struct {
	keywords []string
}

// NewParser returns a Parser that recognises timing lines by keywords.
// An empty list selects DefaultTimingKeywords.
func NewParser(keywords []string) *Parser {
	if len(keywords) == 0 {
		keywords = DefaultTimingKeywords
	}

	fold := cases.Fold()
	folded := make([]string, 0, len(keywords))

	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			folded = append(folded, fold.String(kw))
		}
	}

	return &Parser{keywords: folded}
}

// Parse extracts a result from output using the default keywords.
func Parse(output string) ParsedResult {
	return NewParser(nil).Parse(output)
}

// Parse classifies every line and folds the classifications into a
// result. When several timing lines carry a value the last one wins.
// Parse never fails; problems are reported as diagnostics.
func (p *Parser) Parse(output string) ParsedResult {
	lines := p.ClassifyAll(output)

	var (
		result  ParsedResult
		seconds float64
		found   bool
	)

	for _, l := range lines {
		switch l.Kind {
		case LineTiming:
			if !l.HasValue {
				result.Diagnostics = append(result.Diagnostics, Diagnostic{
					Line:    l.Number,
					Kind:    DiagnosticTimingWithoutValue,
					Message: "timing line has no numeric value",
				})

				continue
			}

			seconds, found = l.Seconds, true

		case LineData:
			result.Sequence = append(result.Sequence, l.Values...)

			if l.Rejected != "" {
				result.Diagnostics = append(result.Diagnostics, Diagnostic{
					Line:    l.Number,
					Kind:    DiagnosticRejectedToken,
					Message: fmt.Sprintf("token %q is not an integer; rest of line dropped", l.Rejected),
				})
			}
		}
	}

	if found {
		result.ElapsedSeconds = &seconds
	} else {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Kind:    DiagnosticMissingTiming,
			Message: "could not parse execution time from output",
		})
	}

	return result
}

// ClassifyAll splits output into lines and classifies each one.
func (p *Parser) ClassifyAll(output string) []Line {
	raw := strings.Split(output, "\n")
	if n := len(raw); n > 0 && raw[n-1] == "" {
		raw = raw[:n-1]
	}

	fold := cases.Fold()
	lines := make([]Line, len(raw))

	for i, text := range raw {
		lines[i] = p.classify(fold, text)
		lines[i].Number = i + 1
	}

	return lines
}

// Classify tags a single line as timing, data, or unrecognized.
func (p *Parser) Classify(text string) Line {
	return p.classify(cases.Fold(), text)
}

func (p *Parser) classify(fold cases.Caser, text string) Line {
	text = strings.TrimSuffix(text, "\r")

	if p.isTiming(fold.String(text)) {
		l := Line{Kind: LineTiming}
		l.Seconds, l.HasValue = firstDuration(text)

		return l
	}

	if strings.TrimSpace(text) == "" || !isDigit(text[0]) {
		return Line{Kind: LineUnrecognized}
	}

	l := Line{Kind: LineData}

	for _, tok := range strings.Fields(text) {
		v, err := strconv.Atoi(tok)
		if err != nil {
			l.Rejected = tok

			break
		}
		l.Values = append(l.Values, v)
	}

	return l
}

func (p *Parser) isTiming(folded string) bool {
	for _, kw := range p.keywords {
		if strings.Contains(folded, kw) {
			return true
		}
	}

	return false
}

// firstDuration returns the first token that is a finite, non-negative
// number.
func firstDuration(text string) (float64, bool) {
	for _, tok := range strings.Fields(text) {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			continue
		}

		return v, true
	}

	return 0, false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
